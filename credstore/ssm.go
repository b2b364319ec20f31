package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMAPI is the subset of the SSM client SSMStore needs.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	DeleteParameter(ctx context.Context, in *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
}

// SSMStore keeps the encoded field map as JSON in a single SecureString parameter, so
// a Save is one PutParameter call.
type SSMStore struct {
	ssm  SSMAPI
	name string
}

// NewSSMStore returns an SSMStore writing to the parameter name.
func NewSSMStore(api SSMAPI, name string) *SSMStore {
	return &SSMStore{ssm: api, name: name}
}

// NewSSMStoreFromEnv loads the default AWS config chain and returns an SSMStore.
func NewSSMStoreFromEnv(ctx context.Context, name string) (*SSMStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return NewSSMStore(ssm.NewFromConfig(cfg), name), nil
}

// Save overwrites the parameter.
func (s *SSMStore) Save(ctx context.Context, r *Record) error {
	fields, err := Encode(r)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	_, err = s.ssm.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.name),
		Value:     aws.String(string(raw)),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads and decrypts the parameter. A missing parameter yields (nil, nil).
func (s *SSMStore) Load(ctx context.Context) (*Record, error) {
	resp, err := s.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if isParameterNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if resp.Parameter == nil || resp.Parameter.Value == nil {
		return nil, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(*resp.Parameter.Value), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return Decode(fields)
}

// Clear deletes the parameter. A missing parameter is not an error.
func (s *SSMStore) Clear(ctx context.Context) error {
	_, err := s.ssm.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(s.name),
	})
	if err != nil && !isParameterNotFound(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func isParameterNotFound(err error) bool {
	var notFound *types.ParameterNotFound
	return errors.As(err, &notFound)
}
