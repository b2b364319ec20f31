package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goAuthClient/credstore"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidInput
	LoginFailureBackend
	LoginFailureMalformedToken
	LoginFailurePersist
)

var errMalformedAccessToken = errors.New("login returned a malformed access token")

// LoginResult carries either the stored record or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Record  *credstore.Record
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Login func(ctx context.Context, username, password string) (credstore.Pair, error)
	Save  func(context.Context, *credstore.Record) error
}

// RunLogin exchanges credentials for a token pair and stores it with its claims in one
// write. A pair whose access token cannot be decoded is rejected and nothing is stored.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	if strings.TrimSpace(username) == "" || password == "" {
		return LoginResult{
			Failure: LoginFailureInvalidInput,
			Err:     errors.New("username and password are required"),
		}
	}

	pair, err := deps.Login(ctx, username, password)
	if err != nil {
		return LoginResult{Failure: LoginFailureBackend, Err: err}
	}

	rec := credstore.NewRecord(pair)
	if rec.Claims == nil || pair.RefreshToken == "" {
		return LoginResult{Failure: LoginFailureMalformedToken, Err: errMalformedAccessToken}
	}

	if err := deps.Save(ctx, rec); err != nil {
		return LoginResult{Failure: LoginFailurePersist, Err: err}
	}

	return LoginResult{Record: rec}
}
