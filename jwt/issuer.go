package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the algorithm an [Issuer] signs with.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// Config defines a public type used by goAuthClient APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
}

// Identity is the subject an access token is minted for.
type Identity struct {
	Subject string
	UserID  string
	Email   string
	Roles   []string
}

// Issuer signs access tokens in the claims shape [Decode] understands and verifies them
// on the server side.
type Issuer struct {
	config Config
	now    func() time.Time
}

type accessClaims struct {
	UserID string   `json:"userId,omitempty"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	gjwt.RegisteredClaims
}

// NewIssuer validates cfg and returns an Issuer.
//
// NewIssuer may return an error when input validation, dependency calls, or security checks fail.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Issuer{config: cfg, now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	out := *i
	if now == nil {
		now = time.Now
	}
	out.now = now
	return &out
}

// Issue mints a token valid for the configured AccessTTL starting now.
func (i *Issuer) Issue(id Identity) (string, error) {
	now := i.now()
	return i.IssueAt(id, now, now.Add(i.config.AccessTTL))
}

// IssueAt mints a token with explicit issued-at and expiry instants. A zero issuedAt
// omits the iat claim. Every token carries a random jti, so two tokens minted in the
// same second still differ.
func (i *Issuer) IssueAt(id Identity, issuedAt, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		UserID: id.UserID,
		Email:  id.Email,
		Roles:  id.Roles,
		RegisteredClaims: gjwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			Issuer:    i.config.Issuer,
			ExpiresAt: gjwt.NewNumericDate(expiresAt),
		},
	}
	if !issuedAt.IsZero() {
		claims.IssuedAt = gjwt.NewNumericDate(issuedAt)
	}

	token := gjwt.NewWithClaims(i.method(), claims)
	if i.config.KeyID != "" {
		token.Header["kid"] = i.config.KeyID
	}

	signKey, err := i.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// Verify checks signature, algorithm, issuer and expiry, and returns the claims.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	options := []gjwt.ParserOption{
		gjwt.WithValidMethods([]string{i.method().Alg()}),
		gjwt.WithExpirationRequired(),
		gjwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, gjwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, gjwt.WithIssuer(i.config.Issuer))
	}

	parser := gjwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &accessClaims{}, func(t *gjwt.Token) (interface{}, error) {
		if t.Method.Alg() != i.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if i.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != i.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return i.verifyKey()
	})
	if err != nil {
		return nil, err
	}

	ac, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, gjwt.ErrTokenInvalidClaims
	}

	p := payload{
		Subject:   ac.Subject,
		UserID:    ac.UserID,
		Email:     ac.Email,
		Roles:     ac.Roles,
		IssuedAt:  ac.IssuedAt,
		ExpiresAt: ac.ExpiresAt,
	}
	return p.claims(), nil
}

func (i *Issuer) method() gjwt.SigningMethod {
	switch i.config.SigningMethod {
	case MethodHS256:
		return gjwt.SigningMethodHS256
	default:
		return gjwt.SigningMethodEdDSA
	}
}

func (i *Issuer) signKey() (interface{}, error) {
	switch i.config.SigningMethod {
	case MethodHS256:
		return i.config.PrivateKey, nil
	default:
		if len(i.config.PrivateKey) == 0 {
			return nil, errors.New("issuer has no private key")
		}
		return parseEdPrivateKey(i.config.PrivateKey)
	}
}

func (i *Issuer) verifyKey() (interface{}, error) {
	switch i.config.SigningMethod {
	case MethodHS256:
		return i.config.PrivateKey, nil
	default:
		return parseEdPublicKey(i.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := gjwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := gjwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
