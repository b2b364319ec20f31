package goAuthClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/goAuthClient/credstore"
)

// Backend is the identity service the Client talks to.
type Backend interface {
	// Login exchanges credentials for a pair. Refused credentials return an error
	// matching ErrInvalidCredentials.
	Login(ctx context.Context, username, password string) (credstore.Pair, error)
	// Renew exchanges a refresh token for a new pair. It must honor ctx.
	Renew(ctx context.Context, refreshToken string) (credstore.Pair, error)
	// Logout revokes the pair server-side.
	Logout(ctx context.Context, pair credstore.Pair) error
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type renewRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

const maxTokenResponseBytes = 64 << 10

// HTTPBackend talks JSON to the login, renew and logout endpoints. Its requests never go
// through the authorizing Transport.
type HTTPBackend struct {
	endpoints       EndpointConfig
	client          *http.Client
	requestIDHeader string
}

// NewHTTPBackend returns an HTTPBackend. A nil client uses http.DefaultClient.
func NewHTTPBackend(endpoints EndpointConfig, client *http.Client) (*HTTPBackend, error) {
	if strings.TrimSpace(endpoints.BaseURL) == "" {
		return nil, errors.New("http backend requires Endpoints BaseURL")
	}
	if client == nil {
		client = http.DefaultClient
	}
	endpoints.BaseURL = strings.TrimRight(endpoints.BaseURL, "/")
	return &HTTPBackend{
		endpoints:       endpoints,
		client:          client,
		requestIDHeader: defaultConfig().HTTP.RequestIDHeader,
	}, nil
}

// Login implements Backend.
func (b *HTTPBackend) Login(ctx context.Context, username, password string) (credstore.Pair, error) {
	resp, err := b.post(ctx, b.endpoints.LoginPath, loginRequest{Username: username, Password: password}, "")
	if err != nil {
		return credstore.Pair{}, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		drain(resp.Body)
		return credstore.Pair{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, &BackendError{Op: "login", StatusCode: resp.StatusCode})
	case resp.StatusCode/100 != 2:
		drain(resp.Body)
		return credstore.Pair{}, &BackendError{Op: "login", StatusCode: resp.StatusCode}
	}
	return decodePair("login", resp.Body)
}

// Renew implements Backend.
func (b *HTTPBackend) Renew(ctx context.Context, refreshToken string) (credstore.Pair, error) {
	resp, err := b.post(ctx, b.endpoints.RenewPath, renewRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return credstore.Pair{}, fmt.Errorf("renew: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		drain(resp.Body)
		return credstore.Pair{}, &BackendError{Op: "renew", StatusCode: resp.StatusCode}
	}
	return decodePair("renew", resp.Body)
}

// Logout implements Backend. It is a no-op when LogoutPath is empty.
func (b *HTTPBackend) Logout(ctx context.Context, pair credstore.Pair) error {
	if b.endpoints.LogoutPath == "" {
		return nil
	}
	resp, err := b.post(ctx, b.endpoints.LogoutPath, renewRequest{RefreshToken: pair.RefreshToken}, pair.AccessToken)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer resp.Body.Close()
	drain(resp.Body)

	if resp.StatusCode/100 != 2 {
		return &BackendError{Op: "logout", StatusCode: resp.StatusCode}
	}
	return nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoints.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if id := RequestIDFromContext(ctx); id != "" && b.requestIDHeader != "" {
		req.Header.Set(b.requestIDHeader, id)
	}
	return b.client.Do(req)
}

func decodePair(op string, body io.Reader) (credstore.Pair, error) {
	var out tokenResponse
	if err := json.NewDecoder(io.LimitReader(body, maxTokenResponseBytes)).Decode(&out); err != nil {
		return credstore.Pair{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return credstore.Pair{}, fmt.Errorf("%s: response missing tokens", op)
	}
	return credstore.Pair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxTokenResponseBytes))
}
