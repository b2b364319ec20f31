package goAuthClient

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthClient/credstore"
	"github.com/MrEthical07/goAuthClient/internal/renewal"
)

var (
	// ErrNoRefreshToken is returned when a renewal is needed but nothing is stored to renew with.
	ErrNoRefreshToken = renewal.ErrNoRefreshToken
	// ErrRenewalFailed is returned to every caller of a failed renewal cycle. It wraps the
	// backend or transport cause.
	ErrRenewalFailed = renewal.ErrRenewalFailed
	// ErrRenewalAborted is returned when a renewal cycle ended without a result.
	ErrRenewalAborted = renewal.ErrRenewalAborted
	// ErrAuthorizationRejected is returned when a request is rejected again after its single retry.
	ErrAuthorizationRejected = errors.New("authorization rejected")
	// ErrInvalidCredentials is returned by Login when the backend refuses the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginFailed is returned by Login for any other failure.
	ErrLoginFailed = errors.New("login failed")
	// ErrNotAuthenticated is returned when no session is stored.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client closed")
	// ErrStoreUnavailable is returned when the credential store cannot be reached.
	ErrStoreUnavailable = credstore.ErrStoreUnavailable
)

// BackendError is returned by the HTTP backend for non-2xx responses.
type BackendError struct {
	Op         string
	StatusCode int
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: backend responded %d", e.Op, e.StatusCode)
}

// RenewalCycle returns the renewal cycle ID carried by err, or "" when err did not come
// from a renewal.
func RenewalCycle(err error) string {
	return renewal.CycleOf(err)
}
