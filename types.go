package goAuthClient

import (
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
)

// SessionStatus is returned by [Client.Status]. It is computed from the store alone and
// never triggers a renewal.
type SessionStatus struct {
	Authenticated   bool
	HasRefreshToken bool
	// Decision is what the next request would do with the stored token:
	// "use_token", "renew_in_background" or "renew_now".
	Decision string
	Claims   *jwt.Claims
	// ExpiresAt is the hard expiry; zero without claims.
	ExpiresAt time.Time
	// RenewAt is when background renewal kicks in; zero without claims.
	RenewAt         time.Time
	RenewalInFlight bool
}
