package renewal

import (
	"math"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
)

// DefaultThreshold is the fraction of a token's lifetime after which it is renewed
// proactively.
const DefaultThreshold = 0.85

// Decision is what a caller should do with its current access token.
type Decision int

const (
	// RenewNow means the token is absent, malformed or past hard expiry.
	RenewNow Decision = iota
	// RenewInBackground means the token is usable but past the proactive threshold.
	RenewInBackground
	// UseToken means the token is fresh.
	UseToken
)

func (d Decision) String() string {
	switch d {
	case RenewNow:
		return "renew_now"
	case RenewInBackground:
		return "renew_in_background"
	case UseToken:
		return "use_token"
	default:
		return "unknown"
	}
}

// Policy evaluates token expiry against a clock.
type Policy struct {
	// Threshold outside (0, 1) falls back to DefaultThreshold.
	Threshold float64
	// Now defaults to time.Now.
	Now func() time.Time
}

// IsExpired reports whether token must be treated as expired. With useThreshold it
// reports whether the proactive renewal point has been reached; tokens without iat fall
// back to hard expiry.
func (p Policy) IsExpired(token string, useThreshold bool) bool {
	if token == "" {
		return true
	}
	return p.ClaimsExpired(jwt.Decode(token), useThreshold)
}

// ClaimsExpired is IsExpired over already decoded claims. Nil claims are expired.
func (p Policy) ClaimsExpired(c *jwt.Claims, useThreshold bool) bool {
	if c == nil {
		return true
	}

	nowMs := p.now().UnixMilli()
	if !useThreshold || !c.HasIssuedAt() {
		return nowMs >= c.ExpiresAt*1000
	}
	return nowMs >= p.renewAtMs(c)
}

// Decide classifies token for the request path.
func (p Policy) Decide(token string) Decision {
	if token == "" {
		return RenewNow
	}
	c := jwt.Decode(token)
	if p.ClaimsExpired(c, false) {
		return RenewNow
	}
	if p.ClaimsExpired(c, true) {
		return RenewInBackground
	}
	return UseToken
}

// RenewAt returns the instant the proactive renewal point is reached, or the hard
// expiry when the token has no iat. Zero for nil claims.
func (p Policy) RenewAt(c *jwt.Claims) time.Time {
	if c == nil {
		return time.Time{}
	}
	if !c.HasIssuedAt() {
		return c.Expiry()
	}
	return time.UnixMilli(p.renewAtMs(c))
}

// renewAtMs is iat + lifetime*threshold in epoch milliseconds. The threshold is applied
// in basis points so the boundary is exact: 0.85 of a 1000s lifetime is 850000ms.
func (p Policy) renewAtMs(c *jwt.Claims) int64 {
	iatMs := c.IssuedAt * 1000
	lifetime := c.ExpiresAt*1000 - iatMs
	return iatMs + lifetime*p.basisPoints()/10000
}

func (p Policy) basisPoints() int64 {
	return int64(math.Round(p.threshold() * 10000))
}

func (p Policy) threshold() float64 {
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return DefaultThreshold
	}
	return p.Threshold
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
