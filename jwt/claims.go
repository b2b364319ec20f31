package jwt

import (
	"encoding/json"
	"strings"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the identity and timing payload of an access token.
//
// Claims are derived from a token and never built by hand outside this package.
type Claims struct {
	Subject string
	UserID  string
	Email   string
	Roles   []string
	// IssuedAt is in epoch seconds; zero when the token carries no iat.
	IssuedAt int64
	// ExpiresAt is in epoch seconds.
	ExpiresAt int64
}

// payload is the wire shape of the claims segment.
type payload struct {
	Subject   string            `json:"sub"`
	UserID    string            `json:"userId"`
	Email     string            `json:"email"`
	Roles     []string          `json:"roles"`
	IssuedAt  *gjwt.NumericDate `json:"iat"`
	ExpiresAt *gjwt.NumericDate `json:"exp"`
}

var segmentParser = gjwt.NewParser()

// Decode extracts claims from the middle segment of a compact JWT without verifying
// its signature. It returns nil for any malformed token: wrong segment count, bad
// base64url, non-object JSON, or a missing exp.
func Decode(token string) *Claims {
	if token == "" {
		return nil
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if p.ExpiresAt == nil {
		return nil
	}

	return p.claims()
}

func (p payload) claims() *Claims {
	c := &Claims{
		Subject:   p.Subject,
		UserID:    p.UserID,
		Email:     p.Email,
		Roles:     normalizeRoles(p.Roles),
		ExpiresAt: p.ExpiresAt.Unix(),
	}
	if p.IssuedAt != nil {
		c.IssuedAt = p.IssuedAt.Unix()
	}
	return c
}

// HasIssuedAt reports whether the token carried an iat claim.
func (c *Claims) HasIssuedAt() bool {
	return c != nil && c.IssuedAt > 0
}

// Expiry returns ExpiresAt as a time.Time.
func (c *Claims) Expiry() time.Time {
	if c == nil {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// HasRole reports whether role is in the token's role set.
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Claims) Clone() *Claims {
	if c == nil {
		return nil
	}
	out := *c
	if c.Roles != nil {
		out.Roles = append([]string(nil), c.Roles...)
	}
	return &out
}

// normalizeRoles drops empty and duplicate entries while keeping first-seen order.
func normalizeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
