package credstore

import "github.com/MrEthical07/goAuthClient/jwt"

// Pair is the access/refresh token pair. It is always replaced as a unit.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither token is set.
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Record is the stored pair plus the claims decoded from its access token. Every login or
// renewal replaces it in a single write.
type Record struct {
	Pair

	// Claims are decoded from Pair.AccessToken. Nil when the access token is absent or
	// malformed.
	Claims *jwt.Claims
}

// NewRecord builds a record and derives its claims from the access token.
func NewRecord(p Pair) *Record {
	return &Record{
		Pair:   p,
		Claims: jwt.Decode(p.AccessToken),
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{Pair: r.Pair, Claims: r.Claims.Clone()}
}
