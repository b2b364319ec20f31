package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/goAuthClient/jwt"
)

// Persisted field names.
const (
	FieldAccessToken  = "accessToken"
	FieldRefreshToken = "refreshToken"
	FieldUserID       = "userId"
	FieldSubject      = "subject"
	FieldEmail        = "email"
	FieldRoles        = "roles"
	FieldExpiresAt    = "expiresAt"
	FieldIssuedAt     = "issuedAt"
)

// Fields lists every key a backend owns.
var Fields = []string{
	FieldAccessToken,
	FieldRefreshToken,
	FieldUserID,
	FieldSubject,
	FieldEmail,
	FieldRoles,
	FieldExpiresAt,
	FieldIssuedAt,
}

// Encode flattens r into the persisted field map.
func Encode(r *Record) (map[string]string, error) {
	if r == nil {
		return nil, ErrInvalidRecord
	}
	if r.Pair.Empty() {
		return nil, fmt.Errorf("%w: empty pair", ErrInvalidRecord)
	}

	out := map[string]string{
		FieldAccessToken:  r.AccessToken,
		FieldRefreshToken: r.RefreshToken,
	}
	if r.Claims == nil {
		return out, nil
	}

	roles := r.Claims.Roles
	if roles == nil {
		roles = []string{}
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return nil, err
	}

	out[FieldUserID] = r.Claims.UserID
	out[FieldSubject] = r.Claims.Subject
	out[FieldEmail] = r.Claims.Email
	out[FieldRoles] = string(rolesJSON)
	out[FieldExpiresAt] = strconv.FormatInt(r.Claims.ExpiresAt, 10)
	if r.Claims.HasIssuedAt() {
		out[FieldIssuedAt] = strconv.FormatInt(r.Claims.IssuedAt, 10)
	}
	return out, nil
}

// Decode rebuilds a record from fields. It returns (nil, nil) when no token is stored.
func Decode(fields map[string]string) (*Record, error) {
	p := Pair{
		AccessToken:  fields[FieldAccessToken],
		RefreshToken: fields[FieldRefreshToken],
	}
	if p.Empty() {
		return nil, nil
	}

	r := &Record{Pair: p}
	rawExp, ok := fields[FieldExpiresAt]
	if !ok {
		return r, nil
	}

	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expiresAt: %v", ErrCorruptRecord, err)
	}
	c := &jwt.Claims{
		Subject:   fields[FieldSubject],
		UserID:    fields[FieldUserID],
		Email:     fields[FieldEmail],
		ExpiresAt: exp,
	}
	if rawIat, ok := fields[FieldIssuedAt]; ok {
		iat, err := strconv.ParseInt(rawIat, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: issuedAt: %v", ErrCorruptRecord, err)
		}
		c.IssuedAt = iat
	}
	if rawRoles := fields[FieldRoles]; rawRoles != "" {
		var roles []string
		if err := json.Unmarshal([]byte(rawRoles), &roles); err != nil {
			return nil, fmt.Errorf("%w: roles: %v", ErrCorruptRecord, err)
		}
		if len(roles) > 0 {
			c.Roles = roles
		}
	}
	r.Claims = c
	return r, nil
}

// IsCorrupt reports whether err came from a stored record that could not be decoded.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptRecord)
}
