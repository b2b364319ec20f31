package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
)

const (
	familyIDSize = 16
	secretSize   = 32
	tokenRawSize = familyIDSize + 4 + secretSize
)

// ErrMalformedToken is returned for any token that is not exactly the expected encoding.
var ErrMalformedToken = errors.New("refresh: malformed token")

// FamilyID identifies a login and every token rotated from it.
type FamilyID [familyIDSize]byte

// Secret is the random part of a token.
type Secret [secretSize]byte

// Token is a decoded refresh token.
type Token struct {
	Family     FamilyID
	Generation uint32
	Secret     Secret
}

// NewFamilyID returns a random family ID.
func NewFamilyID() (FamilyID, error) {
	var id FamilyID
	_, err := rand.Read(id[:])
	return id, err
}

func (f FamilyID) String() string {
	return base64.RawURLEncoding.EncodeToString(f[:])
}

// ParseFamilyID parses the String form of a FamilyID.
func ParseFamilyID(s string) (FamilyID, error) {
	var id FamilyID
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != familyIDSize {
		return id, ErrMalformedToken
	}
	copy(id[:], raw)
	return id, nil
}

// New returns a token for family at generation with a fresh secret.
func New(family FamilyID, generation uint32) (Token, error) {
	t := Token{Family: family, Generation: generation}
	_, err := rand.Read(t.Secret[:])
	return t, err
}

// Next returns the rotated successor of t.
func (t Token) Next() (Token, error) {
	return New(t.Family, t.Generation+1)
}

// Hash is what servers store in place of the secret.
func (t Token) Hash() [32]byte {
	return sha256.Sum256(t.Secret[:])
}

// Matches reports whether t's secret hashes to h, in constant time.
func (t Token) Matches(h [32]byte) bool {
	got := t.Hash()
	return subtle.ConstantTimeCompare(got[:], h[:]) == 1
}

// Encode returns the wire form of t.
func (t Token) Encode() string {
	var raw [tokenRawSize]byte
	copy(raw[:familyIDSize], t.Family[:])
	binary.BigEndian.PutUint32(raw[familyIDSize:familyIDSize+4], t.Generation)
	copy(raw[familyIDSize+4:], t.Secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// Parse decodes the wire form produced by Encode.
func Parse(s string) (Token, error) {
	var t Token
	if base64.RawURLEncoding.DecodedLen(len(s)) != tokenRawSize {
		return t, ErrMalformedToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != tokenRawSize {
		return t, ErrMalformedToken
	}
	copy(t.Family[:], raw[:familyIDSize])
	t.Generation = binary.BigEndian.Uint32(raw[familyIDSize : familyIDSize+4])
	copy(t.Secret[:], raw[familyIDSize+4:])
	return t, nil
}
