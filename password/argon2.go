package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID       = "argon2id"
	minMemoryKB       = 8 * 1024
	minSaltLength     = 16
	minKeyLength      = 16
	maxPasswordBytes  = 1024
	phcSegmentCount   = 6
	phcParamSeparator = ","
)

var (
	// ErrMalformedHash is returned by Verify for anything that is not an argon2id PHC string.
	ErrMalformedHash = errors.New("password: malformed argon2id hash")
	// ErrInvalidPassword is returned by Hash for empty or oversized input.
	ErrInvalidPassword = errors.New("password: empty or longer than 1024 bytes")
)

// Params are the argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Fast returns the cheapest parameters NewHasher accepts. Good for test backends,
// too weak for stored production credentials.
func Fast() Params {
	return Params{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: minSaltLength, KeyLength: 32}
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	params Params
}

// NewHasher validates p and returns a Hasher.
func NewHasher(p Params) (*Hasher, error) {
	switch {
	case p.Memory < minMemoryKB:
		return nil, fmt.Errorf("password: memory must be >= %d KiB", minMemoryKB)
	case p.Time < 1:
		return nil, errors.New("password: time must be >= 1")
	case p.Parallelism < 1:
		return nil, errors.New("password: parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password: salt length must be >= %d", minSaltLength)
	case p.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password: key length must be >= %d", minKeyLength)
	}
	return &Hasher{params: p}, nil
}

// Hash returns the PHC encoding of pw under a fresh random salt.
func (h *Hasher) Hash(pw string) (string, error) {
	if pw == "" || len(pw) > maxPasswordBytes {
		return "", ErrInvalidPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(pw), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.params.Memory, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether pw matches encoded. The cost parameters come from encoded,
// not from the Hasher, so hashes made with other parameters still verify.
func (h *Hasher) Verify(pw, encoded string) (bool, error) {
	p, salt, want, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	if len(pw) > maxPasswordBytes {
		return false, nil
	}
	got := argon2.IDKey([]byte(pw), salt, p.Time, p.Memory, p.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func parsePHC(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != phcSegmentCount || parts[0] != "" || parts[1] != algorithmID {
		return p, nil, nil, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	seen := 0
	for _, kv := range strings.Split(parts[3], phcParamSeparator) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, ErrMalformedHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return p, nil, nil, ErrMalformedHash
		}
		switch k {
		case "m":
			if n < minMemoryKB {
				return p, nil, nil, ErrMalformedHash
			}
			p.Memory = uint32(n)
		case "t":
			p.Time = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, ErrMalformedHash
			}
			p.Parallelism = uint8(n)
		default:
			return p, nil, nil, ErrMalformedHash
		}
		seen++
	}
	if seen != 3 || p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minSaltLength {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < minKeyLength {
		return p, nil, nil, ErrMalformedHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
