package credstore

import (
	"context"
	"errors"
)

var (
	// ErrStoreUnavailable wraps backend I/O failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrCorruptRecord is returned when persisted fields cannot be decoded.
	ErrCorruptRecord = errors.New("credential record corrupt")
	// ErrInvalidRecord is returned when Save is given a nil or empty record.
	ErrInvalidRecord = errors.New("invalid credential record")
)

// Store persists one credential record.
//
// Save replaces the record atomically. Load returns (nil, nil) when nothing is stored.
// Clear removes every owned key and succeeds when nothing is stored.
type Store interface {
	Save(ctx context.Context, r *Record) error
	Load(ctx context.Context) (*Record, error)
	Clear(ctx context.Context) error
}
