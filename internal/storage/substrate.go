package storage

import (
	"context"
	"errors"
)

var (
	errMissingDB = errors.New("storage: missing database connection")
	ErrReadOnly  = errors.New("storage: substrate is read-only")
)

// Substrate is a key-value store holding whole serialized values. The
// catalog uses a single key.
type Substrate interface {
	// Get returns the value stored under key. The bool is false when the
	// key has never been written.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
