// Package slot provides the durable named-slot storage the session engine
// persists into: one live slot per student plus a separate backup slot
// written only by the crash-recovery guard.
package slot

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a slot has no stored payload.
var ErrNotFound = errors.New("slot not found")

// Store is the named-slot persistence contract. Implementations must treat
// Save as a full overwrite of the slot's payload.
type Store interface {
	Save(ctx context.Context, name string, payload []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}
