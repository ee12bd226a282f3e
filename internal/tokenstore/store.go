// Package tokenstore persists the bearer token that keeps a session alive
// across restarts. Exactly one value is stored, under Key.
package tokenstore

import (
	"context"
	"errors"
)

// Key is the fixed name the token is stored under.
const Key = "token"

// ErrNotFound is returned by Load when no token has been saved.
var ErrNotFound = errors.New("token not found")

// Store is a single-slot token persistence layer. Implementations are safe for
// concurrent use; Clear on an empty store is not an error.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Close() error
}
