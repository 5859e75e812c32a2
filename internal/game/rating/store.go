// Package rating implements the honour rating engine: banded symmetric
// adjustments after ranked matches and the derived leaderboard view.
package rating

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when a character has no stored rating.
var ErrNotFound = errors.New("rating not found")

// Store persists honour ratings. It is the system of record; the engine's
// in-memory ranking is a derived view rebuilt from a Store after every write.
type Store interface {
	// Get returns the stored rating for a character, or ErrNotFound.
	Get(ctx context.Context, characterID string) (int, error)
	// SetMany persists all given ratings in one batch.
	SetMany(ctx context.Context, ratings map[string]int) error
	// All returns every stored rating, including negative sentinel values.
	All(ctx context.Context) (map[string]int, error)
}
