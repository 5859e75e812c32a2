// Package redishonour provides a Redis-backed honour rating store for
// deployments that run without PostgreSQL.
package redishonour

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/arena/internal/game/rating"
)

// ratingsKey is the hash holding every rating, field = character ID.
const ratingsKey = "honour:ratings"

// Config holds configuration for the Redis honour store.
type Config struct {
	// RedisClient is the connected client to use.
	RedisClient *redis.Client
}

// Store implements rating.Store on a Redis hash.
type Store struct {
	client *redis.Client
}

// NewStore creates a Redis-backed rating store.
//
// Precondition: cfg.RedisClient must be non-nil.
// Postcondition: Returns a Store whose connection has been verified, or a
// non-nil error.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil || cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Store{client: cfg.RedisClient}, nil
}

// Get retrieves the stored rating for a character.
//
// Postcondition: Returns the rating, or rating.ErrNotFound when the character
// has never had a rating written.
func (s *Store) Get(ctx context.Context, characterID string) (int, error) {
	raw, err := s.client.HGet(ctx, ratingsKey, characterID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, rating.ErrNotFound
		}
		return 0, fmt.Errorf("reading honour rating: %w", err)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing honour rating %q: %w", raw, err)
	}
	return value, nil
}

// SetMany writes a batch of ratings in a single pipelined round trip.
//
// Postcondition: Every entry in ratings is persisted, or a non-nil error is
// returned.
func (s *Store) SetMany(ctx context.Context, ratings map[string]int) error {
	if len(ratings) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for characterID, value := range ratings {
		pipe.HSet(ctx, ratingsKey, characterID, value)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing honour ratings: %w", err)
	}
	return nil
}

// All returns every stored rating keyed by character ID.
//
// Postcondition: Returns a map (may be empty) or a non-nil error.
func (s *Store) All(ctx context.Context) (map[string]int, error) {
	raw, err := s.client.HGetAll(ctx, ratingsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing honour ratings: %w", err)
	}

	out := make(map[string]int, len(raw))
	for characterID, v := range raw {
		value, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing honour rating %q for %s: %w", v, characterID, err)
		}
		out[characterID] = value
	}
	return out, nil
}
