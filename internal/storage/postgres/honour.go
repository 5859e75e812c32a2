package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/rating"
)

// HonourRepository persists honour ratings in the honour_ratings table.
// It implements rating.Store.
type HonourRepository struct {
	db *pgxpool.Pool
}

// NewHonourRepository creates a HonourRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHonourRepository(db *pgxpool.Pool) *HonourRepository {
	return &HonourRepository{db: db}
}

// Get retrieves the stored rating for a character.
//
// Postcondition: Returns the rating, or rating.ErrNotFound when the character
// has never had a rating written.
func (r *HonourRepository) Get(ctx context.Context, characterID string) (int, error) {
	var value int
	err := r.db.QueryRow(ctx,
		`SELECT rating FROM honour_ratings WHERE character_id = $1`,
		characterID,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, rating.ErrNotFound
		}
		return 0, fmt.Errorf("querying honour rating: %w", err)
	}
	return value, nil
}

// SetMany upserts a batch of ratings in a single round trip.
//
// Postcondition: Every entry in ratings is persisted, or a non-nil error is
// returned and the batch may be partially applied.
func (r *HonourRepository) SetMany(ctx context.Context, ratings map[string]int) error {
	if len(ratings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for characterID, value := range ratings {
		batch.Queue(`
			INSERT INTO honour_ratings (character_id, rating)
			VALUES ($1, $2)
			ON CONFLICT (character_id)
			DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()`,
			characterID, value,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range ratings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting honour rating: %w", err)
		}
	}
	return nil
}

// All returns every stored rating keyed by character ID.
//
// Postcondition: Returns a map (may be empty) or a non-nil error.
func (r *HonourRepository) All(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT character_id, rating FROM honour_ratings`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing honour ratings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var characterID string
		var value int
		if err := rows.Scan(&characterID, &value); err != nil {
			return nil, fmt.Errorf("scanning honour rating row: %w", err)
		}
		out[characterID] = value
	}
	return out, rows.Err()
}
