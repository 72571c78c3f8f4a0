package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
)

// ResolutionRepository caches resolved locators by Spotify track id.
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Lookup returns the cached locator for trackID; ok is false on a miss.
func (r *ResolutionRepository) Lookup(ctx context.Context, trackID string) (string, bool, error) {
	var locator string
	err := r.db.QueryRowContext(ctx, "SELECT locator FROM resolutions WHERE track_id = ?", trackID).Scan(&locator)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query resolution: %w", err)
	}
	return locator, true, nil
}

// Store upserts a resolved locator. Unresolved results and cache hits are not written.
func (r *ResolutionRepository) Store(ctx context.Context, res models.Resolution) error {
	if !res.Resolved() || res.Track.ID == "" || res.Source == models.SourceCache {
		return nil
	}

	query := `
		INSERT INTO resolutions (track_id, locator, source, score, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE
		SET locator = excluded.locator, source = excluded.source, score = excluded.score, created_at = excluded.created_at
	`

	if _, err := r.db.ExecContext(ctx, query, res.Track.ID, res.Locator, string(res.Source), res.Score, time.Now()); err != nil {
		return fmt.Errorf("failed to store resolution: %w", err)
	}
	return nil
}

// Clear removes every cached resolution and returns how many were deleted.
func (r *ResolutionRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM resolutions")
	if err != nil {
		return 0, fmt.Errorf("failed to clear resolutions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// Count returns the number of cached resolutions per source.
func (r *ResolutionRepository) Count(ctx context.Context) (map[models.ResolutionSource]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT source, COUNT(*) FROM resolutions GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to count resolutions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ResolutionSource]int)
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("failed to scan resolution count: %w", err)
		}
		counts[models.ResolutionSource(source)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}
