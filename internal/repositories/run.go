package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
)

const artistSeparator = ", "

// RunRepository implements models.Repository[*models.Run] for download history.
//
// A run and its outcomes are always written in one transaction.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Run] = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with a generated ID and sequence, together with its outcomes.
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (id, sequence, playlist_id, target_dir, total, succeeded, failed, skipped, cancelled, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		run.ID(),
		run.Sequence(),
		run.PlaylistID(),
		run.TargetDir(),
		run.Total(),
		run.Succeeded(),
		run.Failed(),
		run.Skipped(),
		run.Cancelled(),
		run.StartedAt(),
		nullTime(run.CompletedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertOutcomes(tx, run.ID(), run.Outcomes()); err != nil {
		return err
	}
	return tx.Commit()
}

// Get retrieves a run and its outcomes by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, playlist_id, target_dir, total, succeeded, failed, skipped, cancelled, started_at, completed_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	outcomes, err := r.outcomes(id)
	if err != nil {
		return nil, err
	}
	run.SetOutcomes(outcomes)
	return run, nil
}

// Update rewrites the counters, completion time and outcomes of an existing run.
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE runs
		SET total = ?, succeeded = ?, failed = ?, skipped = ?, cancelled = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := tx.Exec(query,
		run.Total(),
		run.Succeeded(),
		run.Failed(),
		run.Skipped(),
		run.Cancelled(),
		nullTime(run.CompletedAt()),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", run.ID())
	}

	if _, err := tx.Exec("DELETE FROM run_outcomes WHERE run_id = ?", run.ID()); err != nil {
		return fmt.Errorf("failed to clear outcomes: %w", err)
	}
	if err := insertOutcomes(tx, run.ID(), run.Outcomes()); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a run; its outcomes cascade.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// List retrieves runs newest first without their outcomes.
//
// Supported criteria: "playlist_id" (string) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, playlist_id, target_dir, total, succeeded, failed, skipped, cancelled, started_at, completed_at
		FROM runs
		WHERE 1 = 1
	`

	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

func (r *RunRepository) outcomes(runID string) ([]models.Outcome, error) {
	query := `
		SELECT idx, track_id, title, artists, status, skipped, file, reason
		FROM run_outcomes
		WHERE run_id = ?
		ORDER BY idx ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var (
			idx                           int
			trackID, title, artists, stat string
			skipped                       bool
			file, reason                  sql.NullString
		)
		if err := rows.Scan(&idx, &trackID, &title, &artists, &stat, &skipped, &file, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		var names []string
		if artists != "" {
			names = strings.Split(artists, artistSeparator)
		}
		track := models.NewTrack(trackID, title, names, "", 0, "", "", 0, nil)

		if stat == models.Succeeded.String() {
			outcomes = append(outcomes, models.Succeed(idx, track, file.String, skipped))
		} else {
			outcomes = append(outcomes, models.Fail(idx, track, reason.String))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return outcomes, nil
}

func insertOutcomes(tx *sql.Tx, runID string, outcomes []models.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_outcomes (run_id, idx, track_id, title, artists, status, skipped, file, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		_, err := stmt.Exec(runID, o.Index, o.Track.ID, o.Track.Title, strings.Join(o.Track.Artists, artistSeparator),
			o.Status.String(), o.Skipped, nullString(o.Path), nullString(o.Reason))
		if err != nil {
			return fmt.Errorf("failed to insert outcome %d: %w", o.Index, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var (
		id, playlistID, targetDir  string
		sequence, total            int
		succeeded, failed, skipped int
		cancelled                  bool
		startedAt                  time.Time
		completedAt                sql.NullTime
	)

	err := row.Scan(&id, &sequence, &playlistID, &targetDir, &total, &succeeded, &failed, &skipped, &cancelled, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRun(playlistID, targetDir, total)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetStartedAt(startedAt)

	var completed *time.Time
	if completedAt.Valid {
		completed = &completedAt.Time
	}
	run.Restore(succeeded, failed, skipped, cancelled, completed)
	return run, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
