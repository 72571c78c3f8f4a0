package main

import (
	"context"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/repositories"
	"github.com/urfave/cli/v3"
)

// historyEntry is the JSON shape of one recorded run.
type historyEntry struct {
	ID          string     `json:"id"`
	Sequence    int        `json:"sequence"`
	PlaylistID  string     `json:"playlist_id"`
	TargetDir   string     `json:"target_dir"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Cancelled   bool       `json:"cancelled"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func newHistoryEntry(run *models.Run) historyEntry {
	return historyEntry{
		ID:          run.ID(),
		Sequence:    run.Sequence(),
		PlaylistID:  run.PlaylistID(),
		TargetDir:   run.TargetDir(),
		Total:       run.Total(),
		Succeeded:   run.Succeeded(),
		Failed:      run.Failed(),
		Skipped:     run.Skipped(),
		Cancelled:   run.Cancelled(),
		StartedAt:   run.StartedAt(),
		CompletedAt: run.CompletedAt(),
	}
}

// History lists recorded runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if playlist := cmd.String("playlist"); playlist != "" {
		criteria["playlist_id"] = playlist
	}

	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(runs))
		for _, run := range runs {
			entries = append(entries, newHistoryEntry(run))
		}
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet\n")
	}

	r.writePlainHeader("Download history")
	for _, run := range runs {
		status := ""
		if run.Cancelled() {
			status = " (cancelled)"
		}
		r.writePlain("#%d  %s  %s  %d ok, %d failed, %d skipped%s\n",
			run.Sequence(), run.StartedAt().Format(time.DateTime), run.PlaylistID(),
			run.Succeeded(), run.Failed(), run.Skipped(), status)
		r.writePlain("    %s\n", run.TargetDir())
	}
	return nil
}
