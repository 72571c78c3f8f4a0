package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tapedeck/internal/tasks"
	"github.com/desertthunder/tapedeck/internal/ui"
	"golang.org/x/sync/errgroup"
)

// downloadWithUI runs the engine behind the bubbletea progress display.
//
// Cancelling from the UI cancels the engine; the program stays up until the engine has returned.
func (r *Runner) downloadWithUI(ctx context.Context, engine *tasks.Engine, playlistID string) (*tasks.RunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := make(chan tasks.ProgressUpdate, 64)
	model := ui.NewModel(playlistID, progress, cancel)
	p := tea.NewProgram(model, tea.WithOutput(r.output))

	var result *tasks.RunResult
	var runErr error

	g := new(errgroup.Group)
	g.Go(func() error {
		result, runErr = engine.Download(ctx, playlistID, progress)
		close(progress)
		p.Send(ui.Finished(result, runErr))
		return nil
	})
	g.Go(func() error {
		if _, err := p.Run(); err != nil {
			cancel()
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, runErr
}
