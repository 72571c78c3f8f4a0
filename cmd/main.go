package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitCancelled = 130
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "tapedeck",
		Usage:    "Download Spotify playlists as tagged MP3 files via YouTube",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	err := app.Run(ctx, os.Args)
	code := exitCode(err)
	switch code {
	case exitOK:
	case exitCancelled:
		logger.Warn("cancelled by user")
	default:
		logger.Error("application error", "error", err)
	}

	stop()
	os.Exit(code)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, shared.ErrCancelled), errors.Is(err, context.Canceled):
		return exitCancelled
	default:
		return exitFailure
	}
}
