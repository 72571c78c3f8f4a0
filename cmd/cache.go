package main

import (
	"context"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached resolutions per source.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := repositories.NewResolutionRepository(db).Count(ctx)
	if err != nil {
		return err
	}

	total := 0
	r.writePlainHeader("Resolution cache")
	for _, source := range []models.ResolutionSource{models.SourceAPI, models.SourceIndex} {
		r.writePlain("%-6s %d\n", source, counts[source])
		total += counts[source]
	}
	return r.writePlain("total  %d\n", total)
}

// CacheClear removes every cached resolution.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repositories.NewResolutionRepository(db).Clear(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("resolution cache cleared", "path", config.Database.Path)
	return r.writePlain("✓ Removed %d cached resolutions\n", n)
}
