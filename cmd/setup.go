package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a configuration file when none exists, initializes the token database and prunes
// tokens that can no longer be used.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
			r.writePlain("✓ Created %s, add your Spotify and YouTube credentials there\n", r.configPath)
		} else {
			r.logger.Debug("config file exists", "path", r.configPath)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	store, err := r.tokenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	pruned, err := store.PruneExpired(time.Now())
	if err != nil {
		return fmt.Errorf("failed to prune tokens: %w", err)
	}
	if pruned > 0 {
		r.logger.Info("removed expired tokens", "count", pruned)
	}

	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}
