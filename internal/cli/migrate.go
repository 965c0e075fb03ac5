package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/bookflow/internal/config"
	"github.com/aretw0/bookflow/pkg/adapters/sqlite"
)

// MigrateOptions configures RunMigrate.
type MigrateOptions struct {
	Seed bool
	Down bool
}

// RunMigrate applies (or with Down reverts) the SQLite schema at cfg.Path and
// optionally upserts the seed catalog.
func RunMigrate(ctx context.Context, cfg config.StoreConfig, opts MigrateOptions, out io.Writer) error {
	store, err := sqlite.Open(ctx, cfg.Path)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if opts.Down {
		if err := sqlite.RollbackAll(ctx, store.DB()); err != nil {
			return err
		}
		printSystemMessage(out, "Reverted all migrations in %s", cfg.Path)
		return nil
	}

	if err := sqlite.ApplyMigrations(ctx, store.DB()); err != nil {
		return err
	}
	printSystemMessage(out, "Schema up to date in %s", cfg.Path)

	if opts.Seed {
		books, err := seedBooks(cfg)
		if err != nil {
			return fmt.Errorf("failed to load seed catalog: %w", err)
		}
		if err := store.Seed(ctx, books); err != nil {
			return err
		}
		printSystemMessage(out, "Seeded %d books", len(books))
	}
	return nil
}
