package main

import (
	"context"

	"github.com/aretw0/bookflow/internal/cli"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQLite schema",
	Long:  `Creates or upgrades the SQLite bookstore database at store.path, optionally loading the seed catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cfg.Store
		if cmd.Flags().Changed("path") {
			store.Path, _ = cmd.Flags().GetString("path")
		}
		if cmd.Flags().Changed("seed-file") {
			store.SeedFile, _ = cmd.Flags().GetString("seed-file")
		}
		seed, _ := cmd.Flags().GetBool("seed")
		down, _ := cmd.Flags().GetBool("down")

		return cli.RunMigrate(context.Background(), store, cli.MigrateOptions{Seed: seed, Down: down}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("path", "bookflow.db", "SQLite database file")
	migrateCmd.Flags().Bool("seed", false, "Upsert the seed catalog after migrating")
	migrateCmd.Flags().String("seed-file", "", "YAML catalog to seed instead of the bundled one")
	migrateCmd.Flags().Bool("down", false, "Revert every migration")
}
