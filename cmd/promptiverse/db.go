package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/store"
)

var dbPath string

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the SQLite database",
	Long: `Manage the Promptiverse SQLite database.

The database holds the prompt library, favorites, saved API keys, wizard
sessions and the provider call log. It lives at
~/.promptiverse/data/promptiverse.db unless storage.path or --db says otherwise.

Examples:
  promptiverse db path      # Print the database location
  promptiverse db migrate   # Create or upgrade the schema
  promptiverse db status    # Schema version and health`,
}

// resolveDBPath picks --db, then storage.path from config, then the home default.
func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	h, err := getHome()
	if err != nil {
		return "", err
	}
	mgr, err := loadConfig(h)
	if err != nil {
		return "", err
	}
	if p := mgr.Get().Storage.Path; p != "" {
		return p, nil
	}
	if err := h.EnsureExists(); err != nil {
		return "", err
	}
	return h.DatabasePath(), nil
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the database location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Create or upgrade the database schema.

The server migrates on start; this is for preparing a database ahead of time.
Migrations are idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path, err := resolveDBPath()
		if err != nil {
			return err
		}

		db, err := store.Open(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		v, err := db.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database at %s is at schema v%d\n", path, v)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database health and schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path, err := resolveDBPath()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Path: %s\n", path)

		db, err := store.Open(ctx, path)
		if err != nil {
			fmt.Fprintf(out, "Health: unhealthy (%v)\n", err)
			return nil
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			fmt.Fprintf(out, "Health: unhealthy (%v)\n", err)
			return nil
		}
		fmt.Fprintln(out, "Health: healthy")
		v, _ := db.SchemaVersion(ctx)
		fmt.Fprintf(out, "Schema: v%d\n", v)

		cats, err := store.NewCategoryStore(db).List(ctx)
		if err == nil {
			fmt.Fprintf(out, "Categories: %d\n", len(cats))
		}
		return nil
	},
}

func init() {
	dbCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")

	dbCmd.AddCommand(dbPathCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	rootCmd.AddCommand(dbCmd)
}
