package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/server"
)

var (
	serveHost string
	servePort string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Promptiverse server",
	Long: `Start the Promptiverse HTTP server.

The server opens the SQLite database (default ~/.promptiverse/data/promptiverse.db),
connects the response cache and serves the API until Ctrl+C or SIGTERM.
Edits to the config file are picked up without a restart.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes the database)
  - /api/*  - Suggestions, prompts, wizard sessions, credentials

Examples:
  promptiverse serve                    # Start on default port 8080
  promptiverse serve --port 3000        # Start on custom port
  promptiverse serve --host 0.0.0.0     # Bind to all interfaces
  promptiverse serve --db :memory:      # Keep nothing on disk`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger()
		if err != nil {
			return err
		}

		// Get home directory
		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgMgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		if f := cfgMgr.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
			cfgMgr.WatchConfig()
		} else {
			logger.Info("no config file found, using defaults (see 'promptiverse config init')")
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			DatabasePath:  serveDB,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config: 127.0.0.1)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config: 8080)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (default from config or home directory)")

	rootCmd.AddCommand(serveCmd)
}
