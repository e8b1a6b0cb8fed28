package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/config"
	"github.com/jackzampolin/promptiverse/internal/home"
	"github.com/jackzampolin/promptiverse/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	userID       string
)

var rootCmd = &cobra.Command{
	Use:   "promptiverse",
	Short: "AI-assisted prompt builder with multi-provider fallback",
	Long: `Promptiverse helps you write prompts for AI models.

It includes:
  - A four-step wizard (category, tone and audience, details, preview)
  - Suggestions from OpenAI, Groq or Gemini, with offline fallbacks
  - Final prompt generation that falls back across providers
  - A prompt library with tags, favorites and public sharing`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.promptiverse/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "promptiverse home directory (default: $PROMPTIVERSE_HOME or ~/.promptiverse)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&userID, "user", "", "user to act as when calling the server (default: local)",
	)

	// Set output format and user before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
		api.SetUser(userID)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from --log-level.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})), nil
}

func getHome() (*home.Dir, error) {
	return home.New(homeDir)
}

// loadConfig reads --config, falling back to the home directory's file.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" && h != nil && h.ConfigExists() {
		path = h.ConfigPath()
	}
	return config.NewManager(path)
}
