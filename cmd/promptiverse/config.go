package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the Promptiverse configuration file.

The config lives at ~/.promptiverse/config.yaml unless --config is given.
API keys may reference environment variables with ${ENV_VAR} syntax, and
any setting can be overridden with PROMPTIVERSE_<SECTION>_<KEY>, e.g.
PROMPTIVERSE_SERVER_PORT=9090.

Examples:
  promptiverse config init    # Write the default config
  promptiverse config show    # Print the effective config
  promptiverse config path    # Print which file is in use`,
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			h, err := getHome()
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and
environment overrides are applied. API keys are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}

		cfg := *mgr.Get()
		masked := make(map[string]string, len(cfg.APIKeys))
		for name := range cfg.APIKeys {
			masked[name] = maskKey(cfg.ResolveAPIKey(name))
		}
		cfg.APIKeys = masked
		return api.Output(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		if f := mgr.ConfigFile(); f != "" {
			fmt.Fprintln(cmd.OutOrStdout(), f)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "none (defaults); 'promptiverse config init' writes %s\n", h.ConfigPath())
		return nil
	},
}

// maskKey hides all but the last four characters of a resolved key.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
