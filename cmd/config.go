package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display or create the configuration file",
	Long: `Display the effective configuration: the config file merged with
AGILEPLUS_* environment variables and defaults.

Configuration file location:
  ~/.config/agileplus/config.toml          Linux
  ~/Library/Application Support/agileplus  macOS
  %AppData%\agileplus\config.toml          Windows`,
	Run: func(cmd *cobra.Command, args []string) {
		showConfig()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		initConfig(force)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.Path()
}

func showConfig() {
	path, err := configPath()
	if err != nil {
		fail("Failed to determine config file location", err)
		return
	}
	exists := false
	if _, err := os.Stat(path); err == nil {
		exists = true
	}
	cfg, err := deps.LoadConfig()
	if err != nil {
		fail("Failed to load configuration", err)
		return
	}

	_, _ = fmt.Fprintf(deps.Stdout, "Config file:     %s\n", path)
	if !exists {
		_, _ = fmt.Fprintln(deps.Stdout, "                 (not found, using defaults)")
	}
	_, _ = fmt.Fprintln(deps.Stdout)
	_, _ = fmt.Fprintf(deps.Stdout, "User:            %s\n", cfg.UserID)
	_, _ = fmt.Fprintf(deps.Stdout, "Timezone:        %s\n", cfg.Timezone)
	_, _ = fmt.Fprintf(deps.Stdout, "Backend:         %s\n", cfg.Backend.Driver)
	_, _ = fmt.Fprintf(deps.Stdout, "Backend DSN:     %s\n", cfg.Backend.DSN)
	if cfg.Backend.SchemaVersion > 0 {
		_, _ = fmt.Fprintf(deps.Stdout, "Schema version:  %d\n", cfg.Backend.SchemaVersion)
	}
	_, _ = fmt.Fprintf(deps.Stdout, "Local cache:     %s\n", cfg.Cache.Path)
	_, _ = fmt.Fprintf(deps.Stdout, "Log level:       %s\n", cfg.Log.Level)
	_, _ = fmt.Fprintf(deps.Stdout, "Log file:        %s\n", cfg.Log.File)
	_, _ = fmt.Fprintf(deps.Stdout, "Web address:     %s\n", cfg.Web.Addr)

	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintln(deps.Stdout)
		_, _ = fmt.Fprintf(deps.Stdout, "Warning: %v\n", err)
	}
}

func initConfig(force bool) {
	path, err := configPath()
	if err != nil {
		fail("Failed to determine config file location", err)
		return
	}
	if _, err := os.Stat(path); err == nil && !force {
		fail(fmt.Sprintf("Config file %s already exists", path), errors.New("use --force to overwrite it"))
		return
	}
	if err := config.Save(path, config.Default()); err != nil {
		fail("Failed to write config file", err)
		return
	}
	_, _ = fmt.Fprintf(deps.Stdout, "Wrote %s\n", path)
}
