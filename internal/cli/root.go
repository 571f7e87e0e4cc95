// Package cli implements the devsup command tree.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/devsup/internal/config"
	"github.com/tessro/devsup/internal/logging"
	"github.com/tessro/devsup/internal/paths"
)

// Global flag values.
var (
	devsupDir  string
	configPath string
	logLevel   string
	verbose    bool
)

// cfg is the loaded configuration. It may be nil; every getter handles that.
var cfg *config.Config

var logCleanup func()

var rootCmd = &cobra.Command{
	Use:   "devsup",
	Short: "Development server supervisor",
	Long:  "devsup runs development servers, captures their output, and exposes them to coding agents over MCP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set DEVSUP_DIR so every path helper sees the override.
		if devsupDir != "" {
			if err := os.Setenv(paths.EnvDir, devsupDir); err != nil {
				return err
			}
		}

		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	},
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		c, err := config.LoadFromPath(configPath)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return c, nil
	}
	return config.Load()
}

func setupLogging() error {
	level := logging.ParseLevel(cfg.GetLogLevel())
	if logLevel != "" {
		level = logging.ParseLevel(logLevel)
	}

	var (
		cleanup func()
		err     error
	)
	if verbose {
		cleanup, err = logging.SetupMulti(cfg.GetLogFile(), os.Stderr, level)
	} else {
		cleanup, err = logging.Setup(cfg.GetLogFile(), level)
	}
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	logCleanup = cleanup
	slog.Debug("devsup: starting", "command", os.Args[1:])
	return nil
}

func init() {
	rootCmd.SilenceUsage = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&devsupDir, "devsup-dir", "", "base directory for devsup data (overrides ~/.devsup)")
	flags.StringVar(&configPath, "config", "", "config file path (TOML, or YAML by extension)")
	flags.StringVar(&logLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	flags.BoolVarP(&verbose, "verbose", "v", false, "also write diagnostic logs to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an error returned by Execute to a process exit status. A
// process run in the foreground passes its own exit code through.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) && exitErr.status.Code != nil && *exitErr.status.Code > 0 {
		return *exitErr.status.Code
	}
	return 1
}
