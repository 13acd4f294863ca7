package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harvestguard/harvestguard-go/internal/config"
	"github.com/harvestguard/harvestguard-go/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE,
// and resolvedCfgPath the file it came from (watched in serve mode).
var (
	resolvedCfg     *config.Config
	resolvedCfgPath string
)

// httpClientTimeout bounds every outbound request: the SMS gateway, the
// weather/shelf-life service, and the advisory classifier.
const httpClientTimeout = 30 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "harvestguard",
		Short:   "Crop spoilage risk monitoring daemon",
		Long:    "Background engine that tracks harvest batches, watches weather-driven spoilage risk, and dispatches SMS alerts to farmers.",
		Version: version,
		// Cobra's default error/usage printing is handled in main instead.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newBatchesCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// (defaults, config file, environment) with the --config flag taking
// precedence over HARVESTGUARD_CONFIG for the file location.
func loadConfig() error {
	env := config.ReadEnvOverrides()
	if flagConfigPath != "" {
		env.ConfigPath = flagConfigPath
	}

	cfg, path, err := config.Resolve(env)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg
	resolvedCfgPath = path

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. Interactive terminals
// get the text handler; everything else gets JSON for log collectors.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// openStore opens the state database at the configured path. Callers own
// the returned store and must Close it.
func openStore(logger *slog.Logger) (*store.SQLiteStore, error) {
	dbPath := resolvedCfg.Storage.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}

	if dbPath == "" {
		return nil, fmt.Errorf("no database path: set storage.db_path or HOME")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return store.NewStore(dbPath, logger)
}
