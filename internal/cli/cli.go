// Package cli implements the formulascope command-line interface.
//
// The commands inspect calculation formulas: how they parse, which inputs
// they depend on, how sensitive they are to each input, and what their
// expression graph looks like. Formula maps come from a YAML/TOML/JSON file,
// from a stored solution, or from --formula flags.
//
// # Commands
//
//   - parse: tokenize and parse one formula
//   - tree: print the dependency tree of a formula
//   - diff: partial derivatives of a formula
//   - layout: compute the expression graph as JSON
//   - render: render the expression graph to SVG or DOT
//   - explore: interactive expression graph explorer
//   - solutions: list, show and import stored solutions
//   - serve: run the HTTP API
//   - cache: manage the local result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/formulascope/pkg/analysis"
	"github.com/matzehuels/formulascope/pkg/buildinfo"
	"github.com/matzehuels/formulascope/pkg/cache"
	"github.com/matzehuels/formulascope/pkg/config"
	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/solution"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "formulascope"

	// configFile is the config file name inside the config directory.
	configFile = "config.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath overrides the default config file location.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "formulascope inspects calculation formulas and their dependencies",
		Long:         `formulascope parses the calculation formulas of solution configurations, builds their dependency trees, differentiates them with respect to their inputs, and lays out their expression graphs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	// A path set before the tree is built stays the default.
	root.PersistentFlags().StringVar(&c.configPath, "config", c.configPath, "config file (default: "+displayConfigPath()+")")

	root.AddCommand(c.parseCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.diffCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.solutionsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig loads the --config file, or the default one if it exists.
func (c *CLI) loadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		if p, err := configPath(); err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	c.Logger.Debug("loaded config", "path", path, "store", cfg.Store.Backend, "cache", cfg.Cache.Backend)
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates an analysis runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*analysis.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	ch, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	return analysis.NewRunner(ch, nil, c.Logger), nil
}

// newCache opens the configured cache backend. A file cache without a
// configured directory lives in the user cache directory.
func newCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: cfg.Prefix,
		})
	}
	dir, err := fileCacheDir(cfg)
	if err != nil {
		loggerFromContext(ctx).Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore opens the configured solution store.
func newStore(ctx context.Context, cfg config.Store) (solution.Store, error) {
	switch cfg.Backend {
	case config.StoreSQLite:
		return solution.NewSQLiteStore(solution.SQLiteStoreConfig{DSN: cfg.SQLitePath})
	case config.StoreFile:
		return solution.LoadFile(cfg.FixturePath)
	case config.StoreMongo:
		return solution.NewMongoStore(ctx, solution.MongoOptions{
			URI:      cfg.MongoURI,
			Database: cfg.Database,
			Timeout:  cfg.Timeout.Duration,
		})
	}
	return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
}

// openStore loads the config and opens its store.
func (c *CLI) openStore(ctx context.Context) (solution.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return newStore(ctx, cfg.Store)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/formulascope/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configPath returns the config file path using XDG standard
// (~/.config/formulascope/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, configFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, configFile), nil
}

func displayConfigPath() string {
	return filepath.Join("~", ".config", appName, configFile)
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{analysis.FormatSVG}
	}
	return splitList(s)
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
