// Package cli implements the danmuget command-line interface.
//
// This package provides commands for searching the comment API, fetching
// comment feeds as ASS subtitles, converting local XML feeds, and managing
// configuration and batch jobs. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - search: Look up a title and list its episodes per platform
//   - fetch: Download comment feeds and convert them to ASS subtitles
//   - convert: Convert local XML feeds without touching the network
//   - config: Inspect or reset the settings file
//   - jobs: Inspect, cancel or delete persisted batch jobs
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/danmuget/danmuget/internal/config"
	"github.com/danmuget/danmuget/pkg/batch"
	"github.com/danmuget/danmuget/pkg/batch/state"
	"github.com/danmuget/danmuget/pkg/buildinfo"
	"github.com/danmuget/danmuget/pkg/cache"
	"github.com/danmuget/danmuget/pkg/integrations/dandan"
	"github.com/danmuget/danmuget/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "danmuget"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config location when non-empty.
	ConfigPath string

	// NoCache disables the on-disk search response cache.
	NoCache bool
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
		Short:        "danmuget downloads danmaku comments as ASS subtitles",
		Long:         `danmuget searches the dandanplay-compatible comment API, downloads danmaku feeds for whole seasons and converts them into ASS subtitle files with scrolling and pinned comment lanes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "path to the config file")
	root.PersistentFlags().BoolVar(&c.NoCache, "no-cache", false, "skip the search response cache")

	root.AddCommand(c.searchCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.jobsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig resolves the config path and loads settings over defaults.
func (c *CLI) loadConfig() (config.Config, string, error) {
	path := c.ConfigPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, "", err
		}
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// newClient builds the API client for the configured endpoint, with the
// search cache attached unless --no-cache is set. A broken cache setup
// degrades to no caching rather than failing the command.
func (c *CLI) newClient(cfg config.Config) *dandan.Client {
	client := dandan.NewClient(cfg.BaseURL)
	if c.NoCache {
		return client
	}
	dir, err := cacheDir()
	if err != nil {
		return client
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		return client
	}
	return client.WithCache(store)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/danmuget/).
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

// openStore opens the persistent job database.
func (c *CLI) openStore() (*state.Store, error) {
	path, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	return state.Open(path)
}

// pipelineOptions derives conversion options from the config, with the
// CLI logger attached.
func (c *CLI) pipelineOptions(cfg config.Config) pipeline.Options {
	opts := cfg.PipelineOptions()
	opts.Logger = c.Logger
	return opts
}

// writeArtifact writes one output file, creating parent directories.
func writeArtifact(dir string, a batch.Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
