// Package cli implements the jsonview command-line interface.
//
// # Commands
//
//   - view: browse a document (or the library) in the tree table TUI
//   - import, list, export, rm: manage the document library
//   - inspect: report the shape of a document and its column drift
//   - status: library totals, growth and daemon metrics
//   - daemon: run the ingestion daemon
//   - config: write or locate the config file
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is attached to the command context; see loggerFromContext.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/jsonview/internal/config"
	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/source"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "jsonview",
		Short:        "jsonview browses nested JSON documents as expandable tables",
		Long:         `jsonview renders nested JSON and YAML documents as recursive tree tables, keeps a local library of documents and ingests files dropped into a watch directory.`,
		Version:      Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(versionTemplate())
	c.setup(root)

	root.AddCommand(c.viewCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.rmCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.daemonCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// ViewerCommand is the root of the standalone viewer binary.
func (c *CLI) ViewerCommand() *cobra.Command {
	cmd := c.viewCommand()
	cmd.Use = "jsonview-tui [ref]"
	cmd.Version = Version
	cmd.SilenceUsage = true
	cmd.SetVersionTemplate(versionTemplate())
	c.setup(cmd)
	return cmd
}

// DaemonCommand is the root of the standalone daemon binary.
func (c *CLI) DaemonCommand() *cobra.Command {
	cmd := c.daemonCommand()
	cmd.Use = "jsonview-daemon"
	cmd.Version = Version
	cmd.SilenceUsage = true
	cmd.SetVersionTemplate(versionTemplate())
	c.setup(cmd)
	return cmd
}

// setup adds the global flags to root and loads the config before any
// command runs.
func (c *CLI) setup(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/jsonview/config.toml)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.String("db", "", "document library path")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(c.configPath, cmd.Flags())
		if err != nil {
			return err
		}
		c.Config = cfg

		level := LogInfo
		if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
			level = lvl
		}
		if c.verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)

		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		c.Logger.Debug("config loaded", "path", cfg.Path, "db", cfg.DBPath)
		return nil
	}
}

// openStore opens the document library, creating its directory.
func (c *CLI) openStore() (*database.DBService, error) {
	path := c.Config.DBPath
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating library directory: %w", err)
		}
	}
	store, err := database.NewDBService(path)
	if err != nil {
		return nil, fmt.Errorf("opening library %s: %w", path, err)
	}
	return store, nil
}

// sourceOptions builds the loading options from the config.
func (c *CLI) sourceOptions(cmd *cobra.Command, store database.Store) source.Options {
	opts := source.Options{
		Title:   c.Config.DefaultTitle,
		Timeout: c.Config.FetchTimeout,
		Retries: c.Config.FetchRetries,
		Stdin:   cmd.InOrStdin(),
		Logger:  loggerFromContext(cmd.Context()),
	}
	if store != nil {
		opts.Store = store
	}
	return opts
}
