package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/source"
	"github.com/Mr-Dark-debug/jsonview/internal/tui"
)

type viewOptions struct {
	watch     bool
	exportDir string
}

// viewCommand creates the view command.
func (c *CLI) viewCommand() *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "view [ref]",
		Short: "Browse a document in the tree table",
		Long: `Browse a document in the tree table.

ref is a file, an http(s) URL, "-" for stdin or store:<name> for a library
document. Without ref the library is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return c.runView(cmd, ref, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the file when it changes")
	cmd.Flags().StringVar(&opts.exportDir, "export-dir", ".", "directory the export key writes to")
	cmd.Flags().String("title", "", "title for documents that are a bare array")
	cmd.Flags().String("log-file", "", "log file (the terminal belongs to the viewer)")
	cmd.Flags().Bool("confirm", true, "ask before removing a row")

	return cmd
}

func (c *CLI) runView(cmd *cobra.Command, ref string, opts viewOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger, closeLog := c.fileLogger()
	defer closeLog()

	var reloads <-chan struct{}
	if opts.watch {
		ch, err := c.watchRef(ctx, ref, logger)
		if err != nil {
			return err
		}
		reloads = ch
	}

	var store database.Store
	if s, err := c.openStore(); err != nil {
		if ref == "" || strings.HasPrefix(ref, source.StorePrefix) {
			return err
		}
		logger.Warn("library unavailable", "err", err)
	} else {
		defer s.Close()
		store = s
	}

	srcOpts := c.sourceOptions(cmd, store)
	srcOpts.Logger = logger
	progOpts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	}
	var displayName string
	if ref == "-" {
		// Spool stdin so reload works, and read keys from the terminal.
		path, err := spoolStdin(ctx, srcOpts)
		if err != nil {
			return err
		}
		defer os.Remove(path)
		ref = path
		displayName = source.Name("-")
		progOpts = append(progOpts, tea.WithInputTTY())
	}

	modelOpts := []tui.Option{
		tui.WithSourceOptions(srcOpts),
		tui.WithConfirmRemoval(c.Config.ConfirmRemoval),
		tui.WithLogger(logger),
		tui.WithExportDir(opts.exportDir),
	}
	if ref != "" {
		modelOpts = append(modelOpts, tui.WithRef(ref))
	}
	if displayName != "" {
		modelOpts = append(modelOpts, tui.WithDisplayName(displayName))
	}
	if reloads != nil {
		modelOpts = append(modelOpts, tui.WithReloads(reloads))
	}

	p := tea.NewProgram(tui.NewModel(store, modelOpts...), progOpts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}

func spoolStdin(ctx context.Context, opts source.Options) (string, error) {
	raw, err := source.Read(ctx, "-", opts)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "stdin-*.json")
	if err != nil {
		return "", fmt.Errorf("spooling stdin: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("spooling stdin: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("spooling stdin: %w", err)
	}
	return f.Name(), nil
}

// watchRef signals on the returned channel whenever the file behind ref
// settles after a change. Signals are dropped while one is pending.
func (c *CLI) watchRef(ctx context.Context, ref string, logger *log.Logger) (<-chan struct{}, error) {
	if ref == "" || ref == "-" || source.IsURL(ref) || strings.HasPrefix(ref, source.StorePrefix) {
		return nil, fmt.Errorf("--watch needs a file reference, got %q", ref)
	}
	ch := make(chan struct{}, 1)
	go func() {
		err := source.Watch(ctx, ref, source.DefaultDebounce, func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("watching document", "path", ref, "err", err)
		}
	}()
	return ch, nil
}

// fileLogger returns the viewer logger. It writes to the configured log
// file and discards output when the file cannot be opened.
func (c *CLI) fileLogger() (*log.Logger, func()) {
	level := c.Logger.GetLevel()
	path := c.Config.LogFile
	if path == "" {
		return newLogger(io.Discard, level), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newLogger(io.Discard, level), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return newLogger(io.Discard, level), func() {}
	}
	return newLogger(f, level), func() { f.Close() }
}
