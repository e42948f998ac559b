package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/jsonview/internal/ingestion"
)

// daemonCommand creates the daemon command.
func (c *CLI) daemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Ingest documents dropped into a watch directory",
		Long: `Ingest documents dropped into a watch directory.

Every .json, .yaml or .yml file written to the watch directory is decoded and
stored in the library under its base name. Health and metrics are served on
--metrics-addr. The daemon stops on interrupt, flushing buffered documents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := ingestion.FromConfig(c.Config)
			d := ingestion.NewDaemonIngester(cfg, store, logger)
			if err := d.Start(ctx); err != nil {
				return fmt.Errorf("starting daemon: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printHeading(out, "  JSONVIEW DAEMON")
			fmt.Fprintln(out)
			printKeyValue(out, "  Watch", cfg.WatchDir)
			printKeyValue(out, "  Library", store.Path())
			if addr := d.MetricsAddr(); addr != "" {
				printKeyValue(out, "  Metrics", "http://"+addr+"/metrics")
			}
			fmt.Fprintln(out)
			printDetail(out, "Press Ctrl+C to stop.")

			<-ctx.Done()

			printInfo(out, "Shutting down")
			if err := d.Stop(); err != nil {
				printError(out, "stopping daemon: %v", err)
				return err
			}
			m := d.Metrics()
			printSuccess(out, "Stopped after %d documents, %d records", m.DocumentsIngested, m.RecordsIngested)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("watch-dir", "", "drop directory to watch")
	f.String("metrics-addr", "", "HTTP address for health and metrics (empty disables)")
	f.Duration("flush-interval", 0, "maximum time a document waits before it is stored")
	f.Int("batch-size", 0, "maximum documents per transaction")

	return cmd
}
