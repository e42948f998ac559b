package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/jsonview/internal/analysis"
	"github.com/Mr-Dark-debug/jsonview/internal/ingestion"
	"github.com/Mr-Dark-debug/jsonview/pkg/timeutil"
)

const statusProbeTimeout = 2 * time.Second

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	var growthWindow int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show library totals, growth and daemon metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.GetLibraryStats()
			if err != nil {
				return err
			}
			growth, err := analysis.NewAnalyzer(store).LibraryGrowth(growthWindow)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printHeading(out, "Library")
			printKeyValue(out, "Path", c.Config.DBPath)
			printKeyValue(out, "Documents", strconv.Itoa(stats.Documents))
			printKeyValue(out, "Records", strconv.Itoa(stats.Records))
			printKeyValue(out, "Size", timeutil.FormatBytes(stats.BodyBytes))
			if stats.Largest != "" {
				printKeyValue(out, "Largest", stats.Largest)
			}
			if stats.LastImportAt > 0 {
				printKeyValue(out, "Last import", timeutil.RelativeTime(stats.LastImportAt))
			}
			if stats.PendingWrites > 0 {
				printWarning(out, "%d staged writes not yet committed", stats.PendingWrites)
			}

			if growth.Documents > 1 {
				fmt.Fprintln(out)
				printHeading(out, "Growth")
				printKeyValue(out, "Records/hour", fmt.Sprintf("%.1f", growth.RecordsPerHour))
				printKeyValue(out, "Fit (R²)", fmt.Sprintf("%.2f", growth.RSquared))
				printKeyValue(out, "In 24h", strconv.Itoa(growth.Prediction24h))
			}

			fmt.Fprintln(out)
			printHeading(out, "Daemon")
			addr := c.Config.Daemon.MetricsAddr
			if addr == "" {
				printInfo(out, "metrics disabled")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), statusProbeTimeout)
			defer cancel()
			m, err := ingestion.FetchMetrics(ctx, nil, addr)
			if err != nil {
				loggerFromContext(cmd.Context()).Debug("daemon probe failed", "err", err)
				printInfo(out, "not running (%s)", addr)
				return nil
			}
			printKeyValue(out, "Address", addr)
			printKeyValue(out, "Uptime", timeutil.FormatDuration(time.Duration(m.Uptime)*time.Second))
			printKeyValue(out, "Ingested", fmt.Sprintf("%d documents, %d records", m.DocumentsIngested, m.RecordsIngested))
			printKeyValue(out, "Batches", strconv.FormatInt(m.BatchesCommitted, 10))
			if m.ErrorCount > 0 {
				printError(out, "%d files failed to ingest", m.ErrorCount)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&growthWindow, "growth-window", 200, "recent documents used for the growth fit")

	return cmd
}
