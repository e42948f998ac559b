package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/jsonview/internal/analysis"
	"github.com/Mr-Dark-debug/jsonview/internal/source"
	"github.com/Mr-Dark-debug/jsonview/pkg/jsonutil"
)

// Output formats for inspect.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatTable    = "table"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <ref>",
		Short: "Report the shape and column drift of a document",
		Long: `Report the shape and column drift of a document.

Columns of a group come from its first record. Fields other records carry
beyond those columns are never displayed; columns they lack render blank.
inspect lists both.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatMarkdown, formatJSON, formatTable:
			default:
				return fmt.Errorf("unknown format %q (want markdown, json or table)", format)
			}

			report, err := c.inspect(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				s, err := jsonutil.PrettyValue(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
			case formatTable:
				fmt.Fprint(out, reportTables(report))
			default:
				fmt.Fprint(out, analysis.FormatReport(report))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatMarkdown, "output format: markdown, json, table")
	cmd.Flags().String("title", "", "title for documents that are a bare array")

	return cmd
}

// inspect analyzes a library document through the Analyzer, so stored
// counts are included, and any other reference directly.
func (c *CLI) inspect(cmd *cobra.Command, ref string) (*analysis.Report, error) {
	if strings.HasPrefix(ref, source.StorePrefix) {
		store, err := c.openStore()
		if err != nil {
			return nil, err
		}
		defer store.Close()

		report, err := analysis.NewAnalyzer(store).AnalyzeDocument(strings.TrimPrefix(ref, source.StorePrefix))
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", ref, err)
		}
		return report, nil
	}

	doc, err := source.Load(cmd.Context(), ref, c.sourceOptions(cmd, nil))
	if err != nil {
		return nil, err
	}
	report := analysis.Analyze(doc.Tree)
	report.Name = source.Name(ref)
	report.Warnings = append(report.Warnings, doc.Warnings...)
	for _, t := range doc.Ignored {
		report.Warnings = append(report.Warnings, "ignored extra title "+strconv.Quote(t))
	}
	return report, nil
}

// reportTables renders a report as terminal tables.
func reportTables(r *analysis.Report) string {
	var b strings.Builder

	name := r.Title
	if r.Name != "" {
		name = r.Name + " (" + r.Title + ")"
	}
	fmt.Fprintf(&b, "%s\n%s\n\n", styleTitle.Render(name),
		styleDim.Render(fmt.Sprintf("%d records · %d groups · depth %d",
			r.Stats.Records, r.Stats.Groups, r.Stats.Depth)))

	groups := make([][]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		groups = append(groups, []string{
			g.Path, strconv.Itoa(g.Depth), strconv.Itoa(g.Records), strings.Join(g.Columns, ", "),
		})
	}
	b.WriteString(renderTable([]string{"Group", "Depth", "Records", "Columns"}, groups))
	b.WriteString("\n")

	if len(r.Drift) > 0 {
		drift := make([][]string, 0, len(r.Drift))
		for _, d := range r.Drift {
			drift = append(drift, []string{
				d.Path, strconv.Itoa(d.Row), strings.Join(d.Hidden, ", "), strings.Join(d.Missing, ", "), d.Severity,
			})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"Group", "Row", "Hidden", "Missing", "Severity"}, drift))
		b.WriteString("\n")
	}

	if len(r.Outliers) > 0 {
		outliers := make([][]string, 0, len(r.Outliers))
		for _, o := range r.Outliers {
			outliers = append(outliers, []string{
				o.Path, strconv.Itoa(o.Records), fmt.Sprintf("%.2f", o.ZScore), o.Severity,
			})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"Group", "Records", "Z", "Severity"}, outliers))
		b.WriteString("\n")
	}

	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "%s %s\n", styleIconWarning.Render(iconWarning), styleWarning.Render(w))
	}
	return b.String()
}
