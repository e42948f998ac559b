// Package analysis inspects tree documents without rendering them.
//
// Key capabilities:
//   - Per-level group and record counts
//   - Column drift: fields a record carries that its table never shows,
//     and columns a record leaves blank
//   - Group size outliers via Z-score
//   - Library growth via linear regression over import times
package analysis

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/tree"
	"github.com/Mr-Dark-debug/jsonview/pkg/timeutil"
)

// Analyzer runs analyses over documents in a store.
type Analyzer struct {
	store database.Store
}

// NewAnalyzer creates an analyzer backed by the given store.
func NewAnalyzer(store database.Store) *Analyzer {
	return &Analyzer{store: store}
}

// LevelStats counts groups and records at one nesting depth.
type LevelStats struct {
	Depth   int `json:"depth"`
	Groups  int `json:"groups"`
	Records int `json:"records"`
}

// GroupSummary describes one group of the tree.
type GroupSummary struct {
	Path    string   `json:"path"`
	Title   string   `json:"title"`
	Depth   int      `json:"depth"`
	Columns []string `json:"columns"`
	Records int      `json:"records"`
}

// DriftFinding reports a record whose fields disagree with the columns of
// its group. Columns come from the group's first record, so Hidden fields
// are never displayed and Missing columns render blank.
type DriftFinding struct {
	Path     string   `json:"path"`
	Row      int      `json:"row"`
	Hidden   []string `json:"hidden,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	Severity string   `json:"severity"` // "low" (blank cells) or "medium" (hidden data)
}

// SizeOutlier is a group with abnormally many records compared with the
// other groups of the tree.
type SizeOutlier struct {
	Path     string  `json:"path"`
	Records  int     `json:"records"`
	ZScore   float64 `json:"z_score"`
	Severity string  `json:"severity"` // "low", "medium", "high"
}

// Report is the complete output of `jsonview inspect`.
type Report struct {
	Name        string                  `json:"name,omitempty"`
	Title       string                  `json:"title"`
	GeneratedAt string                  `json:"generated_at"`
	Stats       tree.Stats              `json:"stats"`
	Document    *database.DocumentStats `json:"document,omitempty"`
	Levels      []LevelStats            `json:"levels"`
	Groups      []GroupSummary          `json:"groups"`
	Drift       []DriftFinding          `json:"drift"`
	Outliers    []SizeOutlier           `json:"outliers"`
	Warnings    []string                `json:"warnings"`
}

// Analyze runs every tree pass over t.
func Analyze(t tree.Tree) *Report {
	r := &Report{
		Title:       t.Title,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Stats:       tree.Measure(t),
		Levels:      []LevelStats{},
		Groups:      []GroupSummary{},
		Drift:       []DriftFinding{},
	}

	tree.Walk(t, func(v tree.Visit) bool {
		for len(r.Levels) <= v.Depth {
			r.Levels = append(r.Levels, LevelStats{Depth: len(r.Levels)})
		}
		r.Levels[v.Depth].Groups++
		r.Levels[v.Depth].Records += len(v.Tree.Group)

		r.Groups = append(r.Groups, GroupSummary{
			Path:    v.Path,
			Title:   v.Tree.Title,
			Depth:   v.Depth,
			Columns: v.Tree.Columns(),
			Records: len(v.Tree.Group),
		})
		r.Drift = append(r.Drift, columnDrift(v)...)
		return true
	})

	r.Outliers = detectSizeOutliers(r.Groups)

	hidden := 0
	for _, d := range r.Drift {
		hidden += len(d.Hidden)
	}
	if hidden > 0 {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("%d field(s) are not in their table's columns and will not be displayed", hidden))
	}
	for _, o := range r.Outliers {
		if o.Severity == "high" {
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("group %s holds %d records (Z-score: %.2f)", o.Path, o.Records, o.ZScore))
		}
	}
	return r
}

// AnalyzeDocument loads a stored document and analyzes it.
func (a *Analyzer) AnalyzeDocument(idOrName string) (*Report, error) {
	doc, err := a.store.GetDocument(idOrName)
	if err != nil {
		return nil, fmt.Errorf("loading document for analysis: %w", err)
	}
	t, err := doc.Tree()
	if err != nil {
		return nil, err
	}
	st, err := a.store.GetDocumentStats(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("gathering document stats: %w", err)
	}

	r := Analyze(t)
	r.Name = doc.Name
	r.Document = st
	return r, nil
}

func columnDrift(v tree.Visit) []DriftFinding {
	if len(v.Tree.Group) < 2 {
		return nil
	}
	columns := v.Tree.Columns()
	var out []DriftFinding
	for i, rec := range v.Tree.Group[1:] {
		keys := rec.Data.Keys()
		var hidden, missing []string
		for _, k := range keys {
			if !slices.Contains(columns, k) {
				hidden = append(hidden, k)
			}
		}
		for _, c := range columns {
			if !slices.Contains(keys, c) {
				missing = append(missing, c)
			}
		}
		if len(hidden) == 0 && len(missing) == 0 {
			continue
		}
		severity := "low"
		if len(hidden) > 0 {
			severity = "medium"
		}
		out = append(out, DriftFinding{
			Path:     v.Path,
			Row:      i + 1,
			Hidden:   hidden,
			Missing:  missing,
			Severity: severity,
		})
	}
	return out
}

// detectSizeOutliers flags groups whose record count has a Z-score above
// 1.5 among all groups. Above 2.0 is "medium", above 3.0 "high".
func detectSizeOutliers(groups []GroupSummary) []SizeOutlier {
	if len(groups) < 3 {
		return nil
	}

	var sum, sumSq float64
	for _, g := range groups {
		n := float64(g.Records)
		sum += n
		sumSq += n * n
	}
	n := float64(len(groups))
	mean := sum / n
	stddev := math.Sqrt(sumSq/n - mean*mean)
	if stddev == 0 {
		return nil
	}

	var out []SizeOutlier
	for _, g := range groups {
		z := (float64(g.Records) - mean) / stddev
		if z <= 1.5 {
			continue
		}
		severity := "low"
		if z > 3.0 {
			severity = "high"
		} else if z > 2.0 {
			severity = "medium"
		}
		out = append(out, SizeOutlier{
			Path:     g.Path,
			Records:  g.Records,
			ZScore:   math.Round(z*100) / 100,
			Severity: severity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZScore > out[j].ZScore })
	return out
}

// GrowthReport describes how fast the library gains records.
type GrowthReport struct {
	Documents      int     `json:"documents"`
	Records        int     `json:"records"`
	FirstImport    string  `json:"first_import,omitempty"`
	LastImport     string  `json:"last_import,omitempty"`
	RecordsPerHour float64 `json:"records_per_hour"`
	RSquared       float64 `json:"r_squared"`
	Prediction24h  int     `json:"prediction_24h"` // predicted cumulative records a day after the last import
}

// dataPoint is one observation for regression.
type dataPoint struct {
	x float64 // hours since the first import
	y float64 // cumulative records
}

// LibraryGrowth fits cumulative record counts against import time for the
// most recent limit documents.
func (a *Analyzer) LibraryGrowth(limit int) (*GrowthReport, error) {
	docs, err := a.store.ListDocuments(database.DocumentFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing documents for growth analysis: %w", err)
	}

	report := &GrowthReport{Documents: len(docs)}
	if len(docs) == 0 {
		return report, nil
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ImportedAt < docs[j].ImportedAt })
	base := docs[0].ImportedAt
	points := make([]dataPoint, 0, len(docs))
	for _, d := range docs {
		report.Records += d.Records
		points = append(points, dataPoint{
			x: float64(d.ImportedAt-base) / float64(time.Hour),
			y: float64(report.Records),
		})
	}
	report.FirstImport = timeutil.FormatTimestampFull(docs[0].ImportedAt)
	report.LastImport = timeutil.FormatTimestampFull(docs[len(docs)-1].ImportedAt)

	if len(points) < 2 {
		return report, nil
	}
	slope, intercept, rSquared := linearRegression(points)
	last := points[len(points)-1].x
	report.RecordsPerHour = math.Round(slope*100) / 100
	report.RSquared = math.Round(rSquared*1000) / 1000
	report.Prediction24h = int(math.Max(0, slope*(last+24)+intercept))
	return report, nil
}

// linearRegression computes ordinary least squares regression.
// Returns slope (m), intercept (b), and R-squared goodness of fit.
func linearRegression(points []dataPoint) (slope, intercept, rSquared float64) {
	n := float64(len(points))
	if n < 2 {
		return 0, 0, 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		sumX += p.x
		sumY += p.y
		sumXY += p.x * p.y
		sumX2 += p.x * p.x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for _, p := range points {
		predicted := slope*p.x + intercept
		ssRes += (p.y - predicted) * (p.y - predicted)
		ssTot += (p.y - meanY) * (p.y - meanY)
	}

	if ssTot == 0 {
		rSquared = 1.0
	} else {
		rSquared = 1 - ssRes/ssTot
	}
	return slope, intercept, rSquared
}

// FormatReport renders a report as markdown.
func FormatReport(report *Report) string {
	var b strings.Builder

	b.WriteString("# jsonview Inspection Report\n\n")
	if report.Name != "" {
		fmt.Fprintf(&b, "**Document:** `%s`\n", report.Name)
	}
	fmt.Fprintf(&b, "**Title:** `%s`\n", report.Title)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", report.GeneratedAt)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Groups | %d |\n", report.Stats.Groups)
	fmt.Fprintf(&b, "| Records | %d |\n", report.Stats.Records)
	fmt.Fprintf(&b, "| Nesting Depth | %d |\n", report.Stats.Depth)
	if report.Document != nil {
		fmt.Fprintf(&b, "| Stored Size | %d bytes |\n", report.Document.BodyBytes)
		fmt.Fprintf(&b, "| Imported | %s |\n", timeutil.FormatTimestampFull(report.Document.ImportedAt))
	}
	b.WriteString("\n")

	if len(report.Levels) > 0 {
		b.WriteString("## Levels\n\n")
		b.WriteString("| Depth | Groups | Records |\n")
		b.WriteString("|-------|--------|---------|\n")
		for _, l := range report.Levels {
			fmt.Fprintf(&b, "| %d | %d | %d |\n", l.Depth, l.Groups, l.Records)
		}
		b.WriteString("\n")
	}

	if len(report.Groups) > 0 {
		b.WriteString("## Groups\n\n")
		b.WriteString("| Path | Records | Columns |\n")
		b.WriteString("|------|---------|---------|\n")
		for _, g := range report.Groups {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", g.Path, g.Records, strings.Join(g.Columns, ", "))
		}
		b.WriteString("\n")
	}

	if len(report.Drift) > 0 {
		b.WriteString("## Column Drift\n\n")
		b.WriteString("| Path | Row | Hidden | Missing | Severity |\n")
		b.WriteString("|------|-----|--------|---------|----------|\n")
		for _, d := range report.Drift {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n",
				d.Path, d.Row, strings.Join(d.Hidden, ", "), strings.Join(d.Missing, ", "), d.Severity)
		}
		b.WriteString("\n")
	}

	if len(report.Outliers) > 0 {
		b.WriteString("## Large Groups\n\n")
		b.WriteString("| Path | Records | Z-Score | Severity |\n")
		b.WriteString("|------|---------|---------|----------|\n")
		for _, o := range report.Outliers {
			fmt.Fprintf(&b, "| %s | %d | %.2f | %s |\n", o.Path, o.Records, o.ZScore, o.Severity)
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
