// Package timeutil provides time formatting utilities for jsonview.
//
// Import times in the document library are stored as Unix nanoseconds
// (int64). This package converts them for the TUI, the CLI listings and
// inspection reports.
package timeutil

import (
	"fmt"
	"time"
)

// FromNano converts a Unix nanosecond timestamp to time.Time.
func FromNano(ns int64) time.Time {
	return time.Unix(0, ns)
}

// FormatTimestamp formats a Unix nanosecond timestamp as "HH:MM:SS.mmm".
func FormatTimestamp(ns int64) string {
	return FromNano(ns).Format("15:04:05.000")
}

// FormatTimestampFull formats a Unix nanosecond timestamp with date.
// Format: "2006-01-02 15:04:05.000"
func FormatTimestampFull(ns int64) string {
	if ns == 0 {
		return "never"
	}
	return FromNano(ns).Format("2006-01-02 15:04:05.000")
}

// FormatDuration formats a duration to a short human-readable string.
// Examples: "450ms", "1.2s", "2m 15.3s", "3h 04m"
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	if d < time.Hour {
		minutes := int(seconds / 60)
		return fmt.Sprintf("%dm %.1fs", minutes, seconds-float64(minutes*60))
	}
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatBytes formats a byte count with a binary unit.
// Examples: "512 B", "1.5 KiB", "3.0 MiB"
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// RelativeTime returns a human-readable relative time string.
// Examples: "just now", "5s ago", "2m ago", "1h ago"
func RelativeTime(ns int64) string {
	return relativeTo(time.Now(), ns)
}

func relativeTo(now time.Time, ns int64) string {
	diff := now.Sub(FromNano(ns))

	switch {
	case diff < time.Second:
		return "just now"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
