package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{450 * time.Millisecond, "450ms"},
		{1200 * time.Millisecond, "1.2s"},
		{135300 * time.Millisecond, "2m 15.3s"},
		{3*time.Hour + 4*time.Minute, "3h 04m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), "duration %s", tt.in)
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "3.0 MiB", FormatBytes(3*1024*1024))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{5 * time.Second, "5s ago"},
		{2 * time.Minute, "2m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativeTo(now, now.Add(-tt.ago).UnixNano()))
	}
}

func TestFormatTimestampFullZero(t *testing.T) {
	assert.Equal(t, "never", FormatTimestampFull(0))
}
