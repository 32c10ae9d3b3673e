package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDate(t *testing.T) {
	ts := time.Date(2025, time.March, 7, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mar 7, 2025", Date(&ts))
	assert.Equal(t, "-", Date(nil))
}

func TestDateTime(t *testing.T) {
	ts := time.Date(2025, time.March, 7, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mar 7, 2025, 2:30 PM", DateTime(&ts))
	assert.Equal(t, "-", DateTime(nil))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{-30 * time.Second, "less than a minute ago"},
		{-5 * time.Minute, "5 minutes ago"},
		{-time.Minute, "1 minute ago"},
		{-3 * time.Hour, "3 hours ago"},
		{-2 * 24 * time.Hour, "2 days ago"},
		{-60 * 24 * time.Hour, "2 months ago"},
		{-2 * 365 * 24 * time.Hour, "2 years ago"},
		{2 * time.Hour, "in 2 hours"},
	}
	for _, tt := range tests {
		ts := now.Add(tt.offset)
		assert.Equal(t, tt.want, RelativeTime(&ts, now), "offset %v", tt.offset)
	}
	assert.Equal(t, "-", RelativeTime(nil, now))
}

func TestFileSize(t *testing.T) {
	size := func(n int64) *int64 { return &n }
	tests := []struct {
		in   *int64
		want string
	}{
		{nil, "-"},
		{size(0), "0 B"},
		{size(512), "512 B"},
		{size(2048), "2.0 KB"},
		{size(1536), "1.5 KB"},
		{size(5 * 1024 * 1024), "5.0 MB"},
		{size(3 * 1024 * 1024 * 1024), "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileSize(tt.in))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a longer...", Truncate("a longer piece of text", 8))
	// rune-safe
	assert.Equal(t, "héllö...", Truncate("héllö wörld", 5))
}

func TestCron(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"0 * * * *", "Every hour"},
		{"0 0 1 * *", "Monthly on the 1st"},
		{"0 0 * * *", "Daily at midnight"},
		{"0 9 * * *", "Daily at 9:00"},
		{"*/5 * * * *", "*/5 * * * *"},
		{"0 9 * * 1", "0 9 * * 1"},
		{"not cron", "not cron"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cron(tt.expr), "expr %q", tt.expr)
	}
}
