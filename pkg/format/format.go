package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Display formatting helpers. Absent values render as an em-dash-free
// placeholder so list cells never show a zero time.

const emptyPlaceholder = "-"

// Date renders "Jan 2, 2006", or a placeholder for nil.
func Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return emptyPlaceholder
	}
	return t.Format("Jan 2, 2006")
}

// DateTime renders "Jan 2, 2006, 3:04 PM", or a placeholder for nil.
func DateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return emptyPlaceholder
	}
	return t.Format("Jan 2, 2006, 3:04 PM")
}

// RelativeTime renders a coarse distance from now ("5 minutes ago",
// "in 2 hours"), or a placeholder for nil.
func RelativeTime(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return emptyPlaceholder
	}

	d := now.Sub(*t)
	future := d < 0
	if future {
		d = -d
	}

	var phrase string
	switch {
	case d < time.Minute:
		phrase = "less than a minute"
	case d < time.Hour:
		phrase = plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		phrase = plural(int(d.Hours()), "hour")
	case d < 30*24*time.Hour:
		phrase = plural(int(d.Hours()/24), "day")
	case d < 365*24*time.Hour:
		phrase = plural(int(d.Hours()/(24*30)), "month")
	default:
		phrase = plural(int(d.Hours()/(24*365)), "year")
	}

	if future {
		return "in " + phrase
	}
	return phrase + " ago"
}

func plural(n int, unit string) string {
	if n <= 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FileSize humanizes a byte count with 1024 units.
func FileSize(bytes *int64) string {
	if bytes == nil {
		return emptyPlaceholder
	}
	b := *bytes
	if b == 0 {
		return "0 B"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(b)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	size := float64(b) / math.Pow(1024, float64(i))
	if i == 0 {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

// Truncate shortens text to maxLen runes with an ellipsis.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// Cron renders a 5-field cron expression as a human-readable phrase for the
// common patterns; anything else falls back to the raw expression.
func Cron(expr string) string {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return expr
	}
	minute, hour, dom, month, dow := parts[0], parts[1], parts[2], parts[3], parts[4]

	switch {
	case minute == "0" && hour == "*" && dom == "*" && month == "*" && dow == "*":
		return "Every hour"
	case minute == "0" && hour == "0" && dom == "1" && month == "*" && dow == "*":
		return "Monthly on the 1st"
	case minute == "0" && hour == "0" && dom == "*" && month == "*" && dow == "*":
		return "Daily at midnight"
	case minute == "0" && dom == "*" && month == "*" && dow == "*" && isNumeric(hour):
		return fmt.Sprintf("Daily at %s:00", hour)
	}
	return expr
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
