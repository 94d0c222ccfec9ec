package scrape

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const barWidth = 10

// Bar renders the fixed-width filled/empty glyph bar for the status
// message.
func Bar(current, total int) string {
	if total <= 0 {
		return strings.Repeat("░", barWidth)
	}

	filled := int(math.Round(float64(current) / float64(total) * barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	return strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)
}

func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}

	return int(math.Round(100 * float64(current) / float64(total)))
}

// ETA estimates time remaining from average per-chapter elapsed time times
// remaining chapters.
func ETA(elapsed time.Duration, current, total int) time.Duration {
	if current >= total {
		return 0
	}
	if current < 1 {
		current = 1
	}

	perUnit := elapsed / time.Duration(current)

	return perUnit * time.Duration(total-current)
}

// FormatDuration renders durations the way the status messages show them:
// "42s" under a minute, "3m 12s" above.
func FormatDuration(d time.Duration) string {
	sec := int(d.Round(time.Second).Seconds())
	if sec < 60 {
		return fmt.Sprintf("%ds", sec)
	}

	return fmt.Sprintf("%dm %ds", sec/60, sec%60)
}
