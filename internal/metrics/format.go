package metrics

import (
	"fmt"
	"time"
)

// FormatDuration renders d as "1h 24m", "2h" or "12m". Seconds are truncated
// and negative durations render as "0m".
func FormatDuration(d time.Duration) string {
	totalMinutes := max(int(d/time.Minute), 0)
	hours := totalMinutes / 60
	minutes := totalMinutes % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatSeconds is FormatDuration for a whole number of seconds.
func FormatSeconds(seconds int) string {
	return FormatDuration(time.Duration(seconds) * time.Second)
}

// FormatUpdateStatus renders the freshness line shown above the dashboard,
// e.g. "Updated 5 minutes ago.". The smallest unit is a minute.
func FormatUpdateStatus(now time.Time, lastUpdated *time.Time) string {
	if lastUpdated == nil {
		return "Scroll to fetch data."
	}
	elapsed := now.Sub(*lastUpdated)
	if elapsed < time.Minute {
		return "Updated just now."
	}

	minutes := int(elapsed / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("Updated %s ago.", plural(minutes, "minute"))
	}

	hours := minutes / 60
	if hours < 24 {
		if rem := minutes % 60; rem > 0 {
			return fmt.Sprintf("Updated %s %s ago.", plural(hours, "hour"), plural(rem, "minute"))
		}
		return fmt.Sprintf("Updated %s ago.", plural(hours, "hour"))
	}

	return fmt.Sprintf("Updated %s ago.", plural(hours/24, "day"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
