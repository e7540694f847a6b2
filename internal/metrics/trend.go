package metrics

import (
	"time"

	"github.com/focusnest/gamification-service/internal/activity"
)

// DefaultTrendDays is the chart window used when callers do not pick one.
const DefaultTrendDays = 7

// TrendPoint is one day of the play-time chart.
type TrendPoint struct {
	Date            time.Time `json:"date"`
	DurationSeconds int       `json:"duration_seconds"`
}

// DurationMinutes is the point's value in fractional minutes.
func (p TrendPoint) DurationMinutes() float64 {
	return float64(p.DurationSeconds) / 60.0
}

// Label is the short human form of the point's duration.
func (p TrendPoint) Label() string {
	return FormatSeconds(p.DurationSeconds)
}

// TrendSeries right-aligns the most recent windowDays slices against the
// calendar days ending today: the newest slice lands on today and the oldest
// on the earliest day of the window.
func (c *Calculator) TrendSeries(r activity.Record, windowDays int) []TrendPoint {
	samples := c.RecentPlayTimeSlices(r, windowDays)
	today := c.Today()

	points := make([]TrendPoint, 0, len(samples))
	for i, seconds := range samples {
		offset := -(len(samples) - i - 1)
		points = append(points, TrendPoint{
			Date:            today.AddDate(0, 0, offset),
			DurationSeconds: seconds,
		})
	}
	return points
}

// TrendSummary aggregates a trend window for the chart header.
type TrendSummary struct {
	Days           int    `json:"days"`
	TotalSeconds   int    `json:"total_seconds"`
	AverageSeconds int    `json:"average_seconds"`
	TotalLabel     string `json:"total_label"`
	AverageLabel   string `json:"average_label"`
}

// SummarizeTrend totals and averages points. An empty window yields the zero summary.
func SummarizeTrend(points []TrendPoint) TrendSummary {
	if len(points) == 0 {
		return TrendSummary{}
	}
	total := 0
	for _, p := range points {
		total += p.DurationSeconds
	}
	avg := total / len(points)
	return TrendSummary{
		Days:           len(points),
		TotalSeconds:   total,
		AverageSeconds: avg,
		TotalLabel:     FormatSeconds(total),
		AverageLabel:   FormatSeconds(avg),
	}
}
