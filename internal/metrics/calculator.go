package metrics

import (
	"time"

	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/clock"
)

const dayKeyLayout = "2006-01-02"

// Calculator derives metrics from a Record. It holds no state besides its
// clock and display zone, so one instance can serve all requests.
//
// Every method is a pure function of the record except where an ongoing
// session is involved: its duration is measured against the clock at call
// time, so TotalPlayTimeSeconds and Snapshot can grow between calls.
type Calculator struct {
	clock clock.Clock
	loc   *time.Location
}

// New returns a Calculator that buckets days in loc. Nil arguments fall
// back to the system clock and time.Local.
func New(c clock.Clock, loc *time.Location) *Calculator {
	if c == nil {
		c = clock.NewSystemClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{clock: c, loc: loc}
}

// Default uses the wall clock and the process's local zone.
func Default() *Calculator {
	return New(nil, nil)
}

// Now is the calculator's current instant in its display zone.
func (c *Calculator) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Location is the zone used for calendar-day bucketing.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Today is local midnight of the current day.
func (c *Calculator) Today() time.Time {
	return truncateToDay(c.Now())
}

// TotalPlayTimeSeconds prefers the sum of session durations, each clamped at
// zero, and falls back to the play-time slices when sessions carry no time.
func (c *Calculator) TotalPlayTimeSeconds(r activity.Record) int {
	if fromSessions := c.sessionSeconds(r); fromSessions > 0 {
		return fromSessions
	}
	return sumSlices(r.PlayTimeSlices())
}

func (c *Calculator) sessionSeconds(r activity.Record) int {
	now := c.clock.Now()
	var total time.Duration
	for _, s := range r.Sessions() {
		if d := s.DurationAt(now); d > 0 {
			total += d
		}
	}
	return int(total / time.Second)
}

// RecentPlayTimeSlices returns the last limit slices, oldest to newest.
func (c *Calculator) RecentPlayTimeSlices(r activity.Record, limit int) []int {
	if limit <= 0 {
		return []int{}
	}
	slices := r.PlayTimeSlices()
	if len(slices) > limit {
		slices = slices[len(slices)-limit:]
	}
	return slices
}

// ConsecutiveDayStreak counts consecutive local days, ending today, with at
// least one session start. A day without a session today means zero.
func (c *Calculator) ConsecutiveDayStreak(r activity.Record) int {
	return len(c.StreakDays(r))
}

// StreakDays returns the days of the current streak, newest (today) first.
func (c *Calculator) StreakDays(r activity.Record) []time.Time {
	active := make(map[string]struct{}, r.SessionCount())
	for _, s := range r.Sessions() {
		active[s.Start().In(c.loc).Format(dayKeyLayout)] = struct{}{}
	}

	var days []time.Time
	for day := c.Today(); ; day = day.AddDate(0, 0, -1) {
		if _, ok := active[day.Format(dayKeyLayout)]; !ok {
			break
		}
		days = append(days, day)
		if len(days) == len(active) {
			break
		}
	}
	return days
}

// FirstSessionDate is the earliest session start.
func (c *Calculator) FirstSessionDate(r activity.Record) (time.Time, bool) {
	var first time.Time
	found := false
	for _, s := range r.Sessions() {
		if !found || s.Start().Before(first) {
			first = s.Start()
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return first.In(c.loc), true
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sumSlices(slices []int) int {
	total := 0
	for _, v := range slices {
		if v > 0 {
			total += v
		}
	}
	return total
}
