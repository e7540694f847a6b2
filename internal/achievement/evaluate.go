package achievement

import (
	"slices"
	"time"

	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/metrics"
)

// Evaluate reports every definition's state for r, in catalog order. snap
// must have been computed from r by calc. An achievement is unlocked once its
// metric reaches the threshold; evaluating the same record against the same
// clock always yields the same result.
func Evaluate(defs []Definition, r activity.Record, snap metrics.Snapshot, calc *metrics.Calculator) []Status {
	h := history{record: r, snap: snap, calc: calc}

	out := make([]Status, 0, len(defs))
	for _, def := range defs {
		st := Status{Achievement: def}
		if def.Value(snap) >= def.Threshold {
			st.Unlocked = true
			st.UnlockedAt = h.unlockedAt(def)
		}
		out = append(out, st)
	}
	return out
}

// CountUnlocked returns how many statuses are unlocked.
func CountUnlocked(statuses []Status) int {
	n := 0
	for _, st := range statuses {
		if st.Unlocked {
			n++
		}
	}
	return n
}

// history reconstructs when a threshold was crossed. Sorted sessions are
// computed lazily and shared across definitions.
type history struct {
	record activity.Record
	snap   metrics.Snapshot
	calc   *metrics.Calculator

	sorted []activity.Session
	ready  bool
}

func (h *history) sessionsByStart() []activity.Session {
	if !h.ready {
		h.sorted = h.record.Sessions()
		slices.SortStableFunc(h.sorted, func(a, b activity.Session) int {
			return a.Start().Compare(b.Start())
		})
		h.ready = true
	}
	return h.sorted
}

func (h *history) unlockedAt(def Definition) *time.Time {
	var (
		t  time.Time
		ok bool
	)
	if def.Threshold > 0 {
		switch def.Metric {
		case MetricSessions:
			t, ok = h.nthSessionStart(def.Threshold)
		case MetricHours:
			if h.snap.PlayTimeFromSessions {
				t, ok = h.hoursCrossed(def.Threshold)
			}
		case MetricStreak:
			t, ok = h.streakReached(def.Threshold)
		}
	}
	if !ok {
		t, ok = h.calc.FirstSessionDate(h.record)
	}
	if !ok {
		return nil
	}
	t = t.In(h.calc.Location())
	return &t
}

func (h *history) nthSessionStart(n int) (time.Time, bool) {
	sessions := h.sessionsByStart()
	if n > len(sessions) {
		return time.Time{}, false
	}
	return sessions[n-1].Start(), true
}

// hoursCrossed finds the session whose cumulative duration first reaches
// hours and returns its end. An ongoing session ends at the calculator's now.
func (h *history) hoursCrossed(hours int) (time.Time, bool) {
	now := h.calc.Now()
	need := time.Duration(hours) * time.Hour

	var total time.Duration
	for _, s := range h.sessionsByStart() {
		if d := s.DurationAt(now); d > 0 {
			total += d
		}
		if total >= need {
			if end, ok := s.End(); ok {
				return end, true
			}
			return now, true
		}
	}
	return time.Time{}, false
}

// streakReached returns the day on which the current run reached days.
func (h *history) streakReached(days int) (time.Time, bool) {
	run := h.calc.StreakDays(h.record)
	if days > len(run) {
		return time.Time{}, false
	}
	return run[len(run)-days], true
}
