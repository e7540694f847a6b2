package achievement

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/clock"
	"github.com/focusnest/gamification-service/internal/metrics"
)

var taipei = activity.OffsetLocation(8 * time.Hour)

func newCalc() *metrics.Calculator {
	return metrics.New(clock.NewFakeClock(time.Date(2025, 12, 10, 15, 0, 0, 0, taipei)), taipei)
}

// dailySessions returns n one-hour sessions at 09:00, one per day, ending today.
func dailySessions(n int) []activity.Session {
	base := time.Date(2025, 12, 10, 9, 0, 0, 0, taipei)
	out := make([]activity.Session, 0, n)
	for i := 0; i < n; i++ {
		start := base.AddDate(0, 0, -(n - 1 - i))
		out = append(out, activity.NewCompletedSession(start, start.Add(time.Hour)))
	}
	return out
}

func evaluate(t *testing.T, r activity.Record) map[string]Status {
	t.Helper()
	calc := newCalc()
	statuses := Evaluate(DefaultCatalog(), r, calc.Snapshot(r), calc)
	byID := make(map[string]Status, len(statuses))
	for _, st := range statuses {
		byID[st.Achievement.ID] = st
	}
	return byID
}

func TestDefaultCatalog(t *testing.T) {
	defs := DefaultCatalog()
	require.Len(t, defs, 17)
	assert.Equal(t, "ach_first_session", defs[0].ID)
	assert.Equal(t, "ach_streak_100", defs[16].ID)

	seen := map[string]bool{}
	for _, d := range defs {
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
	}

	defs[0].Threshold = 999
	assert.Equal(t, 1, DefaultCatalog()[0].Threshold, "callers get a copy")
}

func TestEvaluate_TenSessionsThreshold(t *testing.T) {
	for _, n := range []int{0, 9, 10, 11} {
		statuses := evaluate(t, activity.NewRecord("id", "bob", 0, 0, nil, nil, dailySessions(n)))
		assert.Equal(t, n >= 10, statuses["ach_10_sessions"].Unlocked, "sessions=%d", n)
	}
}

func TestEvaluate_PreservesCatalogOrder(t *testing.T) {
	calc := newCalc()
	r := activity.NewRecord("id", "bob", 0, 0, nil, nil, dailySessions(3))
	statuses := Evaluate(DefaultCatalog(), r, calc.Snapshot(r), calc)

	require.Len(t, statuses, 17)
	for i, def := range DefaultCatalog() {
		assert.Equal(t, def.ID, statuses[i].Achievement.ID)
	}
	assert.Equal(t, 2, CountUnlocked(statuses), "first session and one hour")
}

func TestEvaluate_Idempotent(t *testing.T) {
	calc := newCalc()
	r := activity.NewRecord("id", "bob", 12, 2500, []int{60}, nil, dailySessions(12))
	snap := calc.Snapshot(r)

	first := Evaluate(DefaultCatalog(), r, snap, calc)
	second := Evaluate(DefaultCatalog(), r, snap, calc)
	assert.Equal(t, first, second)
}

func TestEvaluate_LockedHasNoDate(t *testing.T) {
	statuses := evaluate(t, activity.NewRecord("id", "bob", 0, 0, nil, nil, dailySessions(2)))
	locked := statuses["ach_100_sessions"]
	assert.False(t, locked.Unlocked)
	assert.Nil(t, locked.UnlockedAt)
}

func TestEvaluate_UnlockDates(t *testing.T) {
	sessions := dailySessions(12)
	r := activity.NewRecord("id", "bob", 10, 1500, nil, nil, sessions)
	statuses := evaluate(t, r)

	tests := []struct {
		id   string
		want time.Time
	}{
		{"ach_first_session", sessions[0].Start()},
		{"ach_10_sessions", sessions[9].Start()},
		{"ach_1_hour", sessions[0].Start().Add(time.Hour)},
		{"ach_10_hours", sessions[9].Start().Add(time.Hour)},
		{"ach_streak_7", time.Date(2025, 12, 5, 0, 0, 0, 0, taipei)},
		{"ach_level_10", sessions[0].Start()},
		{"ach_score_1000", sessions[0].Start()},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			st := statuses[tt.id]
			require.True(t, st.Unlocked)
			require.NotNil(t, st.UnlockedAt)
			assert.True(t, tt.want.Equal(*st.UnlockedAt), "got %s want %s", st.UnlockedAt, tt.want)
		})
	}
}

func TestEvaluate_SessionOrderIndependent(t *testing.T) {
	sessions := dailySessions(10)
	reversed := make([]activity.Session, len(sessions))
	for i, s := range sessions {
		reversed[len(sessions)-1-i] = s
	}

	st := evaluate(t, activity.NewRecord("id", "bob", 0, 0, nil, nil, reversed))["ach_10_sessions"]
	require.NotNil(t, st.UnlockedAt)
	assert.True(t, sessions[9].Start().Equal(*st.UnlockedAt))
}

func TestEvaluate_OngoingSessionCrossesHours(t *testing.T) {
	// Ongoing since 13:00; the calculator's now is 15:00.
	r := activity.NewRecord("id", "bob", 0, 0, nil, nil, []activity.Session{
		activity.NewOngoingSession(time.Date(2025, 12, 10, 13, 0, 0, 0, taipei)),
	})
	st := evaluate(t, r)["ach_1_hour"]
	require.True(t, st.Unlocked)
	require.NotNil(t, st.UnlockedAt)
	assert.True(t, time.Date(2025, 12, 10, 15, 0, 0, 0, taipei).Equal(*st.UnlockedAt))
}

func TestEvaluate_NoHistoryUnlockedWithoutDate(t *testing.T) {
	r := activity.NewRecord("id", "bob", 10, 1000, []int{3700}, nil, nil)
	statuses := evaluate(t, r)

	for _, id := range []string{"ach_1_hour", "ach_level_10", "ach_score_1000"} {
		assert.True(t, statuses[id].Unlocked, id)
		assert.Nil(t, statuses[id].UnlockedAt, id)
	}
	assert.False(t, statuses["ach_first_session"].Unlocked)
}

func TestEvaluate_EmptyRecord(t *testing.T) {
	calc := newCalc()
	statuses := Evaluate(DefaultCatalog(), activity.Record{}, calc.Snapshot(activity.Record{}), calc)
	assert.Zero(t, CountUnlocked(statuses))
	assert.Empty(t, Evaluate(nil, activity.Record{}, metrics.Snapshot{}, calc))
}

func TestLoadCatalog(t *testing.T) {
	defs, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, defs, 17)

	dir := t.TempDir()
	custom := filepath.Join(dir, "achievements.yaml")
	require.NoError(t, os.WriteFile(custom, []byte(`items:
  - id: ach_marathon
    title: Marathon
    rarity: epic
    metric: hours
    threshold: 42
`), 0o600))

	defs, err = LoadCatalog(custom)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, MetricHours, defs[0].Metric)
	assert.Equal(t, 42, defs[0].Threshold)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`items:
  - id: ach_x
    title: X
    rarity: mythic
    metric: hours
    threshold: 1
`), 0o600))
	_, err = LoadCatalog(bad)
	assert.Error(t, err)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
