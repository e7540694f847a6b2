package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/gamification-service/internal/metrics"
)

func byID(statuses []Status) map[string]Status {
	out := make(map[string]Status, len(statuses))
	for _, st := range statuses {
		out[st.Task.ID] = st
	}
	return out
}

func TestDefaultCatalog(t *testing.T) {
	defs := DefaultCatalog()
	require.Len(t, defs, 17)
	assert.Equal(t, "task_sessions_1", defs[0].ID)

	statuses := byID(Evaluate(defs, metrics.Snapshot{}))
	assert.Equal(t, 120, statuses["task_time_2h"].Task.Target)
	assert.Equal(t, "Bonus 50 pts", statuses["task_score_100"].Task.Reward)
}

func TestEvaluate_CurrentValues(t *testing.T) {
	snap := metrics.Snapshot{
		TotalSessions:        7,
		TotalPlayTimeSeconds: 45*60 + 59,
		Level:                6,
		Score:                250,
		Streak:               3,
	}
	statuses := byID(Evaluate(DefaultCatalog(), snap))

	tests := []struct {
		id        string
		current   int
		completed bool
		text      string
	}{
		{"task_sessions_5", 7, true, "7 / 5"},
		{"task_sessions_10", 7, false, "7 / 10"},
		{"task_time_30min", 45, true, "45 / 30"},
		{"task_time_2h", 45, false, "45 / 120"},
		{"task_score_100", 250, true, "250 / 100"},
		{"task_level_10", 6, false, "6 / 10"},
		{"task_streak_3", 3, true, "3 / 3"},
		{"task_streak_7", 3, false, "3 / 7"},
	}
	for _, tt := range tests {
		st := statuses[tt.id]
		assert.Equal(t, tt.current, st.Current, tt.id)
		assert.Equal(t, tt.completed, st.Completed, tt.id)
		assert.Equal(t, tt.text, st.ProgressText, tt.id)
	}
	assert.InDelta(t, 0.7, statuses["task_sessions_10"].Progress, 1e-9)
	assert.Equal(t, 1.0, statuses["task_score_100"].Progress)
}

func TestEvaluate_ProgressMonotonicAndClamped(t *testing.T) {
	defs := []Definition{{ID: "t", Title: "T", Category: CategorySessions, Target: 10}}

	prev := -1.0
	for sessions := 0; sessions <= 25; sessions++ {
		st := Evaluate(defs, metrics.Snapshot{TotalSessions: sessions})[0]
		assert.GreaterOrEqual(t, st.Progress, prev, "sessions=%d", sessions)
		assert.LessOrEqual(t, st.Progress, 1.0)
		assert.GreaterOrEqual(t, st.Progress, 0.0)
		assert.Equal(t, sessions >= 10, st.Completed)
		prev = st.Progress
	}
}

func TestEvaluate_NonPositiveTarget(t *testing.T) {
	st := Evaluate([]Definition{{ID: "z", Category: CategoryScore, Target: 0}}, metrics.Snapshot{Score: 5})[0]
	assert.Zero(t, st.Progress)
	assert.True(t, st.Completed)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize(Evaluate(DefaultCatalog(), metrics.Snapshot{TotalSessions: 1, Score: 100}))
	assert.Equal(t, 17, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.InDelta(t, 2.0/17.0, s.Fraction, 1e-9)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`items:
  - id: task_focus_hour
    title: Focus Hour
    category: time
    target: 60
`), 0o600))

	defs, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, CategoryTime, defs[0].Category)

	require.NoError(t, os.WriteFile(path, []byte("items:\n  - id: x\n    title: X\n    category: mood\n"), 0o600))
	_, err = LoadCatalog(path)
	assert.Error(t, err)
}
