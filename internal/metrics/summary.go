package metrics

import (
	"strconv"
	"time"

	"github.com/focusnest/gamification-service/internal/activity"
)

// NoScoreText is shown when a session has no aligned score.
const NoScoreText = "N/A"

// SessionSummary describes the most recent completed session.
type SessionSummary struct {
	Index           int       `json:"index"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	DurationText    string    `json:"duration_text"`
	Score           int       `json:"score"`
	HasScore        bool      `json:"has_score"`
}

// ScoreText renders the score or NoScoreText.
func (s SessionSummary) ScoreText() string {
	if !s.HasScore {
		return NoScoreText
	}
	return strconv.Itoa(s.Score)
}

// LatestCompletedSessionSummary finds the highest-index session that has
// ended and pairs it with the score at the same index. ok is false when no
// session has completed.
func (c *Calculator) LatestCompletedSessionSummary(r activity.Record) (summary SessionSummary, ok bool) {
	sessions := r.Sessions()
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		end, done := s.End()
		if !done {
			continue
		}
		d := max(s.DurationAt(end), 0)
		summary = SessionSummary{
			Index:           i,
			StartedAt:       s.Start().In(c.loc),
			EndedAt:         end.In(c.loc),
			DurationSeconds: int(d / time.Second),
			DurationText:    FormatDuration(d),
		}
		summary.Score, summary.HasScore = r.ScoreAt(i)
		return summary, true
	}
	return SessionSummary{}, false
}

// Snapshot holds the five metrics that drive achievements and tasks,
// computed once per evaluation.
type Snapshot struct {
	TotalSessions        int  `json:"total_sessions"`
	TotalPlayTimeSeconds int  `json:"total_play_time_seconds"`
	PlayTimeFromSessions bool `json:"play_time_from_sessions"`
	Level                int  `json:"level"`
	Score                int  `json:"score"`
	Streak               int  `json:"streak"`
}

// TotalPlayTimeMinutes truncates total play time to whole minutes.
func (s Snapshot) TotalPlayTimeMinutes() int { return s.TotalPlayTimeSeconds / 60 }

// TotalPlayTimeHours truncates total play time to whole hours.
func (s Snapshot) TotalPlayTimeHours() int { return s.TotalPlayTimeSeconds / 3600 }

// Snapshot evaluates the driving metrics for r.
func (c *Calculator) Snapshot(r activity.Record) Snapshot {
	fromSessions := c.sessionSeconds(r)
	total := fromSessions
	if total <= 0 {
		total = sumSlices(r.PlayTimeSlices())
	}
	return Snapshot{
		TotalSessions:        r.SessionCount(),
		TotalPlayTimeSeconds: total,
		PlayTimeFromSessions: fromSessions > 0,
		Level:                r.Level(),
		Score:                r.Score(),
		Streak:               c.ConsecutiveDayStreak(r),
	}
}

// LevelProgress places the score on the backend's level curve.
type LevelProgress struct {
	Level          int     `json:"level"`
	ScoreLevel     int     `json:"score_level"`
	LevelScore     int     `json:"level_score"`
	NextLevelScore int     `json:"next_level_score"`
	Fraction       float64 `json:"fraction"`
}

// LevelProgress reports how far the score is between the reported level's
// threshold and the next one. ScoreLevel is the level implied by the score,
// which differs from Level only when the backend has not recomputed it yet.
func (c *Calculator) LevelProgress(r activity.Record) LevelProgress {
	level := r.Level()
	lo := activity.ScoreForLevel(level)
	hi := activity.ScoreForLevel(level + 1)

	fraction := 0.0
	if span := hi - lo; span > 0 {
		fraction = clampUnit(float64(r.Score()-lo) / float64(span))
	}
	return LevelProgress{
		Level:          level,
		ScoreLevel:     activity.LevelForScore(r.Score()),
		LevelScore:     lo,
		NextLevelScore: hi,
		Fraction:       fraction,
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
