package activity

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the backend's local date-time format. It carries no
// offset; the Normalizer's configured location supplies one.
const TimestampLayout = "2006-01-02T15:04:05"

// Record is one user's normalized activity. A Record is never mutated after
// Normalize returns it; a refresh produces a new Record. Slice accessors
// return copies, so a Record may be shared freely across goroutines.
type Record struct {
	id             string
	username       string
	level          int
	score          int
	playTimeSlices []int
	sessionScores  []int
	sessions       []Session
}

// NewRecord assembles a Record from already-validated parts. It is intended
// for tests and for callers that build records from a trusted source.
func NewRecord(id, username string, level, score int, slices, scores []int, sessions []Session) Record {
	return Record{
		id:             id,
		username:       username,
		level:          max(level, 0),
		score:          max(score, 0),
		playTimeSlices: clampSlices(slices),
		sessionScores:  append([]int(nil), scores...),
		sessions:       append([]Session(nil), sessions...),
	}
}

func (r Record) ID() string       { return r.id }
func (r Record) Username() string { return r.username }
func (r Record) Level() int       { return r.level }
func (r Record) Score() int       { return r.score }

// PlayTimeSlices returns the per-period play time samples in seconds, oldest first.
func (r Record) PlayTimeSlices() []int {
	return append([]int(nil), r.playTimeSlices...)
}

// SessionScores returns the per-session scores, index-aligned with Sessions.
func (r Record) SessionScores() []int {
	return append([]int(nil), r.sessionScores...)
}

// Sessions returns the record's sessions in payload order.
func (r Record) Sessions() []Session {
	return append([]Session(nil), r.sessions...)
}

// SessionCount reports len(Sessions()) without copying.
func (r Record) SessionCount() int { return len(r.sessions) }

// SessionAt returns the i-th session.
func (r Record) SessionAt(i int) (Session, bool) {
	if i < 0 || i >= len(r.sessions) {
		return Session{}, false
	}
	return r.sessions[i], true
}

// ScoreAt returns the score earned in session i. The scores slice is not
// required to match the sessions slice in length.
func (r Record) ScoreAt(i int) (int, bool) {
	if i < 0 || i >= len(r.sessionScores) {
		return 0, false
	}
	return r.sessionScores[i], true
}

// IsZero reports whether the record is the zero value.
func (r Record) IsZero() bool {
	return r.id == "" && r.username == "" && len(r.sessions) == 0 && len(r.playTimeSlices) == 0
}

// RecordView is the JSON rendering of a Record with ongoing session
// durations measured at a fixed instant.
type RecordView struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Level          int           `json:"level"`
	Score          int           `json:"score"`
	PlayTimeSlices []int         `json:"play_time"`
	SessionScores  []int         `json:"scores"`
	Sessions       []SessionView `json:"sessions"`
}

// SessionView is one rendered session.
type SessionView struct {
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	Ongoing         bool       `json:"ongoing"`
	DurationSeconds int64      `json:"duration_seconds"`
}

// ViewAt renders the record, evaluating ongoing durations at now.
func (r Record) ViewAt(now time.Time) RecordView {
	out := RecordView{
		ID:             r.id,
		Username:       r.username,
		Level:          r.level,
		Score:          r.score,
		PlayTimeSlices: nonNil(append([]int(nil), r.playTimeSlices...)),
		SessionScores:  nonNil(append([]int(nil), r.sessionScores...)),
		Sessions:       make([]SessionView, 0, len(r.sessions)),
	}
	for _, s := range r.sessions {
		sv := SessionView{
			StartTime:       s.start,
			Ongoing:         s.ongoing,
			DurationSeconds: int64(s.DurationAt(now) / time.Second),
		}
		if !s.ongoing {
			end := s.end
			sv.EndTime = &end
		}
		out.Sessions = append(out.Sessions, sv)
	}
	return out
}

// MarshalJSON renders the record against the wall clock. Callers holding an
// injected clock should marshal ViewAt instead.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ViewAt(time.Now()))
}

// Session is one focus interval.
type Session struct {
	start   time.Time
	end     time.Time
	ongoing bool
}

// NewCompletedSession returns a finished session.
func NewCompletedSession(start, end time.Time) Session {
	return Session{start: start, end: end}
}

// NewOngoingSession returns a session that has not ended yet.
func NewOngoingSession(start time.Time) Session {
	return Session{start: start, ongoing: true}
}

func (s Session) Start() time.Time { return s.start }
func (s Session) Ongoing() bool    { return s.ongoing }

// End returns the end instant; ok is false for an ongoing session.
func (s Session) End() (end time.Time, ok bool) {
	if s.ongoing {
		return time.Time{}, false
	}
	return s.end, true
}

// Duration is the session length. For an ongoing session it is measured
// against the wall clock on every call and grows between calls.
func (s Session) Duration() time.Duration {
	return s.DurationAt(time.Now())
}

// DurationAt is Duration with an explicit "now". The result may be negative
// for malformed payloads; callers summing durations clamp it.
func (s Session) DurationAt(now time.Time) time.Duration {
	if s.ongoing {
		return now.Sub(s.start)
	}
	return s.end.Sub(s.start)
}

// RankEntry is one row of the backend leaderboard.
type RankEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

func clampSlices(in []int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = max(v, 0)
	}
	return out
}

func nonNil(in []int) []int {
	if in == nil {
		return []int{}
	}
	return in
}
