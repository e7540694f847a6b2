// Package task evaluates progress toward the focus task catalog.
package task

import (
	"fmt"
	"sync"

	"github.com/focusnest/gamification-service/internal/catalog"
	"github.com/focusnest/gamification-service/internal/metrics"
)

// Category selects the snapshot value a task tracks.
type Category string

const (
	CategorySessions Category = "sessions"
	CategoryTime     Category = "time"
	CategoryScore    Category = "score"
	CategoryLevel    Category = "level"
	CategoryStreak   Category = "streak"
)

// Definition is one catalog entry. Time targets are in minutes.
type Definition struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Title       string   `json:"title" yaml:"title" validate:"required"`
	Description string   `json:"description" yaml:"description"`
	Icon        string   `json:"icon" yaml:"icon"`
	Reward      string   `json:"reward" yaml:"reward"`
	Category    Category `json:"category" yaml:"category" validate:"required,oneof=sessions time score level streak"`
	Target      int      `json:"target" yaml:"target" validate:"gte=0"`
}

// CurrentValue reads the task's category from a snapshot.
func (d Definition) CurrentValue(s metrics.Snapshot) int {
	switch d.Category {
	case CategorySessions:
		return s.TotalSessions
	case CategoryTime:
		return s.TotalPlayTimeMinutes()
	case CategoryScore:
		return s.Score
	case CategoryLevel:
		return s.Level
	case CategoryStreak:
		return s.Streak
	default:
		return 0
	}
}

// Status is a task's progress for one snapshot.
type Status struct {
	Task         Definition `json:"task"`
	Current      int        `json:"current"`
	Progress     float64    `json:"progress"`
	Completed    bool       `json:"completed"`
	ProgressText string     `json:"progress_text"`
}

// Evaluate computes progress for every definition, in catalog order.
// Progress is current/target clamped to [0, 1], and 0 when target is not positive.
func Evaluate(defs []Definition, snap metrics.Snapshot) []Status {
	out := make([]Status, 0, len(defs))
	for _, def := range defs {
		current := def.CurrentValue(snap)
		out = append(out, Status{
			Task:         def,
			Current:      current,
			Progress:     progress(current, def.Target),
			Completed:    current >= def.Target,
			ProgressText: fmt.Sprintf("%d / %d", current, def.Target),
		})
	}
	return out
}

func progress(current, target int) float64 {
	if target <= 0 {
		return 0
	}
	p := float64(current) / float64(target)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Summary counts completed tasks.
type Summary struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
}

// Summarize tallies statuses. An empty list yields the zero Summary.
func Summarize(statuses []Status) Summary {
	s := Summary{Total: len(statuses)}
	for _, st := range statuses {
		if st.Completed {
			s.Completed++
		}
	}
	if s.Total > 0 {
		s.Fraction = float64(s.Completed) / float64(s.Total)
	}
	return s
}

var defaultCatalog = sync.OnceValues(func() ([]Definition, error) {
	return catalog.Load[Definition](catalog.Tasks, "")
})

// DefaultCatalog returns the built-in tasks in display order.
func DefaultCatalog() []Definition {
	defs, err := defaultCatalog()
	if err != nil {
		panic(err)
	}
	return append([]Definition(nil), defs...)
}

// LoadCatalog reads a task catalog from path, or returns the built-in one
// when path is empty.
func LoadCatalog(path string) ([]Definition, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	return catalog.Load[Definition](catalog.Tasks, path)
}
