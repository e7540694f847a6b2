package achievement

import (
	"sync"
	"time"

	"github.com/focusnest/gamification-service/internal/catalog"
	"github.com/focusnest/gamification-service/internal/metrics"
)

// Rarity grades an achievement for display.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Metric identifies which snapshot value an achievement is measured against.
type Metric string

const (
	MetricSessions Metric = "sessions"
	MetricHours    Metric = "hours"
	MetricLevel    Metric = "level"
	MetricScore    Metric = "score"
	MetricStreak   Metric = "streak"
)

// Definition is one catalog entry. IDs are stable because clients may store them.
type Definition struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Title       string `json:"title" yaml:"title" validate:"required"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
	Rarity      Rarity `json:"rarity" yaml:"rarity" validate:"required,oneof=common rare epic legendary"`
	Metric      Metric `json:"metric" yaml:"metric" validate:"required,oneof=sessions hours level score streak"`
	Threshold   int    `json:"threshold" yaml:"threshold" validate:"gte=0"`
}

// Value reads the definition's metric from a snapshot. Hours are whole hours.
func (d Definition) Value(s metrics.Snapshot) int {
	switch d.Metric {
	case MetricSessions:
		return s.TotalSessions
	case MetricHours:
		return s.TotalPlayTimeHours()
	case MetricLevel:
		return s.Level
	case MetricScore:
		return s.Score
	case MetricStreak:
		return s.Streak
	default:
		return 0
	}
}

// Status is the evaluated state of one achievement for one record.
type Status struct {
	Achievement Definition `json:"achievement"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at"`
}

var defaultCatalog = sync.OnceValues(func() ([]Definition, error) {
	return catalog.Load[Definition](catalog.Achievements, "")
})

// DefaultCatalog returns the built-in achievements in display order.
func DefaultCatalog() []Definition {
	defs, err := defaultCatalog()
	if err != nil {
		panic(err)
	}
	return append([]Definition(nil), defs...)
}

// LoadCatalog reads an achievement catalog from path, or returns the
// built-in one when path is empty.
func LoadCatalog(path string) ([]Definition, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	return catalog.Load[Definition](catalog.Achievements, path)
}
