package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/focusnest/gamification-service/internal/achievement"
	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/metrics"
	"github.com/focusnest/gamification-service/internal/task"
	"github.com/focusnest/gamification-service/shared/logging"
)

// View is the full derived dashboard for one user.
type View struct {
	Username             string                  `json:"username"`
	Record               activity.RecordView     `json:"record"`
	FetchedAt            time.Time               `json:"fetched_at"`
	Stale                bool                    `json:"stale"`
	UpdateStatus         string                  `json:"update_status"`
	Snapshot             metrics.Snapshot        `json:"snapshot"`
	TotalPlayTimeText    string                  `json:"total_play_time_text"`
	Trend                TrendView               `json:"trend"`
	LatestSession        *metrics.SessionSummary `json:"latest_session"`
	LatestSessionText    string                  `json:"latest_session_text"`
	LevelProgress        metrics.LevelProgress   `json:"level_progress"`
	Achievements         []achievement.Status    `json:"achievements"`
	AchievementsUnlocked int                     `json:"achievements_unlocked"`
	Tasks                TaskView                `json:"tasks"`
	RankPosition         *int                    `json:"rank_position"`
}

// TrendView is the play-time chart with its header totals.
type TrendView struct {
	Days    int                  `json:"days"`
	Points  []metrics.TrendPoint `json:"points"`
	Summary metrics.TrendSummary `json:"summary"`
}

// TaskView pairs task statuses with their completion tally.
type TaskView struct {
	Items   []task.Status `json:"items"`
	Summary task.Summary  `json:"summary"`
}

// noSessionText is shown when no session has completed yet.
const noSessionText = "No completed sessions yet"

// Dashboard refreshes username and derives the full view. The leaderboard
// is fetched concurrently; when it fails the view is returned without a
// rank position.
func (s *Service) Dashboard(ctx context.Context, username string) (View, error) {
	var (
		ref  Refreshed
		rank []activity.RankEntry
	)
	logger := logging.FromContext(ctx, s.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ref, err = s.Refresh(gctx, username)
		return err
	})
	g.Go(func() error {
		entries, err := s.Rank(gctx)
		if err != nil {
			logger.Warn("rank unavailable", slog.String("error", err.Error()))
			return nil
		}
		rank = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	return s.buildView(ref, rank), nil
}

func (s *Service) buildView(ref Refreshed, rank []activity.RankEntry) View {
	rec := ref.Record
	now := s.calc.Now()
	snap := s.calc.Snapshot(rec)
	fetchedAt := ref.FetchedAt

	achievements := achievement.Evaluate(s.achievements, rec, snap, s.calc)
	tasks := task.Evaluate(s.tasks, snap)

	v := View{
		Username:             rec.Username(),
		Record:               rec.ViewAt(now),
		FetchedAt:            fetchedAt.In(s.calc.Location()),
		Stale:                ref.Stale,
		UpdateStatus:         metrics.FormatUpdateStatus(now, &fetchedAt),
		Snapshot:             snap,
		TotalPlayTimeText:    metrics.FormatSeconds(snap.TotalPlayTimeSeconds),
		Trend:                s.trendView(rec, metrics.DefaultTrendDays),
		LatestSessionText:    noSessionText,
		LevelProgress:        s.calc.LevelProgress(rec),
		Achievements:         achievements,
		AchievementsUnlocked: achievement.CountUnlocked(achievements),
		Tasks:                TaskView{Items: tasks, Summary: task.Summarize(tasks)},
	}
	if latest, ok := s.calc.LatestCompletedSessionSummary(rec); ok {
		v.LatestSession = &latest
		v.LatestSessionText = fmt.Sprintf("%s (score %s)", latest.DurationText, latest.ScoreText())
	}
	if pos, ok := activity.RankOf(rank, rec.Username()); ok {
		v.RankPosition = &pos
	}
	return v
}

// Trend refreshes username and returns the last days of play time. days of
// zero selects the default window.
func (s *Service) Trend(ctx context.Context, username string, days int) (TrendView, error) {
	if days == 0 {
		days = metrics.DefaultTrendDays
	}
	if days < 1 || days > MaxTrendDays {
		return TrendView{}, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, MaxTrendDays)
	}
	ref, err := s.Refresh(ctx, username)
	if err != nil {
		return TrendView{}, err
	}
	return s.trendView(ref.Record, days), nil
}

func (s *Service) trendView(rec activity.Record, days int) TrendView {
	points := s.calc.TrendSeries(rec, days)
	return TrendView{Days: days, Points: points, Summary: metrics.SummarizeTrend(points)}
}

// Achievements refreshes username and evaluates the achievement catalog.
func (s *Service) Achievements(ctx context.Context, username string) ([]achievement.Status, error) {
	ref, err := s.Refresh(ctx, username)
	if err != nil {
		return nil, err
	}
	return achievement.Evaluate(s.achievements, ref.Record, s.calc.Snapshot(ref.Record), s.calc), nil
}

// Tasks refreshes username and evaluates the task catalog.
func (s *Service) Tasks(ctx context.Context, username string) (TaskView, error) {
	ref, err := s.Refresh(ctx, username)
	if err != nil {
		return TaskView{}, err
	}
	items := task.Evaluate(s.tasks, s.calc.Snapshot(ref.Record))
	return TaskView{Items: items, Summary: task.Summarize(items)}, nil
}
