// Package dashboard assembles the derived focus dashboard for a user from
// the tracker backend.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/focusnest/gamification-service/internal/achievement"
	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/clock"
	"github.com/focusnest/gamification-service/internal/focusapi"
	"github.com/focusnest/gamification-service/internal/history"
	"github.com/focusnest/gamification-service/internal/metrics"
	"github.com/focusnest/gamification-service/internal/task"
	"github.com/focusnest/gamification-service/shared/auth"
	"github.com/focusnest/gamification-service/shared/logging"
	"github.com/focusnest/gamification-service/shared/telemetry"
)

// MaxTrendDays bounds the trend window a caller may request.
const MaxTrendDays = 90

// anonymousOwner keys history for unauthenticated requests.
const anonymousOwner = "anonymous"

// ErrInvalidInput indicates a request parameter failed validation.
var ErrInvalidInput = errors.New("invalid input")

// Backend is the subset of the tracker API the dashboard reads.
type Backend interface {
	FetchStatus(ctx context.Context, username string) ([]byte, error)
	FetchAll(ctx context.Context) ([]byte, error)
	FetchUsers(ctx context.Context) ([]byte, error)
	FetchRank(ctx context.Context) ([]byte, error)
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Achievements []achievement.Definition
	Tasks        []task.Definition
	History      history.Repository
	Metrics      *telemetry.Metrics
	Logger       *slog.Logger
	Clock        clock.Clock
}

type cachedRecord struct {
	record    activity.Record
	fetchedAt time.Time
}

// Service fetches, normalizes and derives. It remembers the latest record
// per owner and user so a backend outage can be answered with stale data.
type Service struct {
	backend      Backend
	normalizer   *activity.Normalizer
	calc         *metrics.Calculator
	achievements []achievement.Definition
	tasks        []task.Definition
	history      history.Repository
	metrics      *telemetry.Metrics
	logger       *slog.Logger
	clock        clock.Clock

	mu     sync.RWMutex
	latest map[string]cachedRecord
}

// NewService wires a dashboard service. Nil catalogs fall back to the
// built-in ones.
func NewService(backend Backend, normalizer *activity.Normalizer, calc *metrics.Calculator, opts Options) (*Service, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if normalizer == nil {
		return nil, errors.New("normalizer is required")
	}
	if calc == nil {
		return nil, errors.New("calculator is required")
	}
	if opts.Achievements == nil {
		opts.Achievements = achievement.DefaultCatalog()
	}
	if opts.Tasks == nil {
		opts.Tasks = task.DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystemClock()
	}
	return &Service{
		backend:      backend,
		normalizer:   normalizer,
		calc:         calc,
		achievements: opts.Achievements,
		tasks:        opts.Tasks,
		history:      opts.History,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		clock:        opts.Clock,
		latest:       make(map[string]cachedRecord),
	}, nil
}

// Refreshed is a record together with when it was fetched. Stale is set
// when the backend was unreachable and a cached record was served instead.
type Refreshed struct {
	Record    activity.Record
	FetchedAt time.Time
	Stale     bool
}

// Refresh fetches and normalizes username's record. Transport and backend
// HTTP failures fall back to the last good record when one is cached;
// normalization failures and unknown users never do.
func (s *Service) Refresh(ctx context.Context, username string) (Refreshed, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Refreshed{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	logger := logging.FromContext(ctx, s.logger).With(slog.String("username", username))

	raw, err := s.backend.FetchStatus(ctx, username)
	if err != nil {
		var httpErr *focusapi.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
			s.metrics.ObserveNormalization(string(activity.KindUserNotFound))
			return Refreshed{}, &activity.NormalizationError{Kind: activity.KindUserNotFound, Username: username, Err: err}
		}
		if cached, ok := s.cached(ctx, username); ok {
			logger.Warn("backend unavailable, serving cached record", slog.String("error", err.Error()))
			return Refreshed{Record: cached.record, FetchedAt: cached.fetchedAt, Stale: true}, nil
		}
		return Refreshed{}, fmt.Errorf("fetch status: %w", err)
	}

	rec, err := s.normalize(logger, raw, username)
	if err != nil {
		return Refreshed{}, err
	}

	fetchedAt := s.clock.Now()
	s.store(ctx, username, rec, fetchedAt)
	s.appendHistory(ctx, logger, username, rec, fetchedAt)
	return Refreshed{Record: rec, FetchedAt: fetchedAt}, nil
}

// RefreshAllResult reports a bulk refresh.
type RefreshAllResult struct {
	Refreshed []string `json:"refreshed"`
	Missing   []string `json:"missing"`
}

// RefreshAll loads the full /status listing once and normalizes the record
// of every user /users knows about, warming the cache.
func (s *Service) RefreshAll(ctx context.Context) (RefreshAllResult, error) {
	var names []string
	var listing []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		names, err = s.Users(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		listing, err = s.backend.FetchAll(gctx)
		if err != nil {
			return fmt.Errorf("fetch status list: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return RefreshAllResult{}, err
	}

	logger := logging.FromContext(ctx, s.logger)
	fetchedAt := s.clock.Now()
	result := RefreshAllResult{Refreshed: []string{}, Missing: []string{}}
	for _, name := range names {
		rec, err := s.normalize(logger.With(slog.String("username", name)), listing, name)
		if errors.Is(err, activity.ErrUserNotFound) {
			result.Missing = append(result.Missing, name)
			continue
		}
		if err != nil {
			return result, err
		}
		s.store(ctx, name, rec, fetchedAt)
		result.Refreshed = append(result.Refreshed, name)
	}
	return result, nil
}

// Users lists the usernames known to the backend.
func (s *Service) Users(ctx context.Context) ([]string, error) {
	raw, err := s.backend.FetchUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	names, err := activity.NormalizeUsernames(raw)
	if err != nil {
		s.metrics.ObserveNormalization(string(activity.KindOf(err)))
		return nil, err
	}
	return names, nil
}

// Rank returns the normalized leaderboard.
func (s *Service) Rank(ctx context.Context) ([]activity.RankEntry, error) {
	raw, err := s.backend.FetchRank(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rank: %w", err)
	}
	entries, err := activity.NormalizeRanking(raw)
	if err != nil {
		s.metrics.ObserveNormalization(string(activity.KindOf(err)))
		return nil, err
	}
	return entries, nil
}

// History lists the caller's recent refreshes of username.
func (s *Service) History(ctx context.Context, username string, limit int) ([]history.Entry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if s.history == nil {
		return []history.Entry{}, nil
	}
	owner := auth.UserIDFromContext(ctx, anonymousOwner)
	entries, err := s.history.ListRecent(ctx, owner, username, history.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// LastFetched reports when the caller's cached record of username was fetched.
func (s *Service) LastFetched(ctx context.Context, username string) (time.Time, bool) {
	c, ok := s.cached(ctx, username)
	return c.fetchedAt, ok
}

func (s *Service) normalize(logger *slog.Logger, raw []byte, username string) (activity.Record, error) {
	rec, err := s.normalizer.Normalize(raw, username)
	if err != nil {
		kind := activity.KindOf(err)
		s.metrics.ObserveNormalization(string(kind))
		attrs := []any{slog.String("kind", string(kind)), slog.String("error", err.Error())}
		var nerr *activity.NormalizationError
		if errors.As(err, &nerr) && nerr.Field != "" {
			attrs = append(attrs, slog.String("field", nerr.Field))
		}
		logger.Warn("normalize activity payload", attrs...)
		return activity.Record{}, err
	}
	s.metrics.ObserveNormalization("")
	return rec, nil
}

// cacheKey scopes cached records to the caller, whose settings pick the backend.
func cacheKey(ctx context.Context, username string) string {
	return auth.UserIDFromContext(ctx, anonymousOwner) + "/" + strings.ToLower(username)
}

func (s *Service) cached(ctx context.Context, username string) (cachedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.latest[cacheKey(ctx, username)]
	return c, ok
}

func (s *Service) store(ctx context.Context, username string, rec activity.Record, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[cacheKey(ctx, username)] = cachedRecord{record: rec, fetchedAt: fetchedAt}
}

func (s *Service) appendHistory(ctx context.Context, logger *slog.Logger, username string, rec activity.Record, fetchedAt time.Time) {
	if s.history == nil {
		return
	}
	snap := s.calc.Snapshot(rec)
	err := s.history.Append(ctx, history.Entry{
		OwnerID:              auth.UserIDFromContext(ctx, anonymousOwner),
		Username:             rec.Username(),
		FetchedAt:            fetchedAt.UTC(),
		Level:                snap.Level,
		Score:                snap.Score,
		TotalSessions:        snap.TotalSessions,
		TotalPlayTimeSeconds: snap.TotalPlayTimeSeconds,
		Streak:               snap.Streak,
	})
	if err != nil {
		logger.Warn("append refresh history", slog.String("error", err.Error()))
	}
}
