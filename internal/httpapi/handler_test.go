package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/gamification-service/internal/achievement"
	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/clock"
	"github.com/focusnest/gamification-service/internal/control"
	"github.com/focusnest/gamification-service/internal/dashboard"
	"github.com/focusnest/gamification-service/internal/focusapi"
	"github.com/focusnest/gamification-service/internal/history"
	"github.com/focusnest/gamification-service/internal/settings"
	sharedauth "github.com/focusnest/gamification-service/shared/auth"
	sharederrors "github.com/focusnest/gamification-service/shared/errors"
)

type fakeDashboard struct {
	dashboardFn    func(ctx context.Context, username string) (dashboard.View, error)
	trendFn        func(ctx context.Context, username string, days int) (dashboard.TrendView, error)
	achievementsFn func(ctx context.Context, username string) ([]achievement.Status, error)
	tasksFn        func(ctx context.Context, username string) (dashboard.TaskView, error)
	historyFn      func(ctx context.Context, username string, limit int) ([]history.Entry, error)
	usersFn        func(ctx context.Context) ([]string, error)
	rankFn         func(ctx context.Context) ([]activity.RankEntry, error)
	refreshAllFn   func(ctx context.Context) (dashboard.RefreshAllResult, error)
}

func (f *fakeDashboard) Dashboard(ctx context.Context, username string) (dashboard.View, error) {
	return f.dashboardFn(ctx, username)
}

func (f *fakeDashboard) Trend(ctx context.Context, username string, days int) (dashboard.TrendView, error) {
	return f.trendFn(ctx, username, days)
}

func (f *fakeDashboard) Achievements(ctx context.Context, username string) ([]achievement.Status, error) {
	return f.achievementsFn(ctx, username)
}

func (f *fakeDashboard) Tasks(ctx context.Context, username string) (dashboard.TaskView, error) {
	return f.tasksFn(ctx, username)
}

func (f *fakeDashboard) History(ctx context.Context, username string, limit int) ([]history.Entry, error) {
	return f.historyFn(ctx, username, limit)
}

func (f *fakeDashboard) Users(ctx context.Context) ([]string, error) {
	return f.usersFn(ctx)
}

func (f *fakeDashboard) Rank(ctx context.Context) ([]activity.RankEntry, error) {
	return f.rankFn(ctx)
}

func (f *fakeDashboard) RefreshAll(ctx context.Context) (dashboard.RefreshAllResult, error) {
	return f.refreshAllFn(ctx)
}

type fakeControl struct {
	statusFn func(ctx context.Context) (control.Status, error)
	toggleFn func(ctx context.Context) (control.Status, error)
}

func (f *fakeControl) Status(ctx context.Context) (control.Status, error) {
	return f.statusFn(ctx)
}

func (f *fakeControl) Toggle(ctx context.Context) (control.Status, error) {
	return f.toggleFn(ctx)
}

func newTestRouter(t *testing.T, dash *fakeDashboard) http.Handler {
	t.Helper()
	return newControlRouter(t, dash, nil)
}

func newControlRouter(t *testing.T, dash *fakeDashboard, ctl ControlService) http.Handler {
	t.Helper()
	prefs, err := settings.NewService(settings.NewMemoryRepository(),
		clock.NewFakeClock(time.Date(2025, 12, 10, 7, 0, 0, 0, time.UTC)),
		settings.Defaults{BaseURL: focusapi.DefaultBaseURL})
	require.NoError(t, err)

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{Mode: sharedauth.ModeNoop})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(sharedauth.Middleware(verifier))
		RegisterRoutes(r, dash, prefs, ctl, nil)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) sharederrors.ErrorResponse {
	t.Helper()
	var body sharederrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDashboardRoute(t *testing.T) {
	dash := &fakeDashboard{
		dashboardFn: func(_ context.Context, username string) (dashboard.View, error) {
			assert.Equal(t, "bob", username)
			return dashboard.View{Username: "bob", UpdateStatus: "Updated just now."}, nil
		},
	}
	rec := do(t, newTestRouter(t, dash), http.MethodGet, "/v1/users/bob/dashboard", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Updated just now.", body["update_status"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown user", &activity.NormalizationError{Kind: activity.KindUserNotFound, Username: "ghost"}, http.StatusNotFound, sharederrors.CodeNotFound},
		{"malformed payload", &activity.NormalizationError{Kind: activity.KindMalformedPayload, Field: "level"}, http.StatusBadGateway, sharederrors.CodeUpstreamFormat},
		{"malformed timestamp", &activity.NormalizationError{Kind: activity.KindMalformedTimestamp, Field: "sessions[0].start_time"}, http.StatusBadGateway, sharederrors.CodeUpstreamFormat},
		{"backend status", &focusapi.HTTPError{Status: 500, Body: "boom"}, http.StatusBadGateway, sharederrors.CodeBadGateway},
		{"bad base url", focusapi.ErrInvalidBaseURL, http.StatusBadGateway, sharederrors.CodeBadGateway},
		{"bad input", errors.Join(dashboard.ErrInvalidInput), http.StatusBadRequest, sharederrors.CodeBadRequest},
		{"unexpected", errors.New("kaboom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := &fakeDashboard{
				dashboardFn: func(context.Context, string) (dashboard.View, error) { return dashboard.View{}, tt.err },
			}
			rec := do(t, newTestRouter(t, dash), http.MethodGet, "/v1/users/ghost/dashboard", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestTrendRoute(t *testing.T) {
	var gotDays int
	dash := &fakeDashboard{
		trendFn: func(_ context.Context, _ string, days int) (dashboard.TrendView, error) {
			gotDays = days
			return dashboard.TrendView{Days: days}, nil
		},
	}
	router := newTestRouter(t, dash)

	rec := do(t, router, http.MethodGet, "/v1/users/bob/trend?days=14", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, gotDays)

	rec = do(t, router, http.MethodGet, "/v1/users/bob/trend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, gotDays)

	rec = do(t, router, http.MethodGet, "/v1/users/bob/trend?days=week", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersAndRankRoutes(t *testing.T) {
	dash := &fakeDashboard{
		usersFn: func(context.Context) ([]string, error) { return []string{"alice", "bob"}, nil },
		rankFn: func(context.Context) ([]activity.RankEntry, error) {
			return []activity.RankEntry{{Username: "alice", Score: 50}, {Username: "bob", Score: 50}, {Username: "carol", Score: 10}}, nil
		},
	}
	router := newTestRouter(t, dash)

	rec := do(t, router, http.MethodGet, "/v1/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"usernames":["alice","bob"]}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/v1/rank", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[
		{"position":1,"username":"alice","score":50},
		{"position":1,"username":"bob","score":50},
		{"position":3,"username":"carol","score":10}
	]}`, rec.Body.String())
}

func TestAchievementsTasksHistoryRoutes(t *testing.T) {
	dash := &fakeDashboard{
		achievementsFn: func(context.Context, string) ([]achievement.Status, error) {
			return []achievement.Status{{Unlocked: true}, {Unlocked: false}}, nil
		},
		tasksFn: func(context.Context, string) (dashboard.TaskView, error) {
			return dashboard.TaskView{}, nil
		},
		historyFn: func(_ context.Context, _ string, limit int) ([]history.Entry, error) {
			assert.Equal(t, 5, limit)
			return []history.Entry{{Username: "bob", Score: 10}}, nil
		},
	}
	router := newTestRouter(t, dash)

	rec := do(t, router, http.MethodGet, "/v1/users/bob/achievements", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ach achievementsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ach))
	assert.Equal(t, 1, ach.Unlocked)
	assert.Equal(t, 2, ach.Total)

	rec = do(t, router, http.MethodGet, "/v1/users/bob/tasks", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/users/bob/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, "bob", hist.Username)
}

func TestRefreshAllRoute(t *testing.T) {
	dash := &fakeDashboard{
		refreshAllFn: func(context.Context) (dashboard.RefreshAllResult, error) {
			return dashboard.RefreshAllResult{Refreshed: []string{"bob"}, Missing: []string{}}, nil
		},
	}
	rec := do(t, newTestRouter(t, dash), http.MethodPost, "/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"refreshed":["bob"],"missing":[]}`, rec.Body.String())
}

func TestSettingsRoutes(t *testing.T) {
	router := newTestRouter(t, &fakeDashboard{})

	rec := do(t, router, http.MethodGet, "/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st settings.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "user-1", st.OwnerID)
	assert.Equal(t, focusapi.DefaultBaseURL, st.BaseURL)

	rec = do(t, router, http.MethodPut, "/v1/settings", `{"base_url": "http://10.0.0.7:8000", "current_username": "bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "http://10.0.0.7:8000", st.BaseURL)
	assert.Equal(t, "bob", st.CurrentUsername)

	rec = do(t, router, http.MethodPut, "/v1/settings", `{"base_url": "not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, sharederrors.CodeBadRequest, decodeError(t, rec).Code)

	rec = do(t, router, http.MethodPut, "/v1/settings", `{"theme": "dark"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, focusapi.DefaultBaseURL, st.BaseURL)
}

func TestRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t, &fakeDashboard{})
	req := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestControlRoutes(t *testing.T) {
	tracking := false
	ctl := &fakeControl{
		statusFn: func(context.Context) (control.Status, error) {
			return control.Status{ButtonStatus: 0, Tracking: tracking}, nil
		},
		toggleFn: func(context.Context) (control.Status, error) {
			tracking = !tracking
			return control.Status{ButtonStatus: 1, Tracking: tracking, Message: "Tracker started"}, nil
		},
	}
	router := newControlRouter(t, &fakeDashboard{}, ctl)

	rec := do(t, router, http.MethodGet, "/v1/control", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st control.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Tracking)

	rec = do(t, router, http.MethodPost, "/v1/control/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Tracking)
	assert.Equal(t, "Tracker started", st.Message)
}

func TestControlRoutes_MalformedBackendIsBadGateway(t *testing.T) {
	ctl := &fakeControl{
		statusFn: func(context.Context) (control.Status, error) {
			_, err := control.ParseStatus([]byte(`{"task_thread":"idle"}`))
			return control.Status{}, err
		},
	}
	rec := do(t, newControlRouter(t, &fakeDashboard{}, ctl), http.MethodGet, "/v1/control", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestControlRoutes_NotMountedWithoutService(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeDashboard{}), http.MethodGet, "/v1/control", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
