// Package httpapi exposes the dashboard and settings over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/gamification-service/internal/achievement"
	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/control"
	"github.com/focusnest/gamification-service/internal/dashboard"
	"github.com/focusnest/gamification-service/internal/history"
	"github.com/focusnest/gamification-service/internal/settings"
	sharedauth "github.com/focusnest/gamification-service/shared/auth"
	sharederrors "github.com/focusnest/gamification-service/shared/errors"
)

// DashboardService is the read side served under /v1/users and /v1/rank.
type DashboardService interface {
	Dashboard(ctx context.Context, username string) (dashboard.View, error)
	Trend(ctx context.Context, username string, days int) (dashboard.TrendView, error)
	Achievements(ctx context.Context, username string) ([]achievement.Status, error)
	Tasks(ctx context.Context, username string) (dashboard.TaskView, error)
	History(ctx context.Context, username string, limit int) ([]history.Entry, error)
	Users(ctx context.Context) ([]string, error)
	Rank(ctx context.Context) ([]activity.RankEntry, error)
	RefreshAll(ctx context.Context) (dashboard.RefreshAllResult, error)
}

// SettingsService stores per-owner preferences.
type SettingsService interface {
	Get(ctx context.Context, ownerID string) (settings.Settings, error)
	Update(ctx context.Context, ownerID string, in settings.UpdateInput) (settings.Settings, error)
	Reset(ctx context.Context, ownerID string) (settings.Settings, error)
}

// ControlService drives the tracker device button.
type ControlService interface {
	Status(ctx context.Context) (control.Status, error)
	Toggle(ctx context.Context) (control.Status, error)
}

// RegisterRoutes wires the v1 routes onto the provided router. The control
// routes are only mounted when ctl is non-nil.
func RegisterRoutes(r chi.Router, dash DashboardService, prefs SettingsService, ctl ControlService, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{dashboard: dash, settings: prefs, control: ctl, logger: logger}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/users", h.listUsers)
		r.Get("/rank", h.rank)
		r.Post("/refresh", h.refreshAll)
		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/dashboard", h.getDashboard)
			r.Get("/trend", h.getTrend)
			r.Get("/achievements", h.listAchievements)
			r.Get("/tasks", h.listTasks)
			r.Get("/history", h.listHistory)
		})
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.getSettings)
			r.Put("/", h.updateSettings)
			r.Delete("/", h.resetSettings)
		})
		if ctl != nil {
			r.Route("/control", func(r chi.Router) {
				r.Get("/", h.controlStatus)
				r.Post("/toggle", h.toggleControl)
			})
		}
	})
}

type handler struct {
	dashboard DashboardService
	settings  SettingsService
	control   ControlService
	logger    *slog.Logger
}

type usersResponse struct {
	Usernames []string `json:"usernames"`
}

type rankEntryResponse struct {
	Position int    `json:"position"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type rankResponse struct {
	Entries []rankEntryResponse `json:"entries"`
}

type achievementsResponse struct {
	Unlocked int                  `json:"unlocked"`
	Total    int                  `json:"total"`
	Items    []achievement.Status `json:"items"`
}

type historyResponse struct {
	Username string          `json:"username"`
	Entries  []history.Entry `json:"entries"`
}

type settingsRequest struct {
	BaseURL         *string `json:"base_url"`
	CurrentUsername *string `json:"current_username"`
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	names, err := h.dashboard.Users(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Usernames: names})
}

func (h *handler) rank(w http.ResponseWriter, r *http.Request) {
	entries, err := h.dashboard.Rank(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	out := rankResponse{Entries: make([]rankEntryResponse, 0, len(entries))}
	for _, e := range entries {
		pos, _ := activity.RankOf(entries, e.Username)
		out.Entries = append(out.Entries, rankEntryResponse{Position: pos, Username: e.Username, Score: e.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) refreshAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.dashboard.RefreshAll(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.Dashboard(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) getTrend(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, sharederrors.CodeBadRequest, "days must be an integer")
			return
		}
		days = parsed
	}

	tv, err := h.dashboard.Trend(r.Context(), chi.URLParam(r, "username"), days)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tv)
}

func (h *handler) listAchievements(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.dashboard.Achievements(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, achievementsResponse{
		Unlocked: achievement.CountUnlocked(statuses),
		Total:    len(statuses),
		Items:    statuses,
	})
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tv, err := h.dashboard.Tasks(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tv)
}

func (h *handler) listHistory(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	limit := parsePositiveInt(r.URL.Query().Get("limit"), history.DefaultLimit)

	entries, err := h.dashboard.History(r.Context(), username, limit)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Username: username, Entries: entries})
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, sharederrors.CodeBadRequest, "invalid JSON body")
		return
	}

	st, err := h.settings.Update(r.Context(), ownerID(r), settings.UpdateInput{
		BaseURL:         req.BaseURL,
		CurrentUsername: req.CurrentUsername,
	})
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) resetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Reset(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) controlStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.control.Status(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) toggleControl(w http.ResponseWriter, r *http.Request) {
	st, err := h.control.Toggle(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func ownerID(r *http.Request) string {
	return sharedauth.UserIDFromContext(r.Context(), settings.AnonymousOwner)
}
