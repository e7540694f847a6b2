package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/dashboard"
	"github.com/focusnest/gamification-service/internal/focusapi"
	"github.com/focusnest/gamification-service/internal/settings"
	sharederrors "github.com/focusnest/gamification-service/shared/errors"
	"github.com/focusnest/gamification-service/shared/logging"
)

type errorResponse = sharederrors.ErrorResponse

func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	writeJSON(w, sharederrors.ToStatusCode(code), errorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondServiceError maps domain and upstream failures onto the error envelope.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		httpErr *focusapi.HTTPError
		netErr  net.Error
	)
	switch {
	case errors.Is(err, activity.ErrUserNotFound):
		writeError(w, r, sharederrors.CodeNotFound, err.Error())
	case errors.Is(err, activity.ErrMalformedPayload), errors.Is(err, activity.ErrMalformedTimestamp):
		writeError(w, r, sharederrors.CodeUpstreamFormat, err.Error())
	case errors.Is(err, dashboard.ErrInvalidInput), errors.Is(err, settings.ErrInvalidInput):
		writeError(w, r, sharederrors.CodeBadRequest, trimPrefix(err.Error()))
	case errors.As(err, &httpErr):
		writeError(w, r, sharederrors.CodeBadGateway, httpErr.Error())
	case errors.Is(err, focusapi.ErrInvalidBaseURL),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		writeError(w, r, sharederrors.CodeBadGateway, "focus backend unavailable: "+err.Error())
	default:
		logging.FromContext(r.Context(), logger).Error("unhandled service error", slog.String("error", err.Error()))
		writeError(w, r, "internal", "internal server error")
	}
}

// trimPrefix drops the sentinel text of an "invalid input: detail" message.
func trimPrefix(message string) string {
	if idx := strings.Index(message, ":"); idx >= 0 {
		return strings.TrimSpace(message[idx+1:])
	}
	return message
}

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
