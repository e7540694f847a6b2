// Package control reads and flips the tracker device's on/off button.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/shared/logging"
)

// Backend is the device subset of the tracker API.
type Backend interface {
	FetchButtonStatus(ctx context.Context) ([]byte, error)
	ToggleButton(ctx context.Context) ([]byte, error)
}

// Status is the tracker's button state. Tracking is true while the camera
// tracker runs.
type Status struct {
	ButtonStatus int    `json:"button_status"`
	Tracking     bool   `json:"tracking"`
	Message      string `json:"message,omitempty"`
}

// Service exposes the device button.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// NewService wires a control service.
func NewService(backend Backend, logger *slog.Logger) (*Service, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, logger: logger}, nil
}

// Status returns the current button state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	raw, err := s.backend.FetchButtonStatus(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("fetch button status: %w", err)
	}
	return ParseStatus(raw)
}

// Toggle flips the button and reports the state that followed.
func (s *Service) Toggle(ctx context.Context) (Status, error) {
	raw, err := s.backend.ToggleButton(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("toggle button: %w", err)
	}
	var ack struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return Status{}, &activity.NormalizationError{Kind: activity.KindMalformedPayload, Field: "msg", Err: err}
	}

	st, err := s.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	st.Message = ack.Msg
	logging.FromContext(ctx, s.logger).Info("tracker toggled",
		slog.Bool("tracking", st.Tracking),
		slog.String("message", ack.Msg),
	)
	return st, nil
}

// ParseStatus decodes {"button_status": 0|1}.
func ParseStatus(raw []byte) (Status, error) {
	var payload struct {
		ButtonStatus *int `json:"button_status"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Status{}, &activity.NormalizationError{Kind: activity.KindMalformedPayload, Field: "$", Err: err}
	}
	if payload.ButtonStatus == nil {
		return Status{}, &activity.NormalizationError{
			Kind:  activity.KindMalformedPayload,
			Field: "button_status",
			Err:   errors.New("field is required"),
		}
	}
	return Status{ButtonStatus: *payload.ButtonStatus, Tracking: *payload.ButtonStatus == 1}, nil
}
