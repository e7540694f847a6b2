// Package settings persists per-owner dashboard preferences.
package settings

import (
	"context"
	"errors"
	"time"
)

// Settings are the preferences of one authenticated owner.
type Settings struct {
	OwnerID         string    `json:"owner_id" firestore:"owner_id"`
	BaseURL         string    `json:"base_url" firestore:"base_url"`
	CurrentUsername string    `json:"current_username" firestore:"current_username"`
	UpdatedAt       time.Time `json:"updated_at" firestore:"updated_at"`
}

// UpdateInput describes a PUT /v1/settings body. Nil fields are left unchanged;
// an empty base_url resets to the service default.
type UpdateInput struct {
	BaseURL         *string `json:"base_url" validate:"omitempty,http_url"`
	CurrentUsername *string `json:"current_username" validate:"omitempty,max=128"`
}

// Repository stores settings documents keyed by owner.
type Repository interface {
	Get(ctx context.Context, ownerID string) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Delete(ctx context.Context, ownerID string) error
}

// ErrNotFound indicates no settings were saved for the owner.
var ErrNotFound = errors.New("settings not found")

// ErrInvalidInput indicates the provided data failed validation.
var ErrInvalidInput = errors.New("invalid input")
