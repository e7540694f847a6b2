// Package history keeps a log of successful dashboard refreshes.
package history

import (
	"context"
	"time"
)

// DefaultLimit and MaxLimit bound ListRecent.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Entry captures the headline metrics of one refresh.
type Entry struct {
	ID                   string    `json:"id" firestore:"-"`
	OwnerID              string    `json:"owner_id" firestore:"owner_id"`
	Username             string    `json:"username" firestore:"username"`
	FetchedAt            time.Time `json:"fetched_at" firestore:"fetched_at"`
	Level                int       `json:"level" firestore:"level"`
	Score                int       `json:"score" firestore:"score"`
	TotalSessions        int       `json:"total_sessions" firestore:"total_sessions"`
	TotalPlayTimeSeconds int       `json:"total_play_time_seconds" firestore:"total_play_time_seconds"`
	Streak               int       `json:"streak" firestore:"streak"`
}

// Repository appends and lists refresh entries per owner and username.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	// ListRecent returns at most limit entries, newest first.
	ListRecent(ctx context.Context, ownerID, username string, limit int) ([]Entry, error)
}

// ClampLimit maps a requested page size onto [1, MaxLimit], using
// DefaultLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
