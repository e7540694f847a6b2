package activity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for records that arrive without one.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

// NewUUIDGenerator returns an IDGenerator that produces v7 UUIDs where available, falling back to v4.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// DefaultBackendOffset is the backend's wall-clock offset (UTC+8).
const DefaultBackendOffset = 8 * time.Hour

// FixedOffset parses "+08:00", "-0530", "+8" or "UTC" into a fixed zone.
func FixedOffset(spec string) (*time.Location, error) {
	s := strings.TrimSpace(spec)
	if s == "" || strings.EqualFold(s, "utc") || s == "Z" {
		return time.UTC, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "UTC"), "utc")

	sign := 1
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	default:
		return nil, fmt.Errorf("offset %q must start with + or -", spec)
	}

	var hours, minutes int
	switch {
	case strings.Contains(s, ":"):
		if _, err := fmt.Sscanf(s, "%d:%d", &hours, &minutes); err != nil {
			return nil, fmt.Errorf("parse offset %q: %w", spec, err)
		}
	case len(s) == 4:
		if _, err := fmt.Sscanf(s, "%2d%2d", &hours, &minutes); err != nil {
			return nil, fmt.Errorf("parse offset %q: %w", spec, err)
		}
	default:
		if _, err := fmt.Sscanf(s, "%d", &hours); err != nil {
			return nil, fmt.Errorf("parse offset %q: %w", spec, err)
		}
	}
	if hours > 14 || minutes < 0 || minutes >= 60 {
		return nil, fmt.Errorf("offset %q out of range", spec)
	}

	seconds := sign * (hours*3600 + minutes*60)
	return OffsetLocation(time.Duration(seconds) * time.Second), nil
}

// OffsetLocation returns a fixed zone named after its offset, e.g. "UTC+08:00".
func OffsetLocation(offset time.Duration) *time.Location {
	secs := int(offset / time.Second)
	sign := '+'
	abs := secs
	if secs < 0 {
		sign = '-'
		abs = -secs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/3600, (abs%3600)/60)
	return time.FixedZone(name, secs)
}
