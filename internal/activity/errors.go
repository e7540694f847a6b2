package activity

import (
	"errors"
	"fmt"
)

// Kind classifies a normalization failure.
type Kind string

const (
	KindMalformedPayload   Kind = "malformed_payload"
	KindMalformedTimestamp Kind = "malformed_timestamp"
	KindUserNotFound       Kind = "user_not_found"
)

var (
	// ErrMalformedPayload matches a structurally invalid payload.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrMalformedTimestamp matches a timestamp that does not fit TimestampLayout.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrUserNotFound matches a list payload without the requested user.
	ErrUserNotFound = errors.New("user not found")
)

// NormalizationError describes why a payload could not become a Record.
// It matches the Err* sentinels with errors.Is.
type NormalizationError struct {
	Kind     Kind
	Field    string
	RawValue string
	Username string
	Err      error
}

func (e *NormalizationError) Error() string {
	switch e.Kind {
	case KindMalformedTimestamp:
		return fmt.Sprintf("malformed timestamp in %s: %q", e.Field, e.RawValue)
	case KindUserNotFound:
		return fmt.Sprintf("user %s not found in response", e.Username)
	default:
		if e.Err != nil {
			return fmt.Sprintf("malformed payload at %s: %v", e.Field, e.Err)
		}
		return fmt.Sprintf("malformed payload at %s", e.Field)
	}
}

func (e *NormalizationError) Is(target error) bool {
	switch target {
	case ErrMalformedPayload:
		return e.Kind == KindMalformedPayload
	case ErrMalformedTimestamp:
		return e.Kind == KindMalformedTimestamp
	case ErrUserNotFound:
		return e.Kind == KindUserNotFound
	}
	return false
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" when err is not a NormalizationError.
func KindOf(err error) Kind {
	var nerr *NormalizationError
	if errors.As(err, &nerr) {
		return nerr.Kind
	}
	return ""
}

func malformedPayload(field string, cause error) error {
	return &NormalizationError{Kind: KindMalformedPayload, Field: field, Err: cause}
}

func malformedTimestamp(field, raw string, cause error) error {
	return &NormalizationError{Kind: KindMalformedTimestamp, Field: field, RawValue: raw, Err: cause}
}

func userNotFound(username string) error {
	return &NormalizationError{Kind: KindUserNotFound, Username: username}
}
