package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// errShapeMismatch tells Normalize to try the next payload shape.
var errShapeMismatch = errors.New("payload shape mismatch")

// Normalizer turns raw backend payloads into Records. It holds configuration
// only and is safe for concurrent use.
type Normalizer struct {
	loc    *time.Location
	ids    IDGenerator
	shapes []shape
}

// NewNormalizer constructs a Normalizer. loc is the backend's fixed local
// zone used to interpret offset-less timestamps.
func NewNormalizer(loc *time.Location, ids IDGenerator) (*Normalizer, error) {
	if loc == nil {
		return nil, errors.New("location is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	return &Normalizer{
		loc:    loc,
		ids:    ids,
		shapes: []shape{objectShape{}, arrayShape{}},
	}, nil
}

// Location returns the zone timestamps are interpreted in.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Normalize parses raw as either a single record object or a list of record
// objects and returns the record for username. Shapes are tried in order and
// the first one that recognizes the payload decides the outcome; a payload
// that fails inside a recognized shape is not retried as another shape.
func (n *Normalizer) Normalize(raw []byte, username string) (Record, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return Record{}, malformedPayload("$", errors.New("empty payload"))
	}

	for _, s := range n.shapes {
		rec, err := s.parse(n, payload, username)
		if errors.Is(err, errShapeMismatch) {
			continue
		}
		if err != nil {
			return Record{}, err
		}
		return rec, nil
	}
	return Record{}, malformedPayload("$", errors.New("expected an object or an array of objects"))
}

type shape interface {
	parse(n *Normalizer, payload []byte, username string) (Record, error)
}

// objectShape is the current backend shape: GET /status/{user} returns the
// user's document directly.
type objectShape struct{}

func (objectShape) parse(n *Normalizer, payload []byte, username string) (Record, error) {
	if payload[0] != '{' {
		return Record{}, errShapeMismatch
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Record{}, malformedPayload("$", err)
	}
	// The backend answers unknown users with {"error": "..."} on some routes.
	if _, hasUser := fields["username"]; !hasUser {
		if _, hasErr := fields["error"]; hasErr {
			return Record{}, userNotFound(username)
		}
	}
	return n.parseRecord(fields)
}

// arrayShape is the older GET /status listing every user.
type arrayShape struct{}

func (arrayShape) parse(n *Normalizer, payload []byte, username string) (Record, error) {
	if payload[0] != '[' {
		return Record{}, errShapeMismatch
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return Record{}, malformedPayload("$", err)
	}

	want := strings.TrimSpace(username)
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			// Non-object elements cannot be the user we are looking for.
			continue
		}
		var name string
		if err := json.Unmarshal(fields["username"], &name); err != nil {
			continue
		}
		if want != "" && strings.EqualFold(name, want) {
			return n.parseRecord(fields)
		}
	}
	return Record{}, userNotFound(username)
}

func (n *Normalizer) parseRecord(fields map[string]json.RawMessage) (Record, error) {
	username, err := requiredString(fields, "username")
	if err != nil {
		return Record{}, err
	}

	id, err := optionalID(fields, "_id")
	if err != nil {
		return Record{}, err
	}
	if id == "" {
		id = n.ids.NewID()
	}

	level, err := optionalInt(fields, "level")
	if err != nil {
		return Record{}, err
	}
	score, err := optionalInt(fields, "score")
	if err != nil {
		return Record{}, err
	}
	slices, err := optionalInts(fields, "play_time")
	if err != nil {
		return Record{}, err
	}
	scores, err := optionalInts(fields, "scores")
	if err != nil {
		return Record{}, err
	}
	sessions, err := n.parseSessions(fields["sessions"])
	if err != nil {
		return Record{}, err
	}

	return Record{
		id:             id,
		username:       username,
		level:          max(level, 0),
		score:          max(score, 0),
		playTimeSlices: clampSlices(slices),
		sessionScores:  scores,
		sessions:       sessions,
	}, nil
}

func (n *Normalizer) parseSessions(raw json.RawMessage) ([]Session, error) {
	if isNull(raw) {
		return []Session{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformedPayload("sessions", err)
	}

	sessions := make([]Session, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("sessions[%d]", i)
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			return nil, malformedPayload(prefix, err)
		}

		startRaw, err := requiredString(fields, "start_time")
		if err != nil {
			return nil, malformedPayload(prefix+".start_time", errors.Unwrap(err))
		}
		start, err := n.parseTimestamp(prefix+".start_time", startRaw)
		if err != nil {
			return nil, err
		}

		endField := fields["end_time"]
		if isNull(endField) {
			sessions = append(sessions, NewOngoingSession(start))
			continue
		}
		var endRaw string
		if err := json.Unmarshal(endField, &endRaw); err != nil {
			return nil, malformedPayload(prefix+".end_time", err)
		}
		end, err := n.parseTimestamp(prefix+".end_time", endRaw)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, NewCompletedSession(start, end))
	}
	return sessions, nil
}

func (n *Normalizer) parseTimestamp(field, raw string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(raw), n.loc)
	if err != nil {
		return time.Time{}, malformedTimestamp(field, raw, err)
	}
	return t, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw := fields[key]
	if isNull(raw) {
		return "", malformedPayload(key, errors.New("field is required"))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformedPayload(key, err)
	}
	if strings.TrimSpace(s) == "" {
		return "", malformedPayload(key, errors.New("field must not be empty"))
	}
	return s, nil
}

// optionalID accepts a plain string or a Mongo extended-JSON {"$oid": "..."}.
func optionalID(fields map[string]json.RawMessage, key string) (string, error) {
	raw := fields[key]
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(raw, &oid); err != nil || oid.OID == "" {
		return "", malformedPayload(key, errors.New("expected a string identifier"))
	}
	return oid.OID, nil
}

func optionalInt(fields map[string]json.RawMessage, key string) (int, error) {
	raw := fields[key]
	if isNull(raw) {
		return 0, nil
	}
	return parseInt(raw, key)
}

func optionalInts(fields map[string]json.RawMessage, key string) ([]int, error) {
	raw := fields[key]
	if isNull(raw) {
		return []int{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformedPayload(key, err)
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		v, err := parseInt(item, fmt.Sprintf("%s[%d]", key, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseInt accepts JSON integers and integral floats (Python may emit 12.0).
func parseInt(raw json.RawMessage, field string) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return 0, malformedPayload(field, errors.New("expected a number"))
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return 0, malformedPayload(field, err)
	}
	if v, err := num.Int64(); err == nil {
		return int(v), nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, malformedPayload(field, fmt.Errorf("expected an integer, got %s", num))
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, malformedPayload(field, fmt.Errorf("integer %s out of range", num))
	}
	return int(f), nil
}
