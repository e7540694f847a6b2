package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// NormalizeRanking parses the leaderboard payload, a list of
// {"username", "score"} objects. Entries without a username are dropped. The
// result is ordered by score descending, then username.
func NormalizeRanking(raw []byte) ([]RankEntry, error) {
	payload := bytes.TrimSpace(raw)
	if isNull(payload) {
		return []RankEntry{}, nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, malformedPayload("$", err)
	}

	entries := make([]RankEntry, 0, len(items))
	for i, fields := range items {
		var name string
		if err := json.Unmarshal(fields["username"], &name); err != nil || strings.TrimSpace(name) == "" {
			continue
		}
		score, err := optionalInt(fields, "score")
		if err != nil {
			return nil, malformedPayload(fmt.Sprintf("[%d].score", i), errors.Unwrap(err))
		}
		entries = append(entries, RankEntry{Username: name, Score: max(score, 0)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return strings.ToLower(entries[i].Username) < strings.ToLower(entries[j].Username)
	})
	return entries, nil
}

// RankOf returns the 1-based position of username in a normalized ranking.
// Tied scores share the better position.
func RankOf(entries []RankEntry, username string) (int, bool) {
	for i, e := range entries {
		if strings.EqualFold(e.Username, username) {
			pos := i
			for pos > 0 && entries[pos-1].Score == e.Score {
				pos--
			}
			return pos + 1, true
		}
	}
	return 0, false
}

// NormalizeUsernames parses the user list payload. Both {"usernames": [...]}
// and a bare array are accepted. Names are trimmed, de-duplicated
// case-insensitively and sorted.
func NormalizeUsernames(raw []byte) ([]string, error) {
	payload := bytes.TrimSpace(raw)
	if isNull(payload) {
		return []string{}, nil
	}

	var names []string
	switch payload[0] {
	case '{':
		var wrapper struct {
			Usernames []string `json:"usernames"`
		}
		if err := json.Unmarshal(payload, &wrapper); err != nil {
			return nil, malformedPayload("usernames", err)
		}
		names = wrapper.Usernames
	case '[':
		if err := json.Unmarshal(payload, &names); err != nil {
			return nil, malformedPayload("$", err)
		}
	default:
		return nil, malformedPayload("$", errors.New("expected an object or an array"))
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// LevelForScore mirrors the backend level curve: floor((-1 + sqrt(1 + 0.16*score)) / 2).
func LevelForScore(score int) int {
	if score <= 0 {
		return 0
	}
	level := int(math.Floor((-1 + math.Sqrt(1+0.16*float64(score))) / 2))
	// Guard against float rounding at exact thresholds.
	for ScoreForLevel(level+1) <= score {
		level++
	}
	for level > 0 && ScoreForLevel(level) > score {
		level--
	}
	return level
}

// ScoreForLevel is the minimum score at which LevelForScore reaches level.
func ScoreForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	return 25 * level * (level + 1)
}
