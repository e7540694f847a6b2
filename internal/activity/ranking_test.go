package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRanking(t *testing.T) {
	entries, err := NormalizeRanking([]byte(`[
	  {"username": "amy", "score": 10},
	  {"username": "Bob", "score": 30},
	  {"score": 99},
	  {"username": "cat"},
	  {"username": "abe", "score": 10}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []RankEntry{
		{Username: "Bob", Score: 30},
		{Username: "abe", Score: 10},
		{Username: "amy", Score: 10},
		{Username: "cat", Score: 0},
	}, entries)

	pos, ok := RankOf(entries, "AMY")
	assert.True(t, ok)
	assert.Equal(t, 2, pos, "ties share the better position")

	_, ok = RankOf(entries, "zed")
	assert.False(t, ok)

	_, err = NormalizeRanking([]byte(`{"username":"x"}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNormalizeUsernames(t *testing.T) {
	names, err := NormalizeUsernames([]byte(`{"usernames": ["bob", " Allen ", "BOB", ""]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Allen", "bob"}, names)

	names, err = NormalizeUsernames([]byte(`["z", "a"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "z"}, names)

	_, err = NormalizeUsernames([]byte(`42`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestLevelCurve(t *testing.T) {
	tests := []struct{ score, level int }{
		{0, 0}, {49, 0}, {50, 1}, {149, 1}, {150, 2}, {299, 2}, {300, 3}, {2500, 9}, {2750, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForScore(tt.score), "score %d", tt.score)
	}
	for level := 0; level < 50; level++ {
		assert.Equal(t, level, LevelForScore(ScoreForLevel(level)), "threshold for level %d", level)
	}
}
