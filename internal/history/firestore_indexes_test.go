package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexField struct {
	FieldPath string `json:"fieldPath"`
	Order     string `json:"order"`
}

type indexFile struct {
	Indexes []struct {
		CollectionGroup string       `json:"collectionGroup"`
		QueryScope      string       `json:"queryScope"`
		Fields          []indexField `json:"fields"`
	} `json:"indexes"`
}

func TestFirestoreIndexCoversListRecent(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "firestore.indexes.json"))
	require.NoError(t, err)

	var file indexFile
	require.NoError(t, json.Unmarshal(raw, &file))

	want := []indexField{
		{FieldPath: fieldUsernameKey, Order: "ASCENDING"},
		{FieldPath: fieldFetchedAt, Order: "DESCENDING"},
	}
	found := false
	for _, idx := range file.Indexes {
		if idx.CollectionGroup == refreshesCollection && idx.QueryScope == "COLLECTION" {
			assert.Equal(t, want, idx.Fields)
			found = true
		}
	}
	assert.True(t, found, "no composite index for %s", refreshesCollection)
}
