package history

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const refreshesCollection = "refreshes"

// ListRecent filters on fieldUsernameKey and orders by fieldFetchedAt, which
// needs the composite index declared in firestore.indexes.json.
const (
	fieldUsernameKey = "username_key"
	fieldFetchedAt   = "fetched_at"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a Firestore-backed history repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) ownerCollection(ownerID string) *firestore.CollectionRef {
	return r.client.Collection("owners").Doc(ownerID).Collection(refreshesCollection)
}

func (r *firestoreRepository) Append(ctx context.Context, e Entry) error {
	data := map[string]any{
		"owner_id":                e.OwnerID,
		"username":                e.Username,
		fieldUsernameKey:          strings.ToLower(e.Username),
		fieldFetchedAt:            e.FetchedAt,
		"level":                   e.Level,
		"score":                   e.Score,
		"total_sessions":          e.TotalSessions,
		"total_play_time_seconds": e.TotalPlayTimeSeconds,
		"streak":                  e.Streak,
	}
	coll := r.ownerCollection(e.OwnerID)
	if e.ID != "" {
		_, err := coll.Doc(e.ID).Set(ctx, data)
		return err
	}
	_, _, err := coll.Add(ctx, data)
	return err
}

func (r *firestoreRepository) ListRecent(ctx context.Context, ownerID, username string, limit int) ([]Entry, error) {
	query := r.ownerCollection(ownerID).
		Where(fieldUsernameKey, "==", strings.ToLower(username)).
		OrderBy(fieldFetchedAt, firestore.Desc).
		Limit(ClampLimit(limit))

	iter := query.Documents(ctx)
	defer iter.Stop()

	entries := make([]Entry, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if status.Code(err) == codes.FailedPrecondition {
			return nil, fmt.Errorf("list refreshes: composite index on %s, %s missing: %w", fieldUsernameKey, fieldFetchedAt, err)
		}
		if err != nil {
			return nil, err
		}

		var e Entry
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("unmarshal refresh %s: %w", doc.Ref.ID, err)
		}
		e.ID = doc.Ref.ID
		entries = append(entries, e)
	}
	return entries, nil
}
