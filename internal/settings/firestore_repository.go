package settings

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const settingsCollection = "settings"

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a Firestore-backed settings repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) doc(ownerID string) *firestore.DocumentRef {
	return r.client.Collection(settingsCollection).Doc(ownerID)
}

func (r *firestoreRepository) Get(ctx context.Context, ownerID string) (Settings, error) {
	snap, err := r.doc(ownerID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := snap.DataTo(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	s.OwnerID = ownerID
	return s, nil
}

func (r *firestoreRepository) Save(ctx context.Context, s Settings) error {
	_, err := r.doc(s.OwnerID).Set(ctx, map[string]any{
		"owner_id":         s.OwnerID,
		"base_url":         s.BaseURL,
		"current_username": s.CurrentUsername,
		"updated_at":       s.UpdatedAt,
	})
	return err
}

func (r *firestoreRepository) Delete(ctx context.Context, ownerID string) error {
	ref := r.doc(ownerID)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	_, err := ref.Delete(ctx)
	return err
}
