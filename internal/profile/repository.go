// File: internal/profile/repository.go
package profile

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Repository defines the interface for profile data operations.
type Repository interface {
	// Put writes the profile under p.UID, replacing anything stored there.
	Put(ctx context.Context, p *Profile) error
	// FindAll returns every stored record verbatim, in store order.
	FindAll(ctx context.Context) ([]Document, error)
	// ListKeys returns the identifiers of every stored record: its key and,
	// where present and different, its uid field.
	ListKeys(ctx context.Context) ([]string, error)
}

type firestoreRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRepository creates a profile repository over one Firestore collection.
func NewFirestoreRepository(client *firestore.Client, collection string) Repository {
	return &firestoreRepository{client: client, collection: collection}
}

func (r *firestoreRepository) Put(ctx context.Context, p *Profile) error {
	_, err := r.client.Collection(r.collection).Doc(p.UID).Set(ctx, p)
	return err
}

func (r *firestoreRepository) FindAll(ctx context.Context) ([]Document, error) {
	iter := r.client.Collection(r.collection).Documents(ctx)
	defer iter.Stop()

	docs := make([]Document, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document(snap.Data()))
	}
	return docs, nil
}

func (r *firestoreRepository) ListKeys(ctx context.Context) ([]string, error) {
	iter := r.client.Collection(r.collection).Select("uid").Documents(ctx)
	defer iter.Stop()

	var keys []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list profile keys: %w", err)
		}
		keys = append(keys, snap.Ref.ID)
		if uid, ok := snap.Data()["uid"].(string); ok && uid != "" && uid != snap.Ref.ID {
			keys = append(keys, uid)
		}
	}
	return keys, nil
}
