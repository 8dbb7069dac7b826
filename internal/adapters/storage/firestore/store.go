package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const stateCollection = "app_state"

// StateStore keeps the logical state keys as documents in a single Firestore
// collection. Useful when the service runs on GCP instead of a local disk.
type StateStore struct {
	client *firestore.Client
}

func NewStateStore(ctx context.Context, projectID string) (*StateStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &StateStore{client: client}, nil
}

type stateDoc struct {
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (s *StateStore) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(stateCollection).Doc(key)
}

func (s *StateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("firestore load %q: %w", key, err)
	}

	var doc stateDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, fmt.Errorf("firestore load %q decode: %w", key, err)
	}
	return doc.Value, true, nil
}

func (s *StateStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.doc(key).Set(ctx, stateDoc{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("firestore save %q: %w", key, err)
	}
	return nil
}

func (s *StateStore) Close() error {
	return s.client.Close()
}
