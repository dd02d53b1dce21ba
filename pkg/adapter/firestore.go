package adapter

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sessionCollection = "chat_sessions"

// firestoreEntry is the document stored at chat_sessions/<session>/entries/<key>
type firestoreEntry struct {
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// firestoreStore implements SessionStore using Firestore
type firestoreStore struct {
	client  *firestore.Client
	session string
}

// NewFirestoreStore creates a Firestore backed session store
func NewFirestoreStore(ctx context.Context, projectID, databaseID, session string, opts ...option.ClientOption) (SessionStore, error) {
	if projectID == "" {
		return nil, goerr.New("project is required")
	}
	if session == "" {
		return nil, goerr.New("session is required")
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &firestoreStore{client: client, session: session}, nil
}

func (s *firestoreStore) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(sessionCollection).Doc(s.session).Collection("entries").Doc(key)
}

func (s *firestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrKeyNotFound, "no document in firestore", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}

	var entry firestoreEntry
	if err := snap.DataTo(&entry); err != nil {
		return nil, goerr.Wrap(err, "failed to decode document", goerr.V("key", key))
	}
	return entry.Value, nil
}

func (s *firestoreStore) Set(ctx context.Context, key string, value []byte) error {
	entry := firestoreEntry{Value: value, UpdatedAt: time.Now()}
	if _, err := s.doc(key).Set(ctx, entry); err != nil {
		return goerr.Wrap(err, "failed to set document", goerr.V("key", key))
	}
	return nil
}

func (s *firestoreStore) Delete(ctx context.Context, key string) error {
	// Firestore treats deletion of a missing document as success
	if _, err := s.doc(key).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete document", goerr.V("key", key))
	}
	return nil
}
