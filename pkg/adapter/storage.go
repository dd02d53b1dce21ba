package adapter

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// storageStore implements SessionStore using Cloud Storage. Each key is one
// object under sessions/<session>/.
type storageStore struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

// NewStorageStore creates a Cloud Storage backed session store
func NewStorageStore(ctx context.Context, bucketName, session string, opts ...option.ClientOption) (SessionStore, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}
	if session == "" {
		return nil, goerr.New("session is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageStore{
		bucketName: bucketName,
		prefix:     path.Join("sessions", session),
		client:     client,
	}, nil
}

func (s *storageStore) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucketName).Object(path.Join(s.prefix, key))
}

func (s *storageStore) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrKeyNotFound, "no object in storage", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object data", goerr.V("key", key))
	}
	return data, nil
}

func (s *storageStore) Set(ctx context.Context, key string, value []byte) error {
	writer := s.object(key).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(value); err != nil {
		writer.Close()
		return goerr.Wrap(err, "failed to write to storage", goerr.V("key", key))
	}
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}
	return nil
}

func (s *storageStore) Delete(ctx context.Context, key string) error {
	if err := s.object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete from storage", goerr.V("key", key))
	}
	return nil
}
