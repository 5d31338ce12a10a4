package backup

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage stores backup artifacts as objects in a Google Cloud
// Storage bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStorage creates a GCS adapter. Without an explicit credentials
// file the client uses application default credentials.
func NewGCSStorage(ctx context.Context, config GCSStorageConfig) (*GCSStorage, error) {
	var client *storage.Client
	var err error
	if config.CredentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsFile))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSStorage{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

func (s *GCSStorage) Name() string { return "gcs" }

func (s *GCSStorage) Root() string {
	if s.prefix == "" {
		return fmt.Sprintf("gs://%s", s.bucket)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.prefix)
}

func (s *GCSStorage) Write(ctx context.Context, r io.ReadSeeker, filename string) error {
	object := s.client.Bucket(s.bucket).Object(objectKey(s.prefix, filename))
	w := object.NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	if _, err := io.CopyBuffer(w, r, make([]byte, copyBufferSize)); err != nil {
		w.Close()
		return NewStorageError(
			fmt.Sprintf("failed to upload %s to gs://%s", filename, s.bucket), err)
	}
	if err := w.Close(); err != nil {
		return NewStorageError(
			fmt.Sprintf("failed to finalize %s in gs://%s", filename, s.bucket), err)
	}
	return nil
}

func (s *GCSStorage) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}

	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, NewStorageError(
				fmt.Sprintf("failed to list gs://%s", s.bucket), err)
		}
		if name, ok := trimKeyPrefix(s.prefix, attrs.Name); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *GCSStorage) Delete(ctx context.Context, filename string) error {
	object := s.client.Bucket(s.bucket).Object(objectKey(s.prefix, filename))
	if err := object.Delete(ctx); err != nil {
		return NewStorageError(
			fmt.Sprintf("failed to delete %s from gs://%s", filename, s.bucket), err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
