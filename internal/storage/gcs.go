package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore implements ObjectStore over a Google Cloud Storage bucket.
type GCSStore struct {
	client      *gcs.Client
	bucket      string
	signerEmail string
	privateKey  []byte
}

// GCSOptions configures a GCSStore.
type GCSOptions struct {
	Bucket        string
	SignerEmail   string
	SignerKeyPath string
}

// NewGCSStore wraps an authenticated client for one bucket. The signer key is
// only required when presigned upload URLs are requested.
func NewGCSStore(client *gcs.Client, opts GCSOptions) (*GCSStore, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	store := &GCSStore{
		client:      client,
		bucket:      bucket,
		signerEmail: strings.TrimSpace(opts.SignerEmail),
	}
	if keyPath := strings.TrimSpace(opts.SignerKeyPath); keyPath != "" {
		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read signer key: %w", err)
		}
		store.privateKey = key
	}
	return store, nil
}

func (s *GCSStore) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
}

func (s *GCSStore) NewWriter(ctx context.Context, key, contentType string) io.WriteCloser {
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	return writer
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && err != gcs.ErrObjectNotExist {
		return err
	}
	return nil
}

func (s *GCSStore) SignedPutURL(key, contentType string, expiry time.Duration) (string, error) {
	if s.signerEmail == "" || len(s.privateKey) == 0 {
		return "", fmt.Errorf("presigning requires storage.signer_email and storage.signer_key_path")
	}
	return gcs.SignedURL(s.bucket, key, &gcs.SignedURLOptions{
		GoogleAccessID: s.signerEmail,
		PrivateKey:     s.privateKey,
		Scheme:         gcs.SigningSchemeV4,
		Method:         "PUT",
		ContentType:    contentType,
		Expires:        time.Now().Add(expiry),
	})
}

func (s *GCSStore) BaseURL() string {
	return fmt.Sprintf("https://storage.googleapis.com/%s", s.bucket)
}

var _ ObjectStore = (*GCSStore)(nil)
