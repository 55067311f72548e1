package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vodmill/internal/logging"
	"vodmill/internal/services"
)

// ObjectStore abstracts the bucket operations the gateway needs so tests can
// inject an in-memory implementation.
type ObjectStore interface {
	// NewReader opens the object at key for reading.
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
	// NewWriter opens a writer for key; closing the writer finalizes the upload.
	NewWriter(ctx context.Context, key, contentType string) io.WriteCloser
	// List returns every key under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes one key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// SignedPutURL returns a time-limited direct-upload URL for key.
	SignedPutURL(key, contentType string, expiry time.Duration) (string, error)
	// BaseURL returns the public URL root of the bucket.
	BaseURL() string
}

// Gateway moves files and directories between the local filesystem and the
// object-storage namespace.
type Gateway struct {
	store         ObjectStore
	publicBaseURL string
	logger        *slog.Logger
}

// NewGateway constructs a Gateway. publicBaseURL overrides the store's own URL
// root when building playback URLs (e.g. a CDN domain); empty falls back to
// the store.
func NewGateway(store ObjectStore, publicBaseURL string, logger *slog.Logger) *Gateway {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if base == "" {
		base = strings.TrimRight(store.BaseURL(), "/")
	}
	return &Gateway{
		store:         store,
		publicBaseURL: base,
		logger:        logging.NewComponentLogger(logger, "storage"),
	}
}

// Upload copies a local file to key and returns its public URL. Re-uploading
// an existing key overwrites it.
func (g *Gateway) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "storage", "upload", localPath, err)
	}
	defer file.Close()

	writer := g.store.NewWriter(ctx, key, contentType)
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return "", services.Wrap(services.ErrStorage, "storage", "upload", key, err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrStorage, "storage", "finalize upload", key, err)
	}
	return g.PublicURL(key), nil
}

// Download streams the object at key into localPath, creating parent
// directories as needed.
func (g *Gateway) Download(ctx context.Context, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "storage", "download", filepath.Dir(localPath), err)
	}

	reader, err := g.store.NewReader(ctx, key)
	if err != nil {
		return services.Wrap(services.ErrStorage, "storage", "open object", key, err)
	}
	defer reader.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return services.Wrap(services.ErrStorage, "storage", "create local file", localPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return services.Wrap(services.ErrStorage, "storage", "download", key, err)
	}
	return file.Close()
}

// UploadDirectory uploads every regular file directly under localDir
// (non-recursive) to keyPrefix/filename, inferring content types from file
// extensions. Returns the public URLs of the uploaded objects in filename
// order.
func (g *Gateway) UploadDirectory(ctx context.Context, localDir, keyPrefix string) ([]string, error) {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "read directory", localDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	urls := make([]string, 0, len(names))
	for _, name := range names {
		key := path.Join(keyPrefix, name)
		url, err := g.Upload(ctx, filepath.Join(localDir, name), key, ContentTypeFor(name))
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}

	g.logger.Info("directory uploaded",
		logging.String("prefix", keyPrefix),
		logging.Int("files", len(urls)),
	)
	return urls, nil
}

// DeletePrefix removes every object under keyPrefix. An empty prefix listing
// is a successful no-op.
func (g *Gateway) DeletePrefix(ctx context.Context, keyPrefix string) error {
	keys, err := g.store.List(ctx, keyPrefix)
	if err != nil {
		return services.Wrap(services.ErrStorage, "storage", "list prefix", keyPrefix, err)
	}
	for _, key := range keys {
		if err := g.store.Delete(ctx, key); err != nil {
			return services.Wrap(services.ErrStorage, "storage", "delete", key, err)
		}
	}
	return nil
}

// Presign returns a time-limited URL allowing a client to PUT the object
// directly, bypassing this server for the bulk transfer.
func (g *Gateway) Presign(key, contentType string, expiry time.Duration) (string, error) {
	url, err := g.store.SignedPutURL(key, contentType, expiry)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "storage", "presign", key, err)
	}
	return url, nil
}

// PublicURL joins the public base URL with an object key.
func (g *Gateway) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", g.publicBaseURL, strings.TrimPrefix(key, "/"))
}
