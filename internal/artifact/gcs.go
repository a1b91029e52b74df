package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// GCS stores artifacts in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *zap.Logger
}

// NewGCS connects with Application Default Credentials.
func NewGCS(ctx context.Context, bucket, prefix string, logger *zap.Logger) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("artifact: creating storage client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Put implements Store. Objects are created only if absent, so a retried
// job never overwrites an earlier upload.
func (g *GCS) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	object := path.Join(g.prefix, key)
	uri := fmt.Sprintf("gs://%s/%s", g.name, object)

	w := g.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			g.logger.Info("object already exists, skipping", zap.String("uri", uri))
			return uri, nil
		}
		return "", fmt.Errorf("artifact: writing %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			g.logger.Info("object already exists, skipping", zap.String("uri", uri))
			return uri, nil
		}
		return "", fmt.Errorf("artifact: finalizing %s: %w", uri, err)
	}
	g.logger.Debug("object written", zap.String("uri", uri), zap.Int("bytes", len(data)))
	return uri, nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
