package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCSStore stores document blobs in a Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *slog.Logger
}

func NewGCSStore(client *storage.Client, bucket, prefix string, logger *slog.Logger) *GCSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSStore{
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

func (s *GCSStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	object := s.objectName(uuid.New().String() + ".pdf")
	if err := s.write(ctx, object, data, contentType); err != nil {
		return "", err
	}
	return s.url(object), nil
}

func (s *GCSStore) UploadJSON(ctx context.Context, value any, correlationID string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	object := s.objectName("analysis-" + correlationID + ".json")
	if err := s.write(ctx, object, data, "application/json"); err != nil {
		return "", err
	}
	return s.url(object), nil
}

func (s *GCSStore) Delete(ctx context.Context, location string) error {
	object := s.objectFromLocation(location)
	if object == "" {
		return fmt.Errorf("unrecognized object location: %s", location)
	}
	if err := s.bucket.Object(object).Delete(ctx); err != nil {
		s.logger.Error("object delete failed", "object", object, "error", err)
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *GCSStore) write(ctx context.Context, object string, data []byte, contentType string) error {
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := bytes.NewReader(data).WriteTo(w); err != nil {
		_ = w.Close()
		s.logger.Error("object write failed", "object", object, "error", err)
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("object finalize failed", "object", object, "error", err)
		return fmt.Errorf("finalize object: %w", err)
	}
	s.logger.Debug("object stored", "object", object, "bytes", len(data))
	return nil
}

func (s *GCSStore) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *GCSStore) url(object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.name, object)
}

// objectFromLocation accepts either a bare object key or a URL produced by
// this store.
func (s *GCSStore) objectFromLocation(location string) string {
	base := fmt.Sprintf("https://storage.googleapis.com/%s/", s.name)
	if strings.HasPrefix(location, base) {
		return strings.TrimPrefix(location, base)
	}
	if !strings.Contains(location, "://") {
		return location
	}
	return ""
}
