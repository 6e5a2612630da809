package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/oksasatya/go-blog/internal/domain/repository"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

var ErrNotConfigured = errors.New("gcs not configured")

// GCSStore keeps uploaded files in a Google Cloud Storage bucket.
type GCSStore struct {
	Client  *gcs.Client
	Bucket  string
	BaseURL string // when set, URLs are built as BaseURL/key instead of the public GCS URL
}

func NewGCSStore(client *gcs.Client, bucket, baseURL string) *GCSStore {
	return &GCSStore{Client: client, Bucket: bucket, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if s.Client == nil || s.Bucket == "" {
		return "", ErrNotConfigured
	}
	if _, err := helpers.UploadObject(ctx, s.Client, s.Bucket, key, contentType, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *GCSStore) URLFor(key string) string {
	if key == "" {
		return ""
	}
	if s.BaseURL != "" {
		return s.BaseURL + "/" + strings.TrimLeft(key, "/")
	}
	return helpers.PublicURL(s.Bucket, key)
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if s.Client == nil || s.Bucket == "" {
		return ErrNotConfigured
	}
	return helpers.DeleteObject(ctx, s.Client, s.Bucket, key)
}

var _ repository.ObjectStore = (*GCSStore)(nil)
