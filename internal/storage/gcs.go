package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// ObjectMeta is the listing record for one storage object. Field names track
// what the gcs_files table persists.
type ObjectMeta struct {
	URI         string
	SelfLink    string
	Name        string
	Bucket      string
	ContentType string
	Size        int64
	MD5Hash     string
	CRC32C      string
	Etag        string
	TimeCreated *time.Time
	Updated     *time.Time
	Metadata    map[string]string
}

// ObjectLister lists the non-directory objects under a bucket prefix.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectMeta, error)
}

var ErrInvalidURI = errors.New("URI must start with gs://")

// ParseURI splits a gs://bucket/prefix URI into bucket and prefix.
func ParseURI(raw string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(raw, "gs://") {
		return "", "", ErrInvalidURI
	}
	rest := strings.TrimPrefix(raw, "gs://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", ErrInvalidURI
	}
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix, nil
}

// ObjectURI builds the canonical gs:// reference for an object.
func ObjectURI(bucket, name string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, name)
}

// GCSLister lists objects through the Cloud Storage client.
type GCSLister struct {
	client *gcs.Client
	logger *slog.Logger
}

func NewGCSLister(ctx context.Context, logger *slog.Logger) (*GCSLister, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSLister{client: client, logger: logger}, nil
}

func (l *GCSLister) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectMeta, error) {
	it := l.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var objects []ObjectMeta
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
		}
		// Directory placeholders carry a trailing slash.
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		meta := ObjectMeta{
			URI:         fmt.Sprintf("%s/%s/%d", attrs.Bucket, attrs.Name, attrs.Generation),
			SelfLink:    attrs.MediaLink,
			Name:        attrs.Name,
			Bucket:      attrs.Bucket,
			ContentType: attrs.ContentType,
			Size:        attrs.Size,
			MD5Hash:     fmt.Sprintf("%x", attrs.MD5),
			CRC32C:      fmt.Sprintf("%d", attrs.CRC32C),
			Etag:        attrs.Etag,
			Metadata:    attrs.Metadata,
		}
		if !attrs.Created.IsZero() {
			created := attrs.Created
			meta.TimeCreated = &created
		}
		if !attrs.Updated.IsZero() {
			updated := attrs.Updated
			meta.Updated = &updated
		}
		objects = append(objects, meta)
	}

	l.logger.Debug("listed storage objects", "bucket", bucket, "prefix", prefix, "count", len(objects))
	return objects, nil
}

func (l *GCSLister) Close() error {
	return l.client.Close()
}
