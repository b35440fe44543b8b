// Package publish uploads written country files to S3-compatible object
// storage.
package publish

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-cameras/internal/resilience"
)

// Config holds object storage settings.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectPutter is the subset of *minio.Client used for uploads.
type ObjectPutter interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher uploads files to <bucket>/<prefix><basename>.
type Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	retry  resilience.RetryConfig
}

// DefaultRetry is the upload retry policy. Only transient failures are retried.
func DefaultRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
		Classify:       classify,
		OnRetry:        resilience.RetryLogger("publish", "upload"),
	}
}

// New creates a Publisher backed by a MinIO client.
func New(cfg Config) (*Publisher, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, eris.New("publish: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "publish: create minio client")
	}
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates a Publisher around an existing client.
func NewWithClient(client ObjectPutter, bucket, prefix string) *Publisher {
	return &Publisher{client: client, bucket: bucket, prefix: prefix, retry: DefaultRetry()}
}

// classify backs off on S3 throttling and server errors as well as on the
// usual transient network failures.
func classify(err error) resilience.Action {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return resilience.Backoff
	}
	return resilience.DefaultClassify(err)
}

// WithRetry replaces the upload retry policy.
func (p *Publisher) WithRetry(cfg resilience.RetryConfig) *Publisher {
	p.retry = cfg
	return p
}

// ObjectName returns the key a local file is uploaded under.
func (p *Publisher) ObjectName(path string) string {
	return p.prefix + filepath.Base(path)
}

// Publish uploads one file.
func (p *Publisher) Publish(ctx context.Context, path string) error {
	object := p.ObjectName(path)
	info, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (minio.UploadInfo, error) {
		return p.client.FPutObject(ctx, p.bucket, object, path, minio.PutObjectOptions{
			ContentType: ContentType(path),
		})
	})
	if err != nil {
		return eris.Wrapf(err, "publish: upload %s to %s/%s", path, p.bucket, object)
	}
	zap.L().Debug("publish: uploaded",
		zap.String("bucket", p.bucket),
		zap.String("object", object),
		zap.Int64("size", info.Size),
	)
	return nil
}

// ContentType picks the upload content type from the file extension.
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "application/json"
	case ".geojson":
		return "application/geo+json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
