package archive

import (
	"context"
	"io"

	"lokilens-mcp/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"
)

// S3Store is an ObjectStore backed by any S3-compatible endpoint. All calls
// share one rate limiter so a wide search cannot hammer the store.
type S3Store struct {
	client  *minio.Client
	limiter *rate.Limiter
}

// NewS3Store builds an S3Store from config.
func NewS3Store(cfg models.Config) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, &StoreError{Op: "connect", Bucket: cfg.Bucket, Err: err}
	}
	return &S3Store{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestRateLimit), cfg.RequestRateBurst),
	}, nil
}

// List implements ObjectStore.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var keys []string
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, &StoreError{Op: "list", Bucket: bucket, Key: prefix, Err: obj.Err}
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Get implements ObjectStore.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &StoreError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &StoreError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	return data, nil
}
