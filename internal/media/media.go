// Package media uploads project images to an S3-compatible bucket.
package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lumoraenergy/lumora/internal/config"
	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var (
	// ErrTooLarge is returned for files over the upload limit.
	ErrTooLarge = errors.New("file exceeds the upload size limit")
	// ErrNotImage is returned for files whose content type is not image/*.
	ErrNotImage = errors.New("only image files are allowed")
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("file is empty")
)

// ObjectStore is the subset of *minio.Client used by the uploader.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// Object describes a stored image.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Uploader stores project images.
type Uploader struct {
	client  ObjectStore
	bucket  string
	baseURL string
	maxSize int64
	logger  *zap.Logger
	now     func() time.Time
}

// NewClient connects to the object store described by cfg.
func NewClient(cfg config.StorageConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is empty")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}

// NewUploader creates an uploader. maxSize <= 0 uses the default limit.
func NewUploader(client ObjectStore, cfg config.StorageConfig, maxSize int64, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = constants.DefaultMaxUploadSizeBytes
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = constants.DefaultImageBucket
	}
	return &Uploader{
		client:  client,
		bucket:  bucket,
		baseURL: publicBaseURL(cfg),
		maxSize: maxSize,
		logger:  logger,
		now:     time.Now,
	}
}

func publicBaseURL(cfg config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

// MaxSize returns the upload limit in bytes.
func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// EnsureBucket creates the image bucket when it does not exist.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", u.bucket, err)
	}
	u.logger.Info("created image bucket", zap.String("op", "media.EnsureBucket"), zap.String("bucket", u.bucket))
	return nil
}

// Upload validates and stores an image. An empty or generic contentType is
// replaced by the sniffed type of the content.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*Object, error) {
	if size > u.maxSize {
		return nil, ErrTooLarge
	}
	if size == 0 {
		return nil, ErrEmpty
	}

	br := bufio.NewReaderSize(r, 512)
	if contentType == "" || contentType == "application/octet-stream" {
		head, _ := br.Peek(512)
		contentType = http.DetectContentType(head)
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	key := u.objectKey(filename, contentType)
	info, err := u.client.PutObject(ctx, u.bucket, key, io.LimitReader(br, u.maxSize), size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	u.logger.Info("image uploaded",
		zap.String("op", "media.Upload"),
		zap.String("key", key),
		zap.Int64("size", info.Size),
	)
	return &Object{Key: key, URL: u.URL(key), ContentType: contentType, Size: info.Size}, nil
}

// Remove deletes a stored image.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	if err := u.client.RemoveObject(ctx, u.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove image %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL of a key.
func (u *Uploader) URL(key string) string {
	return u.baseURL + "/" + u.bucket + "/" + key
}

// KeyFromURL returns the key of a URL produced by this uploader.
func (u *Uploader) KeyFromURL(url string) (string, bool) {
	prefix := u.baseURL + "/" + u.bucket + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (u *Uploader) objectKey(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if ext == "" || len(ext) > 6 {
		sub := strings.TrimPrefix(contentType, "image/")
		if i := strings.IndexAny(sub, "+."); i > 0 {
			sub = sub[:i]
		}
		ext = "." + sub
	}
	return fmt.Sprintf("%s/%d-%s%s", constants.ProjectImagePrefix, u.now().UnixMilli(), uuid.NewString(), ext)
}
