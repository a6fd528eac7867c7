// Package storage keeps the original uploaded documents in a MinIO bucket so
// medical records can point back at the scan they were extracted from.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO connects and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}

	exists, err := c.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "create bucket %s", cfg.Bucket)
		}
		log.WithField("bucket", cfg.Bucket).Info("created document bucket")
	}
	return &MinIO{client: c, bucket: cfg.Bucket}, nil
}

var nonSafe = regexp.MustCompile(`[^a-z0-9\-_]+`)

// ObjectKey builds "<prefix>/<yyyy/mm/dd>/<uuid><ext>", the extension coming
// from the detected content type.
func ObjectKey(prefix string, data []byte, now time.Time) string {
	prefix = nonSafe.ReplaceAllString(strings.ToLower(prefix), "-")
	prefix = strings.Trim(prefix, "-_")
	if prefix == "" {
		prefix = "documents"
	}
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, now.UTC().Format("2006/01/02"), uuid.New().String(), ext)
}

// Put stores data under a fresh key and returns that key.
func (m *MinIO) Put(ctx context.Context, prefix string, data []byte) (string, error) {
	key := ObjectKey(prefix, data, time.Now())
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimetype.Detect(data).String(),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put object %s", key)
	}
	return key, nil
}

func (m *MinIO) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}), "remove object %s", key)
}
