package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/stops"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
	"github.com/autopeer-io/shuttlebridge/pkg/options"
)

// MinIO keeps the allowed-stop list as a single object in an S3 bucket.
type MinIO struct {
	client     *minio.Client
	bucketName string
	objectKey  string
}

var _ stops.Archive = (*MinIO)(nil)

// NewMinIO creates an S3-backed stop archive. Without static keys the
// standard AWS environment, shared credentials file and instance role are
// tried in that order.
func NewMinIO(opts *options.S3Options) (*MinIO, error) {
	creds := credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, "")
	if opts.AccessKeyID == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	minioOpts := &minio.Options{
		Creds:  creds,
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.InsecureSkipVerify {
		minioOpts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := minio.New(opts.Endpoint, minioOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIO{
		client:     client,
		bucketName: opts.BucketName,
		objectKey:  opts.ObjectKey,
	}, nil
}

// CheckBucket verifies the bucket is reachable. Buckets are never created here.
func (p *MinIO) CheckBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", p.bucketName)
	}
	log.Info("Object storage connected", "bucket", p.bucketName)
	return nil
}

// Store overwrites the archived stop list.
func (p *MinIO) Store(ctx context.Context, data []byte) error {
	_, err := p.client.PutObject(ctx, p.bucketName, p.objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", p.bucketName, p.objectKey, err)
	}
	log.Debug("Archived allowed stops", "bucket", p.bucketName, "key", p.objectKey, "bytes", len(data))
	return nil
}

// Load reads the archived stop list.
func (p *MinIO) Load(ctx context.Context) ([]byte, error) {
	obj, err := p.client.GetObject(ctx, p.bucketName, p.objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", p.bucketName, p.objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", p.bucketName, p.objectKey, err)
	}
	return data, nil
}
