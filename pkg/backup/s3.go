package backup

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Target stores snapshots as S3 objects under an optional key prefix.
// Works against Amazon S3 and compatible stores (MinIO, Localstack).
type S3Target struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Target creates a target on an existing S3 client.
func NewS3Target(client *s3.Client, bucket, prefix string) *S3Target {
	return &S3Target{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads a snapshot with a single PutObject call. Snapshots are small
// gzip streams, well under multipart territory.
func (t *S3Target) Put(ctx context.Context, name string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := name
	if t.prefix != "" {
		key = path.Join(t.prefix, name)
	}

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}
	return nil
}
