package documents

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
)

const defaultPresignExpiry = 7 * 24 * time.Hour

// ObjectStore keeps rendered documents and hands out time-limited links to them.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

var _ ObjectStore = (*S3Store)(nil)

func NewS3Store(awsCfg aws.Config, bucket string, expiry time.Duration) *S3Store {
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Store{client: client, presigner: s3.NewPresignClient(client), bucket: bucket, expiry: expiry}
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(err, "upload document bucket:%s key:%s", s.bucket, key)
	}
	return nil
}

func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	out, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", errors.Wrapf(err, "presign document bucket:%s key:%s", s.bucket, key)
	}
	return out.URL, nil
}
