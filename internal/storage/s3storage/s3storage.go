// Package s3storage keeps images in an S3-compatible bucket through aws-sdk-go
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/wb-go/wbf/config"
)

type S3ImageStorage struct {
	bucket string
	client s3iface.S3API
}

func NewS3Client(cfg *config.Config) (*S3ImageStorage, error) {
	bucket := cfg.GetString("BUCKET_NAME")
	if bucket == "" {
		return nil, errors.New("BUCKET_NAME is required for s3 storage")
	}

	endpoint := cfg.GetString("S3_ENDPOINT")
	awsCfg := &aws.Config{
		Region: aws.String(cfg.GetString("S3_REGION")),
		Credentials: credentials.NewStaticCredentials(
			cfg.GetString("S3_ACCESS_KEY"),
			cfg.GetString("S3_SECRET_KEY"),
			"",
		),
	}
	if endpoint != "" {
		awsCfg.Endpoint = aws.String(endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}

	return New(s3.New(sess), bucket), nil
}

func New(client s3iface.S3API, bucket string) *S3ImageStorage {
	return &S3ImageStorage{bucket: bucket, client: client}
}

func (s *S3ImageStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}

	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	return err
}

func (s *S3ImageStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	return out.Body, aws.StringValue(out.ContentType), nil
}

func (s *S3ImageStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
