package backup

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Storage stores backup artifacts as objects in an S3 bucket.
type S3Storage struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3Storage creates an S3 adapter from the given configuration.
// Empty credentials fall back to the SDK's default chain (environment,
// shared config, instance role).
func NewS3Storage(config S3StorageConfig) (*S3Storage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3Storage{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

func (s *S3Storage) Name() string { return "s3" }

func (s *S3Storage) Root() string {
	if s.prefix == "" {
		return fmt.Sprintf("s3://%s", s.bucket)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

func (s *S3Storage) Write(ctx context.Context, r io.ReadSeeker, filename string) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(s.prefix, filename)),
		Body:        r,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return NewStorageError(
			fmt.Sprintf("failed to upload %s to s3://%s", filename, s.bucket), err)
	}
	return nil
}

func (s *S3Storage) List(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	var names []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, object := range page.Contents {
				if name, ok := trimKeyPrefix(s.prefix, aws.StringValue(object.Key)); ok {
					names = append(names, name)
				}
			}
			return true
		})
	if err != nil {
		return nil, NewStorageError(
			fmt.Sprintf("failed to list s3://%s", s.bucket), err)
	}
	return names, nil
}

func (s *S3Storage) Delete(ctx context.Context, filename string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, filename)),
	})
	if err != nil {
		return NewStorageError(
			fmt.Sprintf("failed to delete %s from s3://%s", filename, s.bucket), err)
	}
	return nil
}
