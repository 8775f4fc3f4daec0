package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store uploads objects to an S3 bucket with public read access.
// It exists for deployments that keep rendered assets outside Supabase.
type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Store creates an S3-backed object store using the default AWS
// configuration chain.
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		region: region,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   r,
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s to bucket %s: %w", path, s.bucket, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, path), nil
}
