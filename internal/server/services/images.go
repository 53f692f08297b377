package services

import (
	"context"
	"fmt"
	"time"

	sc "github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignValidity is how long an upload URL stays usable.
const PresignValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// ImageUpload is a presigned PUT target for one post image.
type ImageUpload struct {
	Key       string
	UploadURL string
}

// ImageService hands out presigned S3 upload URLs for post images. The
// server never sees the image bytes.
type ImageService struct {
	config *sc.Config
}

func NewImageService(config *sc.Config) *ImageService {
	return &ImageService{config: config}
}

// StorageKey returns a fresh object key under the uploader's prefix.
func StorageKey(userID int64, now time.Time) string {
	return fmt.Sprintf("posts/%d/%d/%d/%d/%v", userID, now.Year(), now.Month(), now.Day(), uuid.New())
}

func (s *ImageService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a new key and a presigned PUT URL for it.
func (s *ImageService) PresignUpload(ctx context.Context, userID int64) (*ImageUpload, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(userID, time.Now())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignValidity))
	if err != nil {
		return nil, err
	}

	return &ImageUpload{Key: key, UploadURL: req.URL}, nil
}
