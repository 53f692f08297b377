package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/postboard/internal/server/config"
)

func newImageServiceForTest(t *testing.T) *ImageService {
	t.Helper()
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "postboard",
	}
	return NewImageService(cfg)
}

func stubPresignSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

func TestStorageKey(t *testing.T) {
	key := StorageKey(42, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))
	re := regexp.MustCompile(`^posts/42/2026/3/7/[0-9a-f-]{36}$`)
	if !re.MatchString(key) {
		t.Fatalf("unexpected key %q", key)
	}
	if key == StorageKey(42, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("keys must be unique")
	}
}

func Test_getPresignClient_AppliesConfig(t *testing.T) {
	svc := newImageServiceForTest(t)
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Fatal("credentials provider not applied")
		}
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	if _, err := svc.getPresignClient(context.Background()); err != nil {
		t.Fatalf("getPresignClient err: %v", err)
	}
	if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("BaseEndpoint mismatch: %v", opts.BaseEndpoint)
	}
	if !opts.UsePathStyle {
		t.Fatal("path-style addressing expected")
	}
}

func TestPresignUpload_Success(t *testing.T) {
	svc := newImageServiceForTest(t)
	stubPresignSeams(t)

	var gotBucket, gotKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey = *in.Bucket, *in.Key
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		if po.Expires != PresignValidity {
			t.Fatalf("expires = %v", po.Expires)
		}
		return &v4.PresignedHTTPRequest{URL: "https://upload/" + *in.Key}, nil
	}

	up, err := svc.PresignUpload(context.Background(), 7)
	if err != nil {
		t.Fatalf("PresignUpload err: %v", err)
	}
	if gotBucket != "postboard" || gotKey != up.Key {
		t.Fatalf("bucket/key mismatch: %q %q", gotBucket, gotKey)
	}
	if up.UploadURL != "https://upload/"+up.Key {
		t.Fatalf("url mismatch: %q", up.UploadURL)
	}
}

func TestPresignUpload_Errors(t *testing.T) {
	svc := newImageServiceForTest(t)
	stubPresignSeams(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}
	if _, err := svc.PresignUpload(context.Background(), 7); err == nil || err.Error() != "presign-fail" {
		t.Fatalf("expected presign-fail, got %v", err)
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	if _, err := svc.PresignUpload(context.Background(), 7); err == nil || err.Error() != "load-fail" {
		t.Fatalf("expected load-fail, got %v", err)
	}
}
