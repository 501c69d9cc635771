package cloudobj

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/nwp-consumer/core/ncerr"
)

type s3Backend struct {
	svc    *s3.S3
	bucket string
}

func newS3Backend(env map[string]string) (blobBackend, error) {
	bucket, ok := env["BUCKET"]
	if !ok || bucket == "" {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/s3", Msg: "BUCKET is required"}
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(env["REGION"])})
	if err != nil {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/s3", Msg: err.Error()}
	}
	return &s3Backend{svc: s3.New(sess), bucket: bucket}, nil
}

func (b *s3Backend) Name() string { return "s3" }

func (b *s3Backend) List(ctx context.Context, prefix string) ([]blobObject, error) {
	var out []blobObject
	err := b.svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			out = append(out, blobObject{Key: aws.StringValue(obj.Key), Size: aws.Int64Value(obj.Size)})
		}
		return true
	})
	if err != nil {
		return nil, &ncerr.NetworkError{URL: "s3://" + b.bucket + "/" + prefix, Transient: true, Cause: err}
	}
	return out, nil
}

func (b *s3Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &ncerr.NetworkError{URL: "s3://" + b.bucket + "/" + key, Transient: true, Cause: err}
	}
	return out.Body, nil
}
