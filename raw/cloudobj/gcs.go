package cloudobj

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/nwp-consumer/core/ncerr"
)

type gcsBackend struct {
	client *storage.Client
	bucket string
}

func newGCSBackend(env map[string]string) (blobBackend, error) {
	bucket, ok := env["BUCKET"]
	if !ok || bucket == "" {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/gcs", Msg: "BUCKET is required"}
	}
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/gcs", Msg: err.Error()}
	}
	return &gcsBackend{client: client, bucket: bucket}, nil
}

func (b *gcsBackend) Name() string { return "gcs" }

func (b *gcsBackend) List(ctx context.Context, prefix string) ([]blobObject, error) {
	var out []blobObject
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &ncerr.NetworkError{URL: "gs://" + b.bucket + "/" + prefix, Transient: true, Cause: err}
		}
		out = append(out, blobObject{Key: attrs.Name, Size: attrs.Size})
	}
	return out, nil
}

func (b *gcsBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, &ncerr.NetworkError{URL: "gs://" + b.bucket + "/" + key, Transient: true, Cause: err}
	}
	return r, nil
}
