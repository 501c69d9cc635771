package cloudobj

import (
	"context"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/nwp-consumer/core/ncerr"
)

type azureBackend struct {
	container azblob.ContainerURL
}

func newAzureBackend(env map[string]string) (blobBackend, error) {
	account, key, container := env["ACCOUNT"], env["KEY"], env["CONTAINER"]
	if account == "" || key == "" || container == "" {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/azureblob", Msg: "ACCOUNT, KEY and CONTAINER are required"}
	}
	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/azureblob", Msg: err.Error()}
	}
	pipeline := azblob.NewPipeline(cred, azblob.PipelineOptions{})
	u, err := url.Parse("https://" + account + ".blob.core.windows.net/" + container)
	if err != nil {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/azureblob", Msg: err.Error()}
	}
	return &azureBackend{container: azblob.NewContainerURL(*u, pipeline)}, nil
}

func (b *azureBackend) Name() string { return "azureblob" }

func (b *azureBackend) List(ctx context.Context, prefix string) ([]blobObject, error) {
	var out []blobObject
	marker := azblob.Marker{}
	for marker.NotDone() {
		resp, err := b.container.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{Prefix: prefix})
		if err != nil {
			return nil, &ncerr.NetworkError{URL: prefix, Transient: true, Cause: err}
		}
		for _, item := range resp.Segment.BlobItems {
			size := int64(0)
			if item.Properties.ContentLength != nil {
				size = *item.Properties.ContentLength
			}
			out = append(out, blobObject{Key: item.Name, Size: size})
		}
		marker = resp.NextMarker
	}
	return out, nil
}

func (b *azureBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	blobURL := b.container.NewBlobURL(key)
	resp, err := blobURL.Download(ctx, 0, azblob.CountToEOF, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, &ncerr.NetworkError{URL: key, Transient: true, Cause: err}
	}
	return resp.Body(azblob.RetryReaderOptions{}), nil
}
