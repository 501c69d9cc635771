// Package cloudobj implements the raw.Repository contract for providers
// that publish forecast files to an object store or archive filesystem:
// S3, GCS, Azure Blob and HDFS, selected at authenticate() time by
// RepoMetadata.RequiredEnv's "BACKEND" value. Grounded on the ais/backend
// package: one small blobBackend interface, one concrete client per
// cloud, wired by a constructor rather than a type switch at every call
// site.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package cloudobj

import (
	"context"
	"io"
)

// blobObject is one listed remote object.
type blobObject struct {
	Key  string
	Size int64
}

// blobBackend is the pluggable transport every cloud client satisfies.
type blobBackend interface {
	// List returns every object under prefix.
	List(ctx context.Context, prefix string) ([]blobObject, error)
	// Open streams one object's contents.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Name identifies the backend for logging, e.g. "s3", "gcs".
	Name() string
}

func newBackend(kind string, env map[string]string) (blobBackend, error) {
	switch kind {
	case "s3":
		return newS3Backend(env)
	case "gcs":
		return newGCSBackend(env)
	case "azureblob":
		return newAzureBackend(env)
	case "hdfs":
		return newHDFSBackend(env)
	default:
		return nil, &unknownBackendError{Kind: kind}
	}
}

type unknownBackendError struct{ Kind string }

func (e *unknownBackendError) Error() string { return "cloudobj: unknown backend " + e.Kind }
