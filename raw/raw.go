// Package raw defines the provider-agnostic port every remote forecast
// source adaptor implements: authenticate, then produce a lazy sequence
// of deferred jobs for one init-time, each of which downloads, decodes
// and reshapes into fragments only when run. Grounded on the
// cluster.BackendProvider contract of cluster/backend.go and
// ais/backend/http.go: one small interface, several concrete clients,
// no shared state between them beyond what each constructor closes over.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package raw

import (
	"context"
	"time"

	"github.com/nwp-consumer/core/repometa"
	"github.com/nwp-consumer/core/tensorstore"
)

// Job is a deferred unit of work: one raw file's worth of download,
// decode and reshape. The generator handing out Jobs must never perform
// network I/O itself - only Run does.
type Job interface {
	// Run performs the fetch, decode and normalize steps and returns the
	// fragments actually present. A job failure is a returned error,
	// never a panic.
	Run(ctx context.Context) ([]tensorstore.Fragment, error)

	// String identifies the job for logging, e.g. its remote URL or path.
	String() string
}

// Repository is the port every provider adaptor implements.
type Repository interface {
	// Metadata returns this repository's static model descriptor.
	Metadata() repometa.Model

	// Authenticate verifies configuration and, where cheaply checkable,
	// credentials. Idempotent. Fails with *ncerr.ConfigError or
	// *ncerr.AuthError.
	Authenticate(ctx context.Context) error

	// FetchInitData returns the lazy job sequence for one init-time. Order
	// is unspecified; callers must not assume it.
	FetchInitData(ctx context.Context, it time.Time) ([]Job, error)
}
