// Package archiveapi implements the raw.Repository contract for
// order-based dissemination providers (CEDA-/MARS-style): a prior order
// reserves a set of remote files, retrieved either over plain HTTP or
// SFTP, gated by a bearer token whose expiry is checked during
// authenticate(). Grounded on ais/backend/http.go's HTTP GET with a
// shared client, and a sibling package's SSH-exec convention.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package archiveapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/ncerr"
	"github.com/nwp-consumer/core/parameter"
	"github.com/nwp-consumer/core/raw"
	"github.com/nwp-consumer/core/repometa"
	"github.com/nwp-consumer/core/tensorstore"
)

// OrderItem names one file a prior order makes available for one
// init-time: a remote path/URL and its advertised byte size (-1 if
// unknown).
type OrderItem struct {
	RemotePath string
	Size       int64
}

// OrderLister returns the order items available for one init-time. It is
// provider-specific (parsing an order manifest, querying a catalog API)
// and supplied by the caller, matching the same "external collaborator"
// boundary as the decoder.
type OrderLister func(ctx context.Context, it time.Time) ([]OrderItem, error)

// Repository adapts an order-based HTTP or SFTP archive API to
// raw.Repository.
type Repository struct {
	model   repometa.Model
	rawDir  string
	env     map[string]string
	decode  raw.Decoder
	list    OrderLister
	limiter *rate.Limiter

	httpClient *http.Client
	sftp       *sftpClient
}

// New constructs an archiveapi.Repository. Downloads are throttled to
// env["DOWNLOAD_RATE_LIMIT"] requests/second when set, since order APIs
// commonly meter or ban clients that pull an order's files too fast.
func New(model repometa.Model, rawDir string, env map[string]string, decode raw.Decoder, list OrderLister) *Repository {
	return &Repository{model: model, rawDir: rawDir, env: env, decode: decode, list: list, limiter: rateLimiterFromEnv(env)}
}

func rateLimiterFromEnv(env map[string]string) *rate.Limiter {
	v := env["DOWNLOAD_RATE_LIMIT"]
	if v == "" {
		return nil
	}
	rps, err := strconv.ParseFloat(v, 64)
	if err != nil || rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func (r *Repository) Metadata() repometa.Model { return r.model }

// Authenticate validates the bearer token's expiry and, for SFTP mode,
// prepares an SSH client config.
func (r *Repository) Authenticate(_ context.Context) error {
	token, ok := r.env["BEARER_TOKEN"]
	if !ok || token == "" {
		return &ncerr.ConfigError{Repo: r.model.Name, Msg: "required env BEARER_TOKEN not set"}
	}
	secret, ok := r.env["JWT_SECRET"]
	if !ok || secret == "" {
		return &ncerr.ConfigError{Repo: r.model.Name, Msg: "required env JWT_SECRET not set"}
	}
	if err := validateBearerToken(r.model.Name, token, secret); err != nil {
		return err
	}

	switch r.env["TRANSPORT"] {
	case "sftp":
		addr, user, key := r.env["SFTP_ADDR"], r.env["SFTP_USER"], r.env["SFTP_KEY"]
		if addr == "" || user == "" || key == "" {
			return &ncerr.ConfigError{Repo: r.model.Name, Msg: "SFTP_ADDR, SFTP_USER and SFTP_KEY are required for sftp transport"}
		}
		client, err := newSFTPClient(r.model.Name, addr, user, key)
		if err != nil {
			return err
		}
		r.sftp = client
	default:
		r.httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return nil
}

func (r *Repository) FetchInitData(ctx context.Context, it time.Time) ([]raw.Job, error) {
	items, err := r.list(ctx, it)
	if err != nil {
		return nil, &ncerr.NetworkError{URL: "order manifest", Transient: true, Cause: err}
	}
	glog.Infof("archiveapi: %d order item(s) for %s at %s", len(items), r.model.Name, it)

	jobs := make([]raw.Job, 0, len(items))
	for _, item := range items {
		jobs = append(jobs, &archiveapiJob{repo: r, it: it, item: item})
	}
	return jobs, nil
}

type archiveapiJob struct {
	repo *Repository
	it   time.Time
	item OrderItem
}

func (j *archiveapiJob) String() string { return j.item.RemotePath }

func (j *archiveapiJob) Run(ctx context.Context) ([]tensorstore.Fragment, error) {
	dest := raw.CachePath(j.repo.rawDir, "archiveapi", j.repo.model.Name, j.it, filepath.Base(j.item.RemotePath))

	if !raw.AlreadyCached(dest, j.item.Size) {
		if err := j.download(ctx, dest); err != nil {
			return nil, err
		}
	}

	fields, err := j.repo.decode(dest)
	if err != nil {
		return nil, &ncerr.DecodeError{Path: dest, Cause: err}
	}

	allowed := make(map[string]bool, len(j.repo.model.ExpectedCoordinates.Variable))
	for _, v := range j.repo.model.ExpectedCoordinates.Variable {
		allowed[v] = true
	}

	var out []tensorstore.Fragment
	for _, f := range fields {
		// Order-based providers label the ensemble dimension "number";
		// normalize it to ensemble_member here so downstream coords agree
		// with every other repository.
		if n, ok := f.Indexes["number"]; ok {
			f.Indexes[coords.DimEnsembleMember] = n
			delete(f.Indexes, "number")
		}

		p, err := parameter.Resolve(f.Name)
		if err != nil {
			continue
		}
		if !allowed[p.Name] {
			continue
		}
		idx := f.Indexes
		idx[coords.DimVariable] = []string{p.Name}
		idx[coords.DimInitTime] = []time.Time{j.it}
		c, err := coords.FromIndexes(idx)
		if err != nil {
			return nil, &ncerr.DecodeError{Path: dest, Cause: err}
		}
		out = append(out, tensorstore.Fragment{Parameter: p, Coords: c, Data: f.Values})
	}
	return out, nil
}

func (j *archiveapiJob) download(ctx context.Context, dest string) error {
	if j.repo.limiter != nil {
		if err := j.repo.limiter.Wait(ctx); err != nil {
			return &ncerr.NetworkError{URL: j.item.RemotePath, Transient: true, Cause: err}
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &ncerr.IOError{Op: "download", Path: dest, Cause: err}
	}
	if j.repo.sftp != nil {
		return j.repo.sftp.fetch(j.item.RemotePath, dest)
	}
	return j.downloadHTTP(ctx, dest)
}

func (j *archiveapiJob) downloadHTTP(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.item.RemotePath, nil)
	if err != nil {
		return &ncerr.NetworkError{URL: j.item.RemotePath, Transient: false, Cause: err}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", j.repo.env["BEARER_TOKEN"]))

	resp, err := j.repo.httpClient.Do(req)
	if err != nil {
		return &ncerr.NetworkError{URL: j.item.RemotePath, Transient: true, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ncerr.NetworkError{URL: j.item.RemotePath, Transient: resp.StatusCode >= 500, Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return &ncerr.IOError{Op: "download", Path: tmp, Cause: err}
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return &ncerr.NetworkError{URL: j.item.RemotePath, Transient: true, Cause: err}
	}
	if err := f.Close(); err != nil {
		return &ncerr.IOError{Op: "download", Path: tmp, Cause: err}
	}
	return os.Rename(tmp, dest)
}
