package cloudobj

import (
	"context"
	"fmt"
	"io"
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

// Repository adapts an object-store-published forecast family to
// raw.Repository, with the concrete transport (S3/GCS/Azure Blob/HDFS)
// selected by RequiredEnv["BACKEND"] at Authenticate time.
type Repository struct {
	model   repometa.Model
	rawDir  string
	env     map[string]string
	decode  raw.Decoder
	limiter *rate.Limiter

	backend blobBackend
}

// New constructs a cloudobj.Repository. decode is the opaque per-file
// decoder the caller supplies; backend selection happens lazily in
// Authenticate so construction never touches the network. Downloads are
// throttled to env["DOWNLOAD_RATE_LIMIT"] requests/second when set, to
// stay polite to providers that rate-limit or ban aggressive clients.
func New(model repometa.Model, rawDir string, env map[string]string, decode raw.Decoder) *Repository {
	return &Repository{model: model, rawDir: rawDir, env: env, decode: decode, limiter: rateLimiterFromEnv(env)}
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

func (r *Repository) Authenticate(_ context.Context) error {
	kind, ok := r.env["BACKEND"]
	if !ok || kind == "" {
		return &ncerr.ConfigError{Repo: r.model.Name, Msg: "required env BACKEND not set"}
	}
	for _, ev := range r.model.RequiredEnv {
		if _, ok := r.env[ev.Name]; !ok {
			return &ncerr.ConfigError{Repo: r.model.Name, Msg: fmt.Sprintf("required env %s not set", ev.Name)}
		}
	}
	backend, err := newBackend(kind, r.env)
	if err != nil {
		return &ncerr.AuthError{Repo: r.model.Name, Msg: err.Error()}
	}
	r.backend = backend
	return nil
}

// FetchInitData lists every remote object under this init-time's prefix
// and wraps each as a deferred job. No object is opened here.
func (r *Repository) FetchInitData(ctx context.Context, it time.Time) ([]raw.Job, error) {
	if r.backend == nil {
		return nil, &ncerr.ConfigError{Repo: r.model.Name, Msg: "authenticate() was not called"}
	}
	prefix := it.UTC().Format("2006/01/02/15")
	objects, err := r.backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	glog.Infof("cloudobj: %d object(s) found for %s under %s", len(objects), r.model.Name, prefix)

	jobs := make([]raw.Job, 0, len(objects))
	for _, obj := range objects {
		jobs = append(jobs, &cloudobjJob{
			repo: r,
			it:   it,
			obj:  obj,
		})
	}
	return jobs, nil
}

type cloudobjJob struct {
	repo *Repository
	it   time.Time
	obj  blobObject
}

func (j *cloudobjJob) String() string { return j.obj.Key }

// Run downloads the remote object if it isn't already cached, decodes
// it, resolves each field to a canonical parameter and drops fields the
// model does not expect. Each fragment's coordinates are taken from the
// decoded indexes as they are; fragments are not cropped or reshaped to
// the model's expected coordinates.
func (j *cloudobjJob) Run(ctx context.Context) ([]tensorstore.Fragment, error) {
	dest := raw.CachePath(j.repo.rawDir, j.repo.backend.Name(), j.repo.model.Name, j.it, filepath.Base(j.obj.Key))

	if !raw.AlreadyCached(dest, j.obj.Size) {
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
		p, err := parameter.Resolve(f.Name)
		if err != nil {
			continue // unknown name: no canonical parameter to map it to
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

func (j *cloudobjJob) download(ctx context.Context, dest string) error {
	if j.repo.limiter != nil {
		if err := j.repo.limiter.Wait(ctx); err != nil {
			return &ncerr.NetworkError{URL: j.obj.Key, Transient: true, Cause: err}
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &ncerr.IOError{Op: "download", Path: dest, Cause: err}
	}
	rc, err := j.repo.backend.Open(ctx, j.obj.Key)
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return &ncerr.IOError{Op: "download", Path: tmp, Cause: err}
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return &ncerr.NetworkError{URL: j.obj.Key, Transient: true, Cause: err}
	}
	if err := f.Close(); err != nil {
		return &ncerr.IOError{Op: "download", Path: tmp, Cause: err}
	}
	return os.Rename(tmp, dest)
}
