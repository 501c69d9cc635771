package cloudobj

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/colinmarc/hdfs/v2"

	"github.com/nwp-consumer/core/ncerr"
)

type hdfsBackend struct {
	client *hdfs.Client
}

func newHDFSBackend(env map[string]string) (blobBackend, error) {
	namenode, ok := env["NAMENODE"]
	if !ok || namenode == "" {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/hdfs", Msg: "NAMENODE is required"}
	}
	client, err := hdfs.New(namenode)
	if err != nil {
		return nil, &ncerr.ConfigError{Repo: "cloudobj/hdfs", Msg: err.Error()}
	}
	return &hdfsBackend{client: client}, nil
}

func (b *hdfsBackend) Name() string { return "hdfs" }

// List returns the files directly inside prefix's parent directory whose
// names start with prefix's last path element; subdirectories are not
// descended into.
func (b *hdfsBackend) List(_ context.Context, prefix string) ([]blobObject, error) {
	dir, base := path.Split(prefix)
	entries, err := b.client.ReadDir(dir)
	if err != nil {
		return nil, &ncerr.NetworkError{URL: prefix, Transient: true, Cause: err}
	}
	var out []blobObject
	for _, fi := range entries {
		if fi.IsDir() {
			continue
		}
		if !strings.HasPrefix(fi.Name(), base) {
			continue
		}
		out = append(out, blobObject{Key: path.Join(dir, fi.Name()), Size: fi.Size()})
	}
	return out, nil
}

func (b *hdfsBackend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := b.client.Open(key)
	if err != nil {
		return nil, &ncerr.NetworkError{URL: key, Transient: true, Cause: err}
	}
	return f, nil
}
