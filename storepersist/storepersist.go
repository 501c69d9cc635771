// Package storepersist provides JSON persistence with checksumming and
// optional compression for the tensor store's coordinate map and
// attributes block, plus its chunk files. It is a direct generalization of
// the jsp (JSON persistence) package in cmn/jsp/file.go and fs/vmd.go's
// load/persist pair: same atomic write-to-temp-then-rename discipline.
// On a checksum mismatch Load returns ErrBadChecksum and leaves the file
// in place.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package storepersist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/OneOfOne/xxhash"
	jsoniter "github.com/json-iterator/go"
	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
	"github.com/teris-io/shortid"
)

const (
	signature = "nwpc"
	version   = 1

	flagCompressed = 1 << 0
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options controls how a value is persisted.
type Options struct {
	Compress bool
}

// ErrBadChecksum is returned by Load when the on-disk checksum does not
// match the payload.
type ErrBadChecksum struct {
	Path string
}

func (e *ErrBadChecksum) Error() string { return fmt.Sprintf("storepersist: bad checksum in %s", e.Path) }

// Save JSON-encodes v, optionally lz4-compresses it, prefixes a checksummed
// header, and writes it atomically (temp file + rename) to path.
func Save(path string, v interface{}, opts Options) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "storepersist: marshal")
	}

	var flags byte
	if opts.Compress {
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return errors.Wrap(err, "storepersist: lz4 compress")
		}
		if err := w.Close(); err != nil {
			return errors.Wrap(err, "storepersist: lz4 close")
		}
		payload = buf.Bytes()
		flags |= flagCompressed
	}

	sum := xxhash.Checksum64(payload)

	tmp := path + ".tmp." + shortid.MustGenerate()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "storepersist: create temp file")
	}
	defer func() {
		_ = os.Remove(tmp)
	}()

	if err := writeHeader(f, flags, sum); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return errors.Wrap(err, "storepersist: write payload")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrap(err, "storepersist: fsync")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "storepersist: close")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "storepersist: rename")
	}
	return nil
}

// Load reads and verifies a file written by Save, decoding its JSON payload
// into v. Returns the stored checksum for callers that want to compare
// against a previously-seen value.
func Load(path string, v interface{}) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	flags, wantSum, err := readHeader(f)
	if err != nil {
		return 0, errors.Wrap(err, "storepersist: read header")
	}
	payload, err := io.ReadAll(f)
	if err != nil {
		return 0, errors.Wrap(err, "storepersist: read payload")
	}
	if got := xxhash.Checksum64(payload); got != wantSum {
		return 0, &ErrBadChecksum{Path: path}
	}
	if flags&flagCompressed != 0 {
		r := lz4.NewReader(bytes.NewReader(payload))
		decoded, err := io.ReadAll(r)
		if err != nil {
			return 0, errors.Wrap(err, "storepersist: lz4 decompress")
		}
		payload = decoded
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return 0, errors.Wrap(err, "storepersist: unmarshal")
	}
	return wantSum, nil
}

func writeHeader(w io.Writer, flags byte, sum uint64) error {
	var hdr [4 + 1 + 1 + 8]byte
	copy(hdr[0:4], signature)
	hdr[4] = version
	hdr[5] = flags
	binary.LittleEndian.PutUint64(hdr[6:14], sum)
	_, err := w.Write(hdr[:])
	return err
}

func readHeader(r io.Reader) (flags byte, sum uint64, err error) {
	var hdr [4 + 1 + 1 + 8]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, err
	}
	if string(hdr[0:4]) != signature {
		return 0, 0, fmt.Errorf("bad signature %q", hdr[0:4])
	}
	flags = hdr[5]
	sum = binary.LittleEndian.Uint64(hdr[6:14])
	return flags, sum, nil
}
