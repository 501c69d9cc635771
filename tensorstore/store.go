// Package tensorstore implements a chunked, zarr-style tensor store: a
// directory of per-dimension chunk files addressed by a fixed-order
// coordinate map, written region by region from a single writer with no
// chunk-level locking, and read back by Postprocess for month/year
// consolidation.
//
// A chunk file is only created the first time a write touches it; an
// absent chunk on disk is the fill value (NaN), matching the sparse
// on-disk representation a zarr-backed store keeps - initialize_empty
// never eagerly materializes every chunk. Grounded on fs/content.go's
// content-addressed object layout and mirror/*_mgr.go's region-disjoint
// worker writes: one file per addressable unit, a background index of
// what's present, no cross-worker coordination beyond disjoint regions.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package tensorstore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/tidwall/buntdb"

	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/ncerr"
	"github.com/nwp-consumer/core/parameter"
	"github.com/nwp-consumer/core/repometa"
	"github.com/nwp-consumer/core/storepersist"
)

const chunksSubdir = "chunks"

// Attrs is the mutable metadata block attached to a store, persisted
// alongside its coordinate map and updated by UpdateAttrs.
type Attrs struct {
	CreatedAt            time.Time
	Producer             string
	VariableDescriptions map[string]string
	FailedTimes          []string
	SizeMB               float64
}

// Store is one open tensor store: a directory holding a coordinate map,
// an attrs block, and a sparse set of chunk files, plus an in-memory
// index of which chunk keys have been written (rebuilt from disk on
// Open, since buntdb here runs purely in memory).
type Store struct {
	Name   string
	Dir    string
	Coords coords.Coords
	Model  repometa.Model

	Compress bool

	chunking chunking
	Attrs    Attrs

	idx *buntdb.DB
	mu  sync.Mutex
}

// ConsumeStorePath renders the per-init-time store directory path used by
// the consume engine: $root/$name/YYYYMMDDHH.store.
func ConsumeStorePath(root, name string, it time.Time) string {
	return filepath.Join(root, name, it.UTC().Format("2006010215")+".store")
}

// ArchiveStorePath renders the monthly/yearly consolidated store
// directory path used by the archive engine.
func ArchiveStorePath(root, name string, year, month int, mode repometa.ArchiveAppendMode) string {
	if mode == repometa.AppendYearly {
		return filepath.Join(root, name, fmt.Sprintf("%04d", year)+".store")
	}
	return filepath.Join(root, name, fmt.Sprintf("%04d%02d", year, month)+".store")
}

// InitializeEmpty creates a new, empty store at dir holding the shape
// described by c: the directory structure and persisted coords/attrs, but
// no chunk files. Fails with ncerr.StoreExists if dir already holds a
// store and overwrite is false; callers (the archive engine in
// particular) may catch that and call Open instead to resume.
func InitializeEmpty(dir string, c coords.Coords, model repometa.Model, overwrite bool) (*Store, error) {
	if _, err := os.Stat(filepath.Join(dir, "coords.json")); err == nil {
		if !overwrite {
			return nil, &ncerr.StoreExists{Path: dir}
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, &ncerr.IOError{Op: "initialize_empty", Path: dir, Cause: err}
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, chunksSubdir), 0o755); err != nil {
		return nil, &ncerr.IOError{Op: "initialize_empty", Path: dir, Cause: err}
	}

	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, &ncerr.IOError{Op: "initialize_empty", Path: dir, Cause: err}
	}

	s := &Store{
		Name:   filepath.Base(dir),
		Dir:    dir,
		Coords: c,
		Model:  model,
		Attrs: Attrs{
			CreatedAt:            c.InitTime[0],
			Producer:             "nwp-consumer",
			VariableDescriptions: descriptionsFor(c.Variable),
		},
		chunking: newChunking(model, c),
		idx:      db,
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open loads an existing store from dir, rebuilding its in-memory
// written-chunk index from the chunk files present on disk.
func Open(dir string, model repometa.Model) (*Store, error) {
	var c coords.Coords
	if _, err := storepersist.Load(filepath.Join(dir, "coords.json"), &c); err != nil {
		return nil, &ncerr.IOError{Op: "open", Path: dir, Cause: err}
	}
	var a Attrs
	if _, err := storepersist.Load(filepath.Join(dir, "attrs.json"), &a); err != nil {
		return nil, &ncerr.IOError{Op: "open", Path: dir, Cause: err}
	}

	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, &ncerr.IOError{Op: "open", Path: dir, Cause: err}
	}

	s := &Store{
		Name:     filepath.Base(dir),
		Dir:      dir,
		Coords:   c,
		Model:    model,
		Attrs:    a,
		chunking: newChunking(model, c),
		idx:      db,
	}

	chunksDir := filepath.Join(dir, chunksSubdir)
	err = godirwalk.Walk(chunksDir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(_ string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			key := chunkKeyFromFilename(de.Name())
			if key == "" {
				return nil
			}
			return s.idx.Update(func(tx *buntdb.Tx) error {
				_, _, err := tx.Set(key, "1", nil)
				return err
			})
		},
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, &ncerr.IOError{Op: "open", Path: chunksDir, Cause: err}
	}
	return s, nil
}

func descriptionsFor(vars []string) map[string]string {
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		if p, ok := parameter.Canonical(v); ok {
			out[v] = p.Description
		}
	}
	return out
}

func (s *Store) chunkPath(cc chunkCoord) string {
	return filepath.Join(s.Dir, chunksSubdir, s.chunking.key(cc)+".chunk")
}

func chunkKeyFromFilename(name string) string {
	const suffix = ".chunk"
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return ""
	}
	return name[:len(name)-len(suffix)]
}

func (s *Store) persist() error {
	if err := storepersist.Save(filepath.Join(s.Dir, "coords.json"), s.Coords, storepersist.Options{}); err != nil {
		return &ncerr.IOError{Op: "persist", Path: s.Dir, Cause: err}
	}
	if err := storepersist.Save(filepath.Join(s.Dir, "attrs.json"), s.Attrs, storepersist.Options{}); err != nil {
		return &ncerr.IOError{Op: "persist", Path: s.Dir, Cause: err}
	}
	return nil
}

func shapeProduct(shape map[string]int, dims []string) int {
	n := 1
	for _, d := range dims {
		n *= shape[d]
	}
	return n
}

// WriteToRegion writes fragment's data into the chunks it overlaps,
// read-modify-write per chunk. If region is nil it is derived from
// coords.DetermineRegion(s.Coords, fragment.Coords). Returns the number
// of bytes newly allocated on disk (chunks created for the first time).
// WriteToRegion is not safe for concurrent callers; the engine calls it
// from one goroutine only.
func (s *Store) WriteToRegion(fragment Fragment, region map[string]coords.Range) (int64, error) {
	if region == nil {
		r, err := coords.DetermineRegion(s.Coords, fragment.Coords)
		if err != nil {
			return 0, err
		}
		region = r
	}

	fragStrides := strides(fragment.Coords.Dims(), fragment.Coords.Shape())

	var newBytes int64
	for _, cc := range s.chunking.chunksOverlapping(region) {
		shape := s.chunking.chunkShape(cc)
		chunkLen := shapeProduct(shape, s.chunking.dims)
		path := s.chunkPath(cc)

		data := make([]float64, chunkLen)
		isNew := true
		if _, err := os.Stat(path); err == nil {
			isNew = false
			if _, err := storepersist.Load(path, &data); err != nil {
				return newBytes, &ncerr.IOError{Op: "write_to_region", Path: path, Cause: err}
			}
		} else {
			for i := range data {
				data[i] = math.NaN()
			}
		}

		overlapLen, chunkOffset, fragOffset := s.chunking.overlap(cc, region)
		chunkStrides := strides(s.chunking.dims, shape)
		copyOverlap(s.chunking.dims, overlapLen, fragOffset, fragStrides, fragment.Data, chunkOffset, chunkStrides, data)

		if err := storepersist.Save(path, data, storepersist.Options{Compress: s.Compress}); err != nil {
			return newBytes, &ncerr.IOError{Op: "write_to_region", Path: path, Cause: err}
		}

		if isNew {
			b := int64(chunkLen * 8)
			newBytes += b
			key := s.chunking.key(cc)
			if err := s.idx.Update(func(tx *buntdb.Tx) error {
				_, _, err := tx.Set(key, "1", nil)
				return err
			}); err != nil {
				return newBytes, &ncerr.IOError{Op: "write_to_region", Path: path, Cause: err}
			}
		}
	}

	s.mu.Lock()
	s.Attrs.SizeMB += float64(newBytes) / (1024 * 1024)
	s.mu.Unlock()

	if err := storepersist.Save(filepath.Join(s.Dir, "attrs.json"), s.Attrs, storepersist.Options{}); err != nil {
		return newBytes, &ncerr.IOError{Op: "write_to_region", Path: s.Dir, Cause: err}
	}
	return newBytes, nil
}

// MissingTimes returns every init_time in s.Coords for which no chunk has
// ever been written, in ascending order - the set the archive engine
// still needs to fetch. Uses buntdb's AscendKeys glob matching over the
// written-chunk index rather than reading the filesystem, since every
// chunk key is prefixed with its init_time chunk index by construction.
func (s *Store) MissingTimes() ([]time.Time, error) {
	var missing []time.Time
	for i, it := range s.Coords.InitTime {
		pattern := fmt.Sprintf("%s-%d_*", coords.DimInitTime, i)
		found := false
		err := s.idx.View(func(tx *buntdb.Tx) error {
			return tx.AscendKeys(pattern, func(_, _ string) bool {
				found = true
				return false
			})
		})
		if err != nil {
			return nil, &ncerr.IOError{Op: "missing_times", Path: s.Dir, Cause: err}
		}
		if !found {
			missing = append(missing, it)
		}
	}
	return missing, nil
}

// UpdateAttrs appends failedTimes to the store's FailedTimes attribute and
// persists the attrs block; the other attrs are maintained internally.
// failedTimes is rendered "dd HH:MM" and kept in descending order, so the
// most recently missed init-time in the run always leads the attribute.
func (s *Store) UpdateAttrs(failedTimes []time.Time) error {
	sorted := append([]time.Time(nil), failedTimes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	s.mu.Lock()
	for _, t := range sorted {
		s.Attrs.FailedTimes = append(s.Attrs.FailedTimes, t.UTC().Format("02 15:04"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(s.Attrs.FailedTimes)))
	s.mu.Unlock()
	return storepersist.Save(filepath.Join(s.Dir, "attrs.json"), s.Attrs, storepersist.Options{})
}

// gatherRegion reads the slab of s described by inner back out as a
// Fragment, filling any never-written chunk with NaN. It is the read-side
// mirror of WriteToRegion, used by Postprocess to move data into a
// consolidated archive store.
func (s *Store) gatherRegion(inner coords.Coords) (Fragment, error) {
	region, err := coords.DetermineRegion(s.Coords, inner)
	if err != nil {
		return Fragment{}, err
	}

	shape := inner.Shape()
	dims := inner.Dims()
	out := make([]float64, shapeProduct(shape, dims))
	for i := range out {
		out[i] = math.NaN()
	}
	outStrides := strides(dims, shape)

	for _, cc := range s.chunking.chunksOverlapping(region) {
		path := s.chunkPath(cc)
		if _, err := os.Stat(path); err != nil {
			continue // unwritten chunk: fill value stands
		}
		cShape := s.chunking.chunkShape(cc)
		data := make([]float64, shapeProduct(cShape, s.chunking.dims))
		if _, err := storepersist.Load(path, &data); err != nil {
			return Fragment{}, &ncerr.IOError{Op: "gather_region", Path: path, Cause: err}
		}
		overlapLen, chunkOffset, outOffset := s.chunking.overlap(cc, region)
		chunkStrides := strides(s.chunking.dims, cShape)
		copyOverlap(s.chunking.dims, overlapLen, chunkOffset, chunkStrides, data, outOffset, outStrides, out)
	}

	var param parameter.Parameter
	if len(inner.Variable) == 1 {
		param, _ = parameter.Canonical(inner.Variable[0])
	}
	return Fragment{Parameter: param, Coords: inner, Data: out}, nil
}

// Postprocess merges s into a monthly or yearly archive store per opts,
// then deletes s. An existing store at targetDir must already describe the
// full encompassing coordinate map; if none exists, one is initialized
// covering every init-time of the month (or year) whose hour is in
// s.Model.RunningHours. Postprocess is a no-op if opts.AppendToArchive is
// unset.
func (s *Store) Postprocess(opts repometa.PostprocessOptions, targetDir string) error {
	if opts.AppendToArchive == repometa.AppendUnset {
		return nil
	}

	var target *Store
	var err error
	if _, statErr := os.Stat(filepath.Join(targetDir, "coords.json")); statErr == nil {
		target, err = Open(targetDir, s.Model)
	} else {
		it0 := s.Coords.InitTime[0].UTC()
		start := time.Date(it0.Year(), it0.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		if opts.AppendToArchive == repometa.AppendYearly {
			start = time.Date(it0.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(1, 0, 0)
		}
		var its []time.Time
		for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
			for _, h := range s.Model.RunningHours {
				its = append(its, d.Add(time.Duration(h)*time.Hour))
			}
		}
		target, err = InitializeEmpty(targetDir, s.Coords.ReplaceInitTime(its), s.Model, false)
	}
	if err != nil {
		return err
	}

	for _, v := range s.Coords.Variable {
		for _, st := range s.Coords.Step {
			inner := s.Coords
			inner.Variable = []string{v}
			inner.Step = []int{st}
			frag, err := s.gatherRegion(inner)
			if err != nil {
				return err
			}
			if _, err := target.WriteToRegion(frag, nil); err != nil {
				return err
			}
		}
	}

	return os.RemoveAll(s.Dir)
}
