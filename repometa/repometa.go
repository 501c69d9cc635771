// Package repometa describes the immutable, per-provider static metadata:
// running hours, availability delay, concurrency ceiling, required
// and optional configuration, the expected coordinate map, chunking
// overrides, and post-process options. Grounded on the
// ClusterConfig/LocalConfig struct-of-structs layout of cmn/config.go -
// one immutable value, built once, validated against environment input.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package repometa

import (
	"fmt"
	"time"

	"github.com/nwp-consumer/core/coords"
)

// ArchiveAppendMode selects how a consume store folds into an archive.
type ArchiveAppendMode int

const (
	AppendUnset ArchiveAppendMode = iota
	AppendMonthly
	AppendYearly
)

func (m ArchiveAppendMode) String() string {
	switch m {
	case AppendMonthly:
		return "monthly"
	case AppendYearly:
		return "yearly"
	default:
		return "unset"
	}
}

// PostprocessOptions carries the repository-supplied postprocess
// configuration.
type PostprocessOptions struct {
	AppendToArchive ArchiveAppendMode
}

// EnvVar names a required or optional environment variable.
type EnvVar struct {
	Name        string
	Description string
	Default     string // only meaningful for optional vars
}

// Model is the immutable, per-provider-and-model descriptor.
type Model struct {
	Name       string
	IsArchive  bool
	IsOrderBased bool

	RunningHours  []int // subset of 0..23, UTC
	DelayMinutes  int
	MaxConnections int

	RequiredEnv []EnvVar
	OptionalEnv []EnvVar

	ExpectedCoordinates coords.Coords
	ChunkCountOverrides map[string]int // dim name -> divisor, overriding the default of 4 for spatial dims

	Postprocess PostprocessOptions
}

// Validate checks the static invariants of a Model value, following the
// cmn.Validator / cmn.PropsValidator interfaces of cmn/config.go.
func (m Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("repometa: model name is required")
	}
	if m.MaxConnections < 1 {
		return fmt.Errorf("repometa: max_connections must be >= 1, got %d", m.MaxConnections)
	}
	if m.DelayMinutes < 0 {
		return fmt.Errorf("repometa: delay_minutes must be >= 0, got %d", m.DelayMinutes)
	}
	seen := make(map[int]bool, len(m.RunningHours))
	for _, h := range m.RunningHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("repometa: running hour %d out of range [0,23]", h)
		}
		if seen[h] {
			return fmt.Errorf("repometa: duplicate running hour %d", h)
		}
		seen[h] = true
	}
	return nil
}

// LatestInitTimeAt rolls now back by DelayMinutes, then back further in
// whole hours until the hour lies in RunningHours. The boundary at
// now-delay is inclusive: an init time exactly DelayMinutes old counts
// as already available.
func (m Model) LatestInitTimeAt(now time.Time) time.Time {
	cutoff := now.UTC().Add(-time.Duration(m.DelayMinutes) * time.Minute).Truncate(time.Hour)
	runSet := make(map[int]bool, len(m.RunningHours))
	for _, h := range m.RunningHours {
		runSet[h] = true
	}
	if len(runSet) == 0 {
		return cutoff
	}
	t := cutoff
	for i := 0; i < 24; i++ {
		if runSet[t.Hour()] {
			return t
		}
		t = t.Add(-time.Hour)
	}
	return cutoff
}

// ChunkCount returns the number of chunks a dimension should be split
// into: 4 for spatial dims, or 0 for init_time/step/variable, a sentinel
// meaning one value per chunk (as many chunks as the dimension has values;
// tensorstore's newChunking turns the count into a chunk size), unless
// ChunkCountOverrides names a different divisor for dim.
func (m Model) ChunkCount(dim string) int {
	if d, ok := m.ChunkCountOverrides[dim]; ok {
		return d
	}
	switch dim {
	case coords.DimLatitude, coords.DimLongitude, coords.DimY, coords.DimX:
		return 4
	default:
		return 0 // sentinel: "one element per chunk" for init_time/step/variable
	}
}
