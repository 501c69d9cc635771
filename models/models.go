// Package models is the static registry of providers this build knows
// about: each entry pairs a repometa.Model descriptor with the adaptor
// kind (and any adaptor-specific env) needed to build a raw.Repository
// for it. Grounded on the teacher's registered-backend convention in
// ais/backend (one descriptor per supported cloud, selected by name at
// startup rather than compiled conditionally).
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package models

import (
	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/repometa"
)

// Kind names which raw.Repository adaptor serves a model.
type Kind string

const (
	KindCloudObj   Kind = "cloudobj"
	KindArchiveAPI Kind = "archiveapi"
)

// Entry is one registered provider.
type Entry struct {
	Model repometa.Model
	Kind  Kind
}

// registry is the static table of providers this build ships. Extending
// it to a new provider means adding one Entry, never touching the
// engine or either adaptor.
var registry = map[string]Entry{
	"icon-eu": {
		Kind: KindCloudObj,
		Model: repometa.Model{
			Name:           "icon-eu",
			RunningHours:   []int{0, 6, 12, 18},
			DelayMinutes:   180,
			MaxConnections: 8,
			RequiredEnv: []repometa.EnvVar{
				{Name: "BACKEND", Description: "object store backend: s3, gcs, azureblob or hdfs"},
				{Name: "BUCKET", Description: "bucket or container holding published runs"},
			},
			OptionalEnv: []repometa.EnvVar{
				{Name: "REGION", Description: "backend region, where applicable", Default: ""},
				{Name: "DECODER_BIN", Description: "external GRIB2 decode binary", Default: "nwpc-decode-grib2"},
				{Name: "DOWNLOAD_RATE_LIMIT", Description: "max object downloads/second, unlimited if unset", Default: ""},
			},
			ExpectedCoordinates: coords.Coords{
				Step:      stepRange(0, 78, 1),
				Variable:  []string{"temperature_sl", "downward_shortwave_radiation_flux_gl", "wind_u_component_10m", "wind_v_component_10m"},
				Latitude:  latRange(70.5, 43.18, -0.0625),
				Longitude: lonRange(-23.5, 62.5, 0.0625),
			},
			ChunkCountOverrides: map[string]int{coords.DimLatitude: 8, coords.DimLongitude: 8},
			Postprocess:         repometa.PostprocessOptions{AppendToArchive: repometa.AppendMonthly},
		},
	},
	"ukv": {
		Kind: KindArchiveAPI,
		Model: repometa.Model{
			Name:           "ukv",
			IsArchive:      true,
			IsOrderBased:   true,
			RunningHours:   []int{0, 3, 6, 9, 12, 15, 18, 21},
			DelayMinutes:   240,
			MaxConnections: 4,
			RequiredEnv: []repometa.EnvVar{
				{Name: "BEARER_TOKEN", Description: "order API bearer token"},
				{Name: "JWT_SECRET", Description: "HMAC secret the bearer token is signed with"},
				{Name: "MANIFEST_URL", Description: "fmt-style manifest URL template, one %s placeholder for the init-time"},
			},
			OptionalEnv: []repometa.EnvVar{
				{Name: "TRANSPORT", Description: "http (default) or sftp", Default: "http"},
				{Name: "DECODER_BIN", Description: "external GRIB2 decode binary", Default: "nwpc-decode-grib2"},
				{Name: "DOWNLOAD_RATE_LIMIT", Description: "max order-file downloads/second, unlimited if unset", Default: ""},
			},
			ExpectedCoordinates: coords.Coords{
				Step:      stepRange(0, 48, 1),
				Variable:  []string{"temperature_sl", "relative_humidity_sl", "precipitation_rate_gl"},
				Latitude:  latRange(60.5, 48.5, -0.05),
				Longitude: lonRange(-10.0, 2.0, 0.05),
			},
			Postprocess: repometa.PostprocessOptions{AppendToArchive: repometa.AppendYearly},
		},
	},
}

// Lookup returns the registered entry for name, and whether it exists.
func Lookup(name string) (Entry, bool) {
	e, ok := registry[name]
	return e, ok
}

// Names returns every registered model name.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}

func stepRange(start, end, step int) []int {
	var out []int
	for s := start; s <= end; s += step {
		out = append(out, s)
	}
	return out
}

func latRange(start, end, step float64) []float64 {
	var out []float64
	if step < 0 {
		for v := start; v >= end; v += step {
			out = append(out, v)
		}
		return out
	}
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out
}

func lonRange(start, end, step float64) []float64 {
	return latRange(start, end, step)
}
