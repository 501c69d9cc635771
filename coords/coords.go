// Package coords implements the coordinate map: the ordered
// per-dimension coordinate vectors describing the shape of one init-time's
// tensor, and the region algebra used to locate a fragment's slab within a
// larger store without locking.
//
// Coordinates are modeled as a struct of typed fields rather than a
// generic string-keyed map, following the same design as cluster.Smap in
// cluster/map.go - itself an ordered, typed, versioned collection exposed
// through both concrete fields and generic iteration; Dims together with
// the unexported vectorKeys re-exposes them as (label, values) pairs for
// the region algebra.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package coords

import (
	"fmt"
	"time"

	"github.com/nwp-consumer/core/parameter"
)

// Dimension name constants, in fixed canonical order.
const (
	DimInitTime       = "init_time"
	DimStep           = "step"
	DimVariable       = "variable"
	DimLatitude       = "latitude"
	DimLongitude      = "longitude"
	DimY              = "y"
	DimX              = "x"
	DimEnsembleStat   = "ensemble_stat"
	DimEnsembleMember = "ensemble_member"
)

// Coords describes one init-time's tensor shape. Required dims are
// InitTime, Step, Variable, plus at least one spatial pair. EnsembleStat and
// EnsembleMember are optional.
type Coords struct {
	InitTime []time.Time // UTC, nanosecond precision, strictly ascending
	Step     []int       // non-negative forecast horizons, hours, ascending
	Variable []string    // canonical parameter names, each at most once

	// Regular lat/lon grid. Mutually exclusive with Y/X.
	Latitude  []float64 // degrees, provider-defined monotonic direction (typically descending)
	Longitude []float64 // degrees, typically ascending

	// Projected grid. Mutually exclusive with Latitude/Longitude.
	Y          []float64 // meters
	X          []float64 // meters
	Projection string    // projection identifier for Y/X, e.g. "lambert_conformal"

	EnsembleStat   []string // ordered labels, e.g. "mean", "std", "p10"
	EnsembleMember []int
}

// Range is a half-open index range [Start, End) along one dimension.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// RegionErrorKind classifies why determine_region failed.
type RegionErrorKind int

const (
	MismatchedDims RegionErrorKind = iota
	NotSubset
	NonContiguous
)

func (k RegionErrorKind) String() string {
	switch k {
	case MismatchedDims:
		return "MismatchedDims"
	case NotSubset:
		return "NotSubset"
	case NonContiguous:
		return "NonContiguous"
	default:
		return "Unknown"
	}
}

// RegionError is returned by DetermineRegion when outer and inner cannot be
// related by the region algebra.
type RegionError struct {
	Kind    RegionErrorKind
	Dim     string
	Details string
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region error %s on dim %q: %s", e.Kind, e.Dim, e.Details)
}

// EmptyCropError is returned by Crop when no values remain in the result.
type EmptyCropError struct {
	N, W, S, E float64
}

func (e *EmptyCropError) Error() string {
	return fmt.Sprintf("crop [n=%v w=%v s=%v e=%v] leaves no coordinates", e.N, e.W, e.S, e.E)
}

// hasSpatialLatLon reports whether c uses the regular lat/lon grid.
func (c Coords) hasSpatialLatLon() bool {
	return len(c.Latitude) > 0 || len(c.Longitude) > 0
}

func (c Coords) hasSpatialYX() bool {
	return len(c.Y) > 0 || len(c.X) > 0
}

// Dims returns the ordered list of dimension names present in c, in
// canonical dimension order.
func (c Coords) Dims() []string {
	dims := []string{DimInitTime, DimStep, DimVariable}
	if c.hasSpatialLatLon() {
		dims = append(dims, DimLatitude, DimLongitude)
	}
	if c.hasSpatialYX() {
		dims = append(dims, DimY, DimX)
	}
	if len(c.EnsembleStat) > 0 {
		dims = append(dims, DimEnsembleStat)
	}
	if len(c.EnsembleMember) > 0 {
		dims = append(dims, DimEnsembleMember)
	}
	return dims
}

// Shape returns the length of each dimension vector, keyed by the names
// Dims() returns.
func (c Coords) Shape() map[string]int {
	shape := make(map[string]int, 8)
	for _, d := range c.Dims() {
		keys, _ := c.vectorKeys(d)
		shape[d] = len(keys)
	}
	return shape
}

// vectorKeys returns a dimension's values as comparable keys: int64 ns
// epoch for times, float64 for spatial/real-valued dims, int for
// step/ensemble_member, string for variable/ensemble_stat labels.
func (c Coords) vectorKeys(dim string) ([]any, bool) {
	switch dim {
	case DimInitTime:
		out := make([]any, len(c.InitTime))
		for i, t := range c.InitTime {
			out[i] = t.UTC().Round(time.Nanosecond).UnixNano()
		}
		return out, true
	case DimStep:
		out := make([]any, len(c.Step))
		for i, s := range c.Step {
			out[i] = s
		}
		return out, true
	case DimVariable:
		out := make([]any, len(c.Variable))
		for i, v := range c.Variable {
			out[i] = v
		}
		return out, true
	case DimLatitude:
		return f64Keys(c.Latitude), true
	case DimLongitude:
		return f64Keys(c.Longitude), true
	case DimY:
		return f64Keys(c.Y), true
	case DimX:
		return f64Keys(c.X), true
	case DimEnsembleStat:
		out := make([]any, len(c.EnsembleStat))
		for i, v := range c.EnsembleStat {
			out[i] = v
		}
		return out, true
	case DimEnsembleMember:
		out := make([]any, len(c.EnsembleMember))
		for i, v := range c.EnsembleMember {
			out[i] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func f64Keys(vs []float64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// FromIndexes validates and constructs a Coords from a generic
// string-keyed map of raw dimension vectors, as handed over by a decoder.
// Required dims must be present; variable entries must resolve to known
// parameters (canonicalized); times are cast to UTC nanosecond precision.
func FromIndexes(idx map[string]any) (Coords, error) {
	var c Coords

	rawInit, ok := idx[DimInitTime]
	if !ok {
		return Coords{}, fmt.Errorf("from_indexes: missing required dim %q", DimInitTime)
	}
	its, ok := rawInit.([]time.Time)
	if !ok {
		return Coords{}, fmt.Errorf("from_indexes: dim %q must be []time.Time", DimInitTime)
	}
	c.InitTime = make([]time.Time, len(its))
	for i, t := range its {
		c.InitTime[i] = t.UTC()
	}

	rawStep, ok := idx[DimStep]
	if !ok {
		return Coords{}, fmt.Errorf("from_indexes: missing required dim %q", DimStep)
	}
	steps, ok := rawStep.([]int)
	if !ok {
		return Coords{}, fmt.Errorf("from_indexes: dim %q must be []int", DimStep)
	}
	c.Step = append([]int(nil), steps...)

	rawVar, ok := idx[DimVariable]
	if !ok {
		return Coords{}, fmt.Errorf("from_indexes: missing required dim %q", DimVariable)
	}
	vars, ok := rawVar.([]string)
	if !ok {
		return Coords{}, fmt.Errorf("from_indexes: dim %q must be []string", DimVariable)
	}
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		p, err := parameter.Resolve(v)
		if err != nil {
			return Coords{}, fmt.Errorf("from_indexes: variable %q: %w", v, err)
		}
		if seen[p.Name] {
			return Coords{}, fmt.Errorf("from_indexes: variable %q appears more than once", p.Name)
		}
		seen[p.Name] = true
		c.Variable = append(c.Variable, p.Name)
	}

	if lat, ok := idx[DimLatitude].([]float64); ok {
		c.Latitude = append([]float64(nil), lat...)
	}
	if lon, ok := idx[DimLongitude].([]float64); ok {
		c.Longitude = append([]float64(nil), lon...)
	}
	if y, ok := idx[DimY].([]float64); ok {
		c.Y = append([]float64(nil), y...)
	}
	if x, ok := idx[DimX].([]float64); ok {
		c.X = append([]float64(nil), x...)
	}
	if proj, ok := idx["projection"].(string); ok {
		c.Projection = proj
	}
	if !c.hasSpatialLatLon() && !c.hasSpatialYX() {
		return Coords{}, fmt.Errorf("from_indexes: at least one spatial pair (latitude/longitude or y/x) is required")
	}

	if es, ok := idx[DimEnsembleStat].([]string); ok {
		c.EnsembleStat = append([]string(nil), es...)
	}
	if em, ok := idx[DimEnsembleMember].([]int); ok {
		c.EnsembleMember = append([]int(nil), em...)
	}
	return c, nil
}

// ToIndexes is the inverse of FromIndexes.
func ToIndexes(c Coords) map[string]any {
	idx := map[string]any{
		DimInitTime: append([]time.Time(nil), c.InitTime...),
		DimStep:     append([]int(nil), c.Step...),
		DimVariable: append([]string(nil), c.Variable...),
	}
	if c.hasSpatialLatLon() {
		idx[DimLatitude] = append([]float64(nil), c.Latitude...)
		idx[DimLongitude] = append([]float64(nil), c.Longitude...)
	}
	if c.hasSpatialYX() {
		idx[DimY] = append([]float64(nil), c.Y...)
		idx[DimX] = append([]float64(nil), c.X...)
		idx["projection"] = c.Projection
	}
	if len(c.EnsembleStat) > 0 {
		idx[DimEnsembleStat] = append([]string(nil), c.EnsembleStat...)
	}
	if len(c.EnsembleMember) > 0 {
		idx[DimEnsembleMember] = append([]int(nil), c.EnsembleMember...)
	}
	return idx
}

// Equal reports whether two coordinate maps are identical: same dims, same
// values in the same order along every dim.
func (c Coords) Equal(o Coords) bool {
	d1, d2 := c.Dims(), o.Dims()
	if len(d1) != len(d2) {
		return false
	}
	for i := range d1 {
		if d1[i] != d2[i] {
			return false
		}
	}
	for _, d := range d1 {
		k1, _ := c.vectorKeys(d)
		k2, _ := o.vectorKeys(d)
		if len(k1) != len(k2) {
			return false
		}
		for i := range k1 {
			if k1[i] != k2[i] {
				return false
			}
		}
	}
	return true
}

// ReplaceInitTime returns a copy of c with the init_time dimension replaced - used
// by the consume/archive engines to turn a model's expected_coordinates
// template into the coordinates of one concrete store.
func (c Coords) ReplaceInitTime(its []time.Time) Coords {
	out := c
	out.InitTime = append([]time.Time(nil), its...)
	return out
}

// NWSE returns the bounding box of the current spatial dims: north, west,
// south, east. Returns all zeros if c has no latitude or no longitude
// values.
func (c Coords) NWSE() (n, w, s, e float64) {
	if len(c.Latitude) == 0 || len(c.Longitude) == 0 {
		return 0, 0, 0, 0
	}
	n, s = c.Latitude[0], c.Latitude[len(c.Latitude)-1]
	if s > n {
		n, s = s, n
	}
	w, e = c.Longitude[0], c.Longitude[len(c.Longitude)-1]
	if e < w {
		w, e = e, w
	}
	return n, w, s, e
}
