package tensorstore

import (
	"testing"
	"time"

	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/repometa"
)

func TestNewChunkingDefaults(t *testing.T) {
	c := coords.Coords{
		InitTime:  []time.Time{time.Now()},
		Step:      []int{0, 6, 12},
		Variable:  []string{"temperature_sl"},
		Latitude:  []float64{1, 2, 3, 4, 5},
		Longitude: []float64{1, 2, 3, 4, 5},
	}
	ch := newChunking(repometa.Model{}, c)

	// Non-spatial dims: one element per chunk (sentinel count=0 -> count=n).
	if ch.chunkSize[coords.DimStep] != 1 {
		t.Errorf("step chunk size = %d, want 1", ch.chunkSize[coords.DimStep])
	}
	// Spatial dims: default count 4, ceilDiv(5,4) = 2.
	if ch.chunkSize[coords.DimLatitude] != 2 {
		t.Errorf("latitude chunk size = %d, want 2", ch.chunkSize[coords.DimLatitude])
	}
}

func TestChunksOverlappingCoversWholeRegion(t *testing.T) {
	c := coords.Coords{
		InitTime:  []time.Time{time.Now()},
		Step:      []int{0, 6},
		Variable:  []string{"temperature_sl"},
		Latitude:  []float64{1, 2, 3, 4},
		Longitude: []float64{1, 2},
	}
	ch := newChunking(repometa.Model{}, c)

	region := map[string]coords.Range{
		coords.DimInitTime: {Start: 0, End: 1},
		coords.DimStep:      {Start: 0, End: 2},
		coords.DimVariable:  {Start: 0, End: 1},
		coords.DimLatitude:  {Start: 0, End: 4},
		coords.DimLongitude: {Start: 0, End: 2},
	}
	chunks := ch.chunksOverlapping(region)
	if len(chunks) == 0 {
		t.Fatal("expected at least one overlapping chunk")
	}

	seen := make(map[string]bool)
	for _, cc := range chunks {
		k := ch.key(cc)
		if seen[k] {
			t.Errorf("duplicate chunk key %q", k)
		}
		seen[k] = true
	}
}

func TestChunkKeyRoundTripsThroughFilename(t *testing.T) {
	c := coords.Coords{
		InitTime:  []time.Time{time.Now()},
		Step:      []int{0},
		Variable:  []string{"temperature_sl"},
		Latitude:  []float64{1, 2},
		Longitude: []float64{1, 2},
	}
	ch := newChunking(repometa.Model{}, c)
	cc := chunkCoord{
		coords.DimInitTime:  0,
		coords.DimStep:      0,
		coords.DimVariable:  0,
		coords.DimLatitude:  0,
		coords.DimLongitude: 0,
	}
	key := ch.key(cc)
	filename := key + ".chunk"
	if got := chunkKeyFromFilename(filename); got != key {
		t.Errorf("chunkKeyFromFilename(%q) = %q, want %q", filename, got, key)
	}
}

func TestOverlapOffsetsWithinChunkBounds(t *testing.T) {
	c := coords.Coords{
		InitTime:  []time.Time{time.Now()},
		Step:      []int{0, 6, 12, 18},
		Variable:  []string{"temperature_sl"},
		Latitude:  []float64{1, 2},
		Longitude: []float64{1, 2},
	}
	ch := newChunking(repometa.Model{}, c)
	region := map[string]coords.Range{
		coords.DimInitTime:  {Start: 0, End: 1},
		coords.DimStep:      {Start: 1, End: 3},
		coords.DimVariable:  {Start: 0, End: 1},
		coords.DimLatitude:  {Start: 0, End: 2},
		coords.DimLongitude: {Start: 0, End: 2},
	}
	for _, cc := range ch.chunksOverlapping(region) {
		shape := ch.chunkShape(cc)
		overlapLen, chunkOffset, _ := ch.overlap(cc, region)
		for _, d := range ch.dims {
			if chunkOffset[d]+overlapLen[d] > shape[d] {
				t.Errorf("dim %q: offset %d + len %d exceeds chunk shape %d", d, chunkOffset[d], overlapLen[d], shape[d])
			}
		}
	}
}
