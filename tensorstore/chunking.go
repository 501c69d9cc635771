package tensorstore

import (
	"fmt"
	"strings"

	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/repometa"
)

// chunking captures, for one store's coordinate map, the per-dimension
// chunk size derived from the model's chunking policy: one element per
// chunk for init_time/step/variable, the spatial extent split into
// ChunkCount(dim) pieces (default 4), unless overridden.
type chunking struct {
	dims      []string
	dimLen    map[string]int
	chunkSize map[string]int
}

func newChunking(model repometa.Model, c coords.Coords) chunking {
	shape := c.Shape()
	dims := c.Dims()
	ch := chunking{
		dims:      dims,
		dimLen:    shape,
		chunkSize: make(map[string]int, len(dims)),
	}
	for _, d := range dims {
		n := shape[d]
		count := model.ChunkCount(d)
		if count <= 0 {
			count = n // sentinel: one element per chunk
		}
		if count < 1 {
			count = 1
		}
		size := ceilDiv(n, count)
		if size < 1 {
			size = 1
		}
		ch.chunkSize[d] = size
	}
	return ch
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// chunkIndexOf returns which chunk along dim contains global index i.
func (ch chunking) chunkIndexOf(dim string, i int) int {
	return i / ch.chunkSize[dim]
}

// chunkRange returns the [start,end) global index range covered by chunk
// number idx along dim.
func (ch chunking) chunkRange(dim string, idx int) coords.Range {
	size := ch.chunkSize[dim]
	start := idx * size
	end := start + size
	if n := ch.dimLen[dim]; end > n {
		end = n
	}
	return coords.Range{Start: start, End: end}
}

// chunkCoord identifies one chunk by its per-dimension chunk index, keyed
// in the store's fixed dimension order for deterministic addressing.
type chunkCoord map[string]int

// key renders a chunkCoord as a deterministic, filesystem- and
// buntdb-pattern-safe string, e.g. "init_time-0_step-1_variable-0_latitude-2_longitude-0".
func (ch chunking) key(cc chunkCoord) string {
	parts := make([]string, 0, len(ch.dims))
	for _, d := range ch.dims {
		parts = append(parts, fmt.Sprintf("%s-%d", d, cc[d]))
	}
	return strings.Join(parts, "_")
}

// chunksOverlapping enumerates every chunkCoord whose global extent
// intersects region, across all dims.
func (ch chunking) chunksOverlapping(region map[string]coords.Range) []chunkCoord {
	var out []chunkCoord
	var rec func(i int, cur chunkCoord)
	rec = func(i int, cur chunkCoord) {
		if i == len(ch.dims) {
			cp := make(chunkCoord, len(cur))
			for k, v := range cur {
				cp[k] = v
			}
			out = append(out, cp)
			return
		}
		d := ch.dims[i]
		r, ok := region[d]
		if !ok || r.Len() == 0 {
			rec(i+1, cur)
			return
		}
		firstChunk := ch.chunkIndexOf(d, r.Start)
		lastChunk := ch.chunkIndexOf(d, r.End-1)
		for c := firstChunk; c <= lastChunk; c++ {
			cur[d] = c
			rec(i+1, cur)
		}
	}
	rec(0, chunkCoord{})
	return out
}

// chunkShape returns the number of elements along each dim for the given
// chunk coordinate (the last chunk along a dim may be shorter than
// chunkSize[dim]).
func (ch chunking) chunkShape(cc chunkCoord) map[string]int {
	shape := make(map[string]int, len(ch.dims))
	for _, d := range ch.dims {
		shape[d] = ch.chunkRange(d, cc[d]).Len()
	}
	return shape
}

// overlap computes, for chunk cc and a target region, the per-dim overlap
// length and the offsets into the chunk's local array and the region's own
// (0-based) local array respectively.
func (ch chunking) overlap(cc chunkCoord, region map[string]coords.Range) (overlapLen, chunkOffset, regionOffset map[string]int) {
	overlapLen = make(map[string]int, len(ch.dims))
	chunkOffset = make(map[string]int, len(ch.dims))
	regionOffset = make(map[string]int, len(ch.dims))
	for _, d := range ch.dims {
		cr := ch.chunkRange(d, cc[d])
		rr := region[d]
		start := cr.Start
		if rr.Start > start {
			start = rr.Start
		}
		end := cr.End
		if rr.End < end {
			end = rr.End
		}
		if end < start {
			end = start
		}
		overlapLen[d] = end - start
		chunkOffset[d] = start - cr.Start
		regionOffset[d] = start - rr.Start
	}
	return overlapLen, chunkOffset, regionOffset
}
