package coords

// DetermineRegion implements the §3 region algebra: given an outer
// coordinate map and an inner one with identical dimension labels, locate
// the half-open index slice of each dimension such that outer's values at
// those indices equal inner's values, in order. Every inner value must
// exist in the outer vector, and the resulting indices must form a
// contiguous ascending run.
func DetermineRegion(outer, inner Coords) (map[string]Range, error) {
	outerDims, innerDims := outer.Dims(), inner.Dims()
	if len(outerDims) != len(innerDims) {
		return nil, &RegionError{Kind: MismatchedDims, Dim: "", Details: "different rank"}
	}
	for i := range outerDims {
		if outerDims[i] != innerDims[i] {
			return nil, &RegionError{Kind: MismatchedDims, Dim: innerDims[i],
				Details: "dimension label/order mismatch"}
		}
	}

	region := make(map[string]Range, len(outerDims))
	for _, dim := range outerDims {
		outerKeys, _ := outer.vectorKeys(dim)
		innerKeys, _ := inner.vectorKeys(dim)

		index := make(map[any]int, len(outerKeys))
		for i, k := range outerKeys {
			// Tie-break: keep the lowest outer index on collision (shouldn't
			// happen under the monotonicity invariant, but guard anyway).
			if _, dup := index[k]; !dup {
				index[k] = i
			}
		}

		indices := make([]int, 0, len(innerKeys))
		for _, k := range innerKeys {
			i, ok := index[k]
			if !ok {
				return nil, &RegionError{Kind: NotSubset, Dim: dim, Details: "inner value not present in outer"}
			}
			indices = append(indices, i)
		}
		if len(indices) == 0 {
			region[dim] = Range{0, 0}
			continue
		}

		for i := 1; i < len(indices); i++ {
			if indices[i] != indices[i-1]+1 {
				return nil, &RegionError{Kind: NonContiguous, Dim: dim,
					Details: "indices of inner values within outer are not a contiguous ascending run"}
			}
		}
		region[dim] = Range{Start: indices[0], End: indices[len(indices)-1] + 1}
	}
	return region, nil
}

// Crop restricts the spatial dims to the bounding box [n,w,s,e]: latitude
// to [s,n], longitude to [w,e]. If w > e the longitude range wraps around
// the antimeridian (values >= w OR <= e are kept). Fails with
// EmptyCropError if nothing remains.
func (c Coords) Crop(n, w, s, e float64) (Coords, error) {
	out := c
	var lats []float64
	for _, lat := range c.Latitude {
		if lat >= s && lat <= n {
			lats = append(lats, lat)
		}
	}
	var lons []float64
	for _, lon := range c.Longitude {
		if w <= e {
			if lon >= w && lon <= e {
				lons = append(lons, lon)
			}
		} else {
			if lon >= w || lon <= e {
				lons = append(lons, lon)
			}
		}
	}
	out.Latitude = lats
	out.Longitude = lons
	if len(out.Latitude) == 0 || len(out.Longitude) == 0 {
		return Coords{}, &EmptyCropError{N: n, W: w, S: s, E: e}
	}
	return out, nil
}
