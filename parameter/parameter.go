// Package parameter implements the canonical enumeration of meteorological
// parameters: their units, physical bounds, and the alternate names by
// which providers refer to them. The registry is process-wide, immutable,
// and built once at init time from a static table, following the same
// "global parameter registry" convention as cmn/config.go's package-level
// GCO singleton.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package parameter

import (
	"fmt"

	"github.com/nwp-consumer/core/ncerr"
)

// Parameter is a single canonical meteorological field.
type Parameter struct {
	Name             string   // canonical short name, e.g. "temperature_sl"
	Description      string   // human-readable description
	Unit             string   // unit symbol, e.g. "K", "m/s", "W/m^2"
	Upper            float64  // physical upper bound
	Lower            float64  // physical lower bound
	OutlierThreshold float64  // max fraction of values allowed outside [Lower, Upper], in [0,1]
	Alternates       []string // names providers use instead of Name
}

// CheckBounds reports whether the fraction of values outside
// [p.Lower, p.Upper] stays within p.OutlierThreshold. NaNs count as
// out-of-bounds.
func (p Parameter) CheckBounds(values []float64) error {
	if len(values) == 0 {
		return nil
	}
	var bad int
	for _, v := range values {
		if v != v /* NaN */ || v < p.Lower || v > p.Upper {
			bad++
		}
	}
	frac := float64(bad) / float64(len(values))
	if frac > p.OutlierThreshold {
		return fmt.Errorf("parameter %s: %.4f of values outside [%v,%v], exceeds threshold %.4f",
			p.Name, frac, p.Lower, p.Upper, p.OutlierThreshold)
	}
	return nil
}

var (
	byCanonical  = make(map[string]Parameter, len(registry))
	byAlternate  = make(map[string]Parameter, len(registry)*3)
	canonicalAll = make([]string, 0, len(registry))
)

func init() {
	for _, p := range registry {
		if _, dup := byCanonical[p.Name]; dup {
			panic(fmt.Sprintf("parameter: duplicate canonical name %q", p.Name))
		}
		byCanonical[p.Name] = p
		canonicalAll = append(canonicalAll, p.Name)
		for _, alt := range p.Alternates {
			if owner, dup := byAlternate[alt]; dup {
				panic(fmt.Sprintf("parameter: alternate %q claimed by both %q and %q", alt, owner.Name, p.Name))
			}
			byAlternate[alt] = p
		}
	}
}

// Canonical looks up a parameter by its exact canonical name.
func Canonical(name string) (Parameter, bool) {
	p, ok := byCanonical[name]
	return p, ok
}

// FromAlternate resolves a provider-specific name to its canonical
// Parameter, searching alternates only (not canonical names themselves,
// though callers that want both should try Canonical first).
func FromAlternate(name string) (Parameter, error) {
	if p, ok := byAlternate[name]; ok {
		return p, nil
	}
	return Parameter{}, &ncerr.UnknownParameter{Name: name}
}

// Resolve tries the canonical name first, then alternates.
func Resolve(name string) (Parameter, error) {
	if p, ok := byCanonical[name]; ok {
		return p, nil
	}
	return FromAlternate(name)
}

// All returns every canonical name in the registry, in registration order.
func All() []string {
	out := make([]string, len(canonicalAll))
	copy(out, canonicalAll)
	return out
}

// RenameElseDrop implements the C1 dataset-normalization operation: for each
// key of ds, if it resolves (directly or via alternate) to a Parameter in
// allowed, the entry is kept under its canonical name; otherwise it is
// dropped. Unknown names are never renamed - they simply vanish.
func RenameElseDrop[T any](ds map[string]T, allowed map[string]bool) map[string]T {
	out := make(map[string]T, len(ds))
	for name, val := range ds {
		p, err := Resolve(name)
		if err != nil {
			continue
		}
		if !allowed[p.Name] {
			continue
		}
		out[p.Name] = val
	}
	return out
}
