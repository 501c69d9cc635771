package tensorstore

import (
	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/parameter"
)

// Fragment is a decoded piece of forecast data produced by a fetch job: a
// typed N-dimensional array, row-major flattened in Coords.Dims() order,
// whose coordinate map is a strict subset of the store's outer map along
// every dimension.
type Fragment struct {
	Parameter parameter.Parameter
	Coords    coords.Coords
	Data      []float64
}

// expectedLen returns the number of elements Fragment.Data should hold given its
// Coords shape.
func (f Fragment) expectedLen() int {
	n := 1
	for _, d := range f.Coords.Dims() {
		n *= f.Coords.Shape()[d]
	}
	return n
}
