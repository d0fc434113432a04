package analysis

import (
	"math"

	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"gonum.org/v1/gonum/floats"
)

// RadialProfile averages the density of a histogram over annuli of width
// dr around the origin, up to the inscribed circle of the grid. It returns
// the annulus centres and the mean density in each.
func RadialProfile(h *metrics.Histogram, n int, dr float64) (radii, density []float64) {
	if dr <= 0 || h.Meta.NBins == 0 {
		return nil, nil
	}
	nr := int(h.Meta.XMax / dr)
	if nr == 0 {
		return nil, nil
	}

	edges := make([]float64, nr+1)
	floats.Span(edges, 0, float64(nr)*dr)

	sum := make([]float64, nr)
	cells := make([]float64, nr)
	rho := h.Density(n)
	lower := h.Meta.Edges()
	half := 0.5 * h.Meta.CellWidth()
	for i := 0; i < h.Meta.NBins; i++ {
		x := lower[i] + half
		for j := 0; j < h.Meta.NBins; j++ {
			y := lower[j] + half
			k := int(math.Hypot(x, y) / dr)
			if k >= nr {
				continue
			}
			sum[k] += rho[i][j]
			cells[k]++
		}
	}

	radii = make([]float64, nr)
	density = make([]float64, nr)
	for k := 0; k < nr; k++ {
		radii[k] = 0.5 * (edges[k] + edges[k+1])
		if cells[k] > 0 {
			density[k] = sum[k] / cells[k]
		}
	}
	return radii, density
}
