package metrics

import (
	"fmt"
	"math"

	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

// HistogramMeta fixes the geometry of a density histogram. It is established
// on first creation and must not change for the lifetime of a run id.
type HistogramMeta struct {
	BinWidth float64 `json:"binwidth" yaml:"binwidth"`
	XMax     float64 `json:"xmax_hist" yaml:"xmax_hist"`
	NBins    int     `json:"nbins" yaml:"nbins"`
}

func NewHistogramMeta(binWidth, xmax float64) HistogramMeta {
	return HistogramMeta{
		BinWidth: binWidth,
		XMax:     xmax,
		NBins:    int(math.Round(2 * xmax / binWidth)),
	}
}

func (m HistogramMeta) Equal(o HistogramMeta) bool {
	return m.BinWidth == o.BinWidth && m.XMax == o.XMax && m.NBins == o.NBins
}

func (m HistogramMeta) String() string {
	return fmt.Sprintf("binwidth=%g xmax_hist=%g nbins=%d", m.BinWidth, m.XMax, m.NBins)
}

// CellWidth is the side of one cell. The NBins cells always tile exactly
// [-XMax, XMax], so it equals BinWidth whenever 2·XMax/BinWidth is integral.
func (m HistogramMeta) CellWidth() float64 {
	if m.NBins <= 0 {
		return 0
	}
	return 2 * m.XMax / float64(m.NBins)
}

// Edges returns the NBins+1 bin boundaries along one axis.
func (m HistogramMeta) Edges() []float64 {
	edges := make([]float64, m.NBins+1)
	w := m.CellWidth()
	for k := range edges {
		edges[k] = -m.XMax + float64(k)*w
	}
	edges[m.NBins] = m.XMax
	return edges
}

// Histogram is a square 2D grid of particle counts. Counts[ix][iy] holds the
// cell whose x bin is ix and y bin is iy.
type Histogram struct {
	Meta    HistogramMeta
	Counts  [][]int64
	dropped int64
}

func NewHistogram(meta HistogramMeta) *Histogram {
	counts := make([][]int64, meta.NBins)
	for i := range counts {
		counts[i] = make([]int64, meta.NBins)
	}
	return &Histogram{Meta: meta, Counts: counts}
}

func (h *Histogram) Name() string { return "xy_hist" }

// Measure adds every particle inside [-XMax, XMax]² to its cell. Particles
// outside the extent are dropped.
func (h *Histogram) Measure(c plasma.Configuration) {
	for _, z := range c {
		ix, okx := h.bin(real(z))
		iy, oky := h.bin(imag(z))
		if !okx || !oky {
			h.dropped++
			continue
		}
		h.Counts[ix][iy]++
	}
}

func (h *Histogram) bin(v float64) (int, bool) {
	if v < -h.Meta.XMax || v > h.Meta.XMax || math.IsNaN(v) {
		return 0, false
	}
	k := int(math.Floor((v + h.Meta.XMax) / (2 * h.Meta.XMax) * float64(h.Meta.NBins)))
	// the upper edge belongs to the last cell
	if k >= h.Meta.NBins {
		k = h.Meta.NBins - 1
	}
	if k < 0 {
		k = 0
	}
	return k, true
}

// Total is the sum of all cell counts.
func (h *Histogram) Total() int64 {
	var sum int64
	for _, row := range h.Counts {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}

// Dropped counts positions that fell outside the extent since creation or
// load. It is not persisted.
func (h *Histogram) Dropped() int64 { return h.dropped }

// Density converts counts to a particle density normalised so that it
// integrates to n over the plane.
func (h *Histogram) Density(n int) [][]float64 {
	total := float64(h.Total())
	w := h.Meta.CellWidth()
	area := w * w
	out := make([][]float64, len(h.Counts))
	for i, row := range h.Counts {
		out[i] = make([]float64, len(row))
		if total == 0 {
			continue
		}
		for j, v := range row {
			out[i][j] = float64(v) / (total * area) * float64(n)
		}
	}
	return out
}
