package plasma

import (
	"fmt"
	"math"
	"math/cmplx"
)

const (
	DefaultHistBinWidth = 0.2
	DefaultHistXMax     = 20.0
)

// Params fully describes one invocation of the sampler.
type Params struct {
	N          int
	M          float64
	Nqh        int
	Quasiholes QuasiholeSet
	Delta      float64
	NSteps     int

	// SkipForRSq and SkipForXYHist are sampling intervals in elementary
	// moves; zero disables the measurement.
	SkipForRSq    int
	SkipForXYHist int

	HistBinWidth float64
	HistXMax     float64
}

// RunID identifies the persisted state shared by every run with the same
// particle number, quasihole number and charge.
type RunID string

func NewRunID(n, nqh int, m float64) RunID {
	return RunID(fmt.Sprintf("N%03d_Nqh%d_m%f", n, nqh, m))
}

func (p Params) RunID() RunID {
	return NewRunID(p.N, p.Nqh, p.M)
}

func (p Params) HistogramEnabled() bool { return p.SkipForXYHist > 0 }

// Validate reports the first parameter that makes the run unusable.
func (p Params) Validate() error {
	if p.N < 0 {
		return configErrorf("N", "must be non-negative, got %d", p.N)
	}
	if !(p.M > 0) || math.IsInf(p.M, 0) {
		return configErrorf("m", "must be a positive number, got %v", p.M)
	}
	if p.Nqh < 0 {
		return configErrorf("Nqh", "must be non-negative, got %d", p.Nqh)
	}
	if len(p.Quasiholes) != p.Nqh {
		return configErrorf("quasiholes", "Nqh=%d but %d positions given", p.Nqh, len(p.Quasiholes))
	}
	for a, w := range p.Quasiholes {
		if cmplx.IsNaN(w) || cmplx.IsInf(w) {
			return configErrorf("quasiholes", "position %d is not finite", a)
		}
	}
	if !(p.Delta > 0) || math.IsInf(p.Delta, 0) {
		return configErrorf("delta", "must be positive, got %v", p.Delta)
	}
	if p.NSteps < 0 {
		return configErrorf("nsteps", "must be non-negative, got %d", p.NSteps)
	}
	if p.SkipForRSq < 0 {
		return configErrorf("skip_for_rsq", "must be non-negative, got %d", p.SkipForRSq)
	}
	if p.SkipForXYHist < 0 {
		return configErrorf("skip_for_xy_hist", "must be non-negative, got %d", p.SkipForXYHist)
	}
	if p.HistogramEnabled() {
		if !(p.HistBinWidth > 0) {
			return configErrorf("binwidth", "must be positive, got %v", p.HistBinWidth)
		}
		if !(p.HistXMax > 0) {
			return configErrorf("xmax_hist", "must be positive, got %v", p.HistXMax)
		}
		ratio := 2 * p.HistXMax / p.HistBinWidth
		nbins := math.Round(ratio)
		if nbins < 1 {
			return configErrorf("binwidth", "%v leaves no bin inside [-%v, %v]", p.HistBinWidth, p.HistXMax, p.HistXMax)
		}
		// cells must tile [-xmax_hist, xmax_hist] exactly
		if math.Abs(ratio-nbins) > 1e-9*nbins {
			return configErrorf("binwidth", "%v does not divide [-%v, %v] into whole bins", p.HistBinWidth, p.HistXMax, p.HistXMax)
		}
	}
	return nil
}

// WithDefaults fills unset histogram geometry.
func (p Params) WithDefaults() Params {
	if p.HistBinWidth == 0 {
		p.HistBinWidth = DefaultHistBinWidth
	}
	if p.HistXMax == 0 {
		p.HistXMax = DefaultHistXMax
	}
	return p
}
