package plasma

import (
	"math"
	"math/cmplx"
)

type Configuration []complex128

func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	copy(out, c)
	return out
}

func (c Configuration) IsValid() bool {
	for _, z := range c {
		if cmplx.IsNaN(z) || cmplx.IsInf(z) {
			return false
		}
	}
	return true
}

// MeanSquareRadius returns (1/N) Σ |z_i|², or 0 for an empty configuration.
func (c Configuration) MeanSquareRadius() float64 {
	if len(c) == 0 {
		return 0
	}
	sum := 0.0
	for _, z := range c {
		sum += abs2(z)
	}
	return sum / float64(len(c))
}

// MaxRadius is the largest |z_i| in the configuration.
func (c Configuration) MaxRadius() float64 {
	r := 0.0
	for _, z := range c {
		r = math.Max(r, cmplx.Abs(z))
	}
	return r
}

type QuasiholeSet []complex128

func abs2(z complex128) float64 {
	x, y := real(z), imag(z)
	return x*x + y*y
}
