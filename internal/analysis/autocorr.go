package analysis

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// sokalWindow is the self-consistent window factor c in W >= c·τ(W).
const sokalWindow = 5.0

// Autocorrelation returns the normalized autocorrelation ρ(t) of series for
// lags 0..len(series)-1, computed by zero-padded FFT. It returns nil for
// fewer than two samples or a constant series.
func Autocorrelation(series []float64) []float64 {
	n := len(series)
	if n < 2 {
		return nil
	}

	mean := stat.Mean(series, nil)
	padded := make([]float64, 2*n)
	for i, v := range series {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(len(padded))
	coeff := fft.Coefficients(nil, padded)
	for k, c := range coeff {
		coeff[k] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	acov := fft.Sequence(nil, coeff)

	if acov[0] <= 0 {
		return nil
	}
	rho := make([]float64, n)
	for t := range rho {
		rho[t] = acov[t] / acov[0]
	}
	return rho
}

// IntegratedTime estimates the integrated autocorrelation time
// τ = 1/2 + Σ ρ(t), summed up to the smallest window W with W >= 5τ(W).
// Uncorrelated samples give τ ≈ 1/2. It returns 0 when ρ is undefined.
func IntegratedTime(series []float64) float64 {
	rho := Autocorrelation(series)
	if rho == nil {
		return 0
	}
	tau := 0.5
	for w := 1; w < len(rho); w++ {
		tau += rho[w]
		if float64(w) >= sokalWindow*tau {
			break
		}
	}
	return tau
}
