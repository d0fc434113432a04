package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Samples    int
	Discarded  int
	Mean       float64
	StdDev     float64
	StdErr     float64
	BlockedErr float64
	// integrated autocorrelation time, in samples
	AutocorrTime float64
}

// Summarize drops the first discard samples and describes the rest. StdErr
// treats samples as independent; BlockedErr accounts for autocorrelation.
func Summarize(series []float64, discard int) Summary {
	if discard < 0 {
		discard = 0
	}
	if discard > len(series) {
		discard = len(series)
	}
	x := series[discard:]

	s := Summary{Samples: len(x), Discarded: discard}
	if len(x) == 0 {
		return s
	}

	s.Mean = stat.Mean(x, nil)
	if len(x) < 2 {
		return s
	}
	s.StdDev = stat.StdDev(x, nil)
	s.StdErr = s.StdDev / math.Sqrt(float64(len(x)))
	s.BlockedErr = BlockingError(x)
	s.AutocorrTime = IntegratedTime(x)
	return s
}

// BlockingError repeatedly averages neighbouring pairs and returns the largest
// error of the mean seen while at least minBlocks blocks remain.
func BlockingError(series []float64) float64 {
	const minBlocks = 32

	x := append([]float64(nil), series...)
	best := 0.0
	for len(x) >= minBlocks {
		n := float64(len(x))
		_, variance := stat.PopMeanVariance(x, nil)
		e := math.Sqrt(variance / (n - 1))
		if e > best {
			best = e
		}

		half := make([]float64, len(x)/2)
		for k := range half {
			half[k] = 0.5 * (x[2*k] + x[2*k+1])
		}
		x = half
	}
	if best == 0 && len(series) > 1 {
		return stat.StdDev(series, nil) / math.Sqrt(float64(len(series)))
	}
	return best
}

// SigmaDistance is |a - b| in units of the combined standard error.
func SigmaDistance(a, errA, b, errB float64) float64 {
	sigma := math.Hypot(errA, errB)
	if sigma == 0 {
		if a == b {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(a-b) / sigma
}
