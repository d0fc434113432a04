package metrics

import "github.com/tcompa/Laughlin-Metropolis/internal/plasma"

// RSq records the mean square radius of every configuration it observes.
// Averaging is left to the caller.
type RSq struct {
	series []float64
}

func NewRSq() *RSq {
	return &RSq{series: make([]float64, 0)}
}

func (r *RSq) Name() string { return "rsq" }

func (r *RSq) Measure(c plasma.Configuration) {
	r.series = append(r.series, c.MeanSquareRadius())
}

// Series returns the samples recorded so far, oldest first.
func (r *RSq) Series() []float64 { return r.series }

func (r *RSq) Len() int { return len(r.series) }

func (r *RSq) Reset() { r.series = r.series[:0] }
