package storage

import (
	"context"
	"time"

	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

// Store persists the durable state of a run keyed by its id: the last
// configuration, the mean-square-radius series, the density histogram and a
// log of the invocations that produced them.
//
// Implementations serialise their own operations but do not arbitrate
// between processes writing the same run id.
type Store interface {
	Init(ctx context.Context) error
	Exists(ctx context.Context, id plasma.RunID) (bool, error)
	// Reset discards everything stored under id.
	Reset(ctx context.Context, id plasma.RunID) error
	SaveConfiguration(ctx context.Context, id plasma.RunID, c plasma.Configuration) error
	LoadConfiguration(ctx context.Context, id plasma.RunID) (plasma.Configuration, bool, error)
	AppendRSq(ctx context.Context, id plasma.RunID, values []float64) error
	LoadRSq(ctx context.Context, id plasma.RunID) ([]float64, error)
	SaveHistogram(ctx context.Context, id plasma.RunID, h *metrics.Histogram) error
	LoadHistogram(ctx context.Context, id plasma.RunID) (*metrics.Histogram, bool, error)
	AppendSession(ctx context.Context, id plasma.RunID, s Session) error
	Sessions(ctx context.Context, id plasma.RunID) ([]Session, error)
	List(ctx context.Context) ([]plasma.RunID, error)
}

// Session records one invocation of the sampler against a run id.
type Session struct {
	ID          string    `json:"id" yaml:"id"`
	Mode        string    `json:"mode" yaml:"mode"`
	Seed        uint64    `json:"seed" yaml:"seed"`
	Delta       float64   `json:"delta" yaml:"delta"`
	NSteps      int       `json:"nsteps" yaml:"nsteps"`
	StepsDone   int       `json:"steps_done" yaml:"steps_done"`
	Accepted    int       `json:"accepted" yaml:"accepted"`
	Degenerate  int       `json:"degenerate,omitempty" yaml:"degenerate,omitempty"`
	RSqSamples  int       `json:"rsq_samples" yaml:"rsq_samples"`
	HistSamples int       `json:"hist_samples" yaml:"hist_samples"`
	Interrupted bool      `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	Elapsed     float64   `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}

func cloneHistogram(h *metrics.Histogram) *metrics.Histogram {
	out := metrics.NewHistogram(h.Meta)
	for i := range h.Counts {
		copy(out.Counts[i], h.Counts[i])
	}
	return out
}
