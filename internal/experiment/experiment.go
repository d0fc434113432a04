package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tcompa/Laughlin-Metropolis/internal/mc"
	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
)

type Request struct {
	Params plasma.Params
	Mode   Mode
	Seed   uint64
}

type Result struct {
	ID      plasma.RunID
	Session storage.Session
	Stats   mc.Stats

	// Configuration is the final configuration as persisted.
	Configuration plasma.Configuration
	// RSq holds only the samples taken during this invocation.
	RSq []float64
	// Histogram is the accumulated histogram, nil when histogram sampling is
	// disabled for this invocation.
	Histogram *metrics.Histogram
}

type observer struct {
	obs   mc.Observer
	every int
}

// Runner executes one sampler invocation against a store: it resolves the
// starting state, drives the chain and persists the outcome.
type Runner struct {
	store     storage.Store
	log       logrus.FieldLogger
	observers []observer
}

func NewRunner(st storage.Store, log logrus.FieldLogger) *Runner {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	return &Runner{store: st, log: log}
}

// AddObserver forwards chain progress to o every n moves.
func (r *Runner) AddObserver(o mc.Observer, every int) {
	r.observers = append(r.observers, observer{obs: o, every: every})
}

// Run performs the invocation described by req. Configuration errors are
// returned before anything is touched. Cancelling ctx ends the chain early;
// the state reached so far is persisted and the result is marked
// interrupted.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	p := req.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	id := p.RunID()
	log := r.log.WithFields(logrus.Fields{
		"run_id": id,
		"mode":   ModeName(req.Mode),
	})

	rng := mc.NewStream(req.Seed)

	conf, hist, err := r.start(ctx, p, id, req.Mode, rng)
	if err != nil {
		return nil, err
	}

	chain := mc.NewChain(p.Model(), rng, p.Delta)
	rsq := metrics.NewRSq()
	chain.AddAccumulator(p.SkipForRSq, rsq)
	if p.HistogramEnabled() {
		chain.AddAccumulator(p.SkipForXYHist, hist)
	}
	for _, o := range r.observers {
		chain.AddObserver(o.obs, o.every)
	}

	session := storage.Session{
		ID:        uuid.NewString(),
		Mode:      ModeName(req.Mode),
		Seed:      req.Seed,
		Delta:     p.Delta,
		NSteps:    p.NSteps,
		StartedAt: time.Now().UTC(),
	}
	log.WithFields(logrus.Fields{"nsteps": p.NSteps, "n": p.N, "session": session.ID}).Debug("starting chain")

	stats, err := chain.Run(ctx, conf, p.NSteps)
	if err != nil && !isContextErr(err) {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	if stats.Interrupted {
		log.WithField("steps_done", stats.Steps).Warn("chain interrupted, persisting partial run")
	}
	if stats.Degenerate > 0 {
		log.WithField("count", stats.Degenerate).Warn(plasma.ErrNumericDegeneracy.Error())
	}

	session.StepsDone = stats.Steps
	session.Accepted = stats.Accepted
	session.Degenerate = stats.Degenerate
	session.Interrupted = stats.Interrupted
	session.RSqSamples = rsq.Len()
	if p.HistogramEnabled() {
		session.HistSamples = stats.Steps / p.SkipForXYHist
	}
	session.Elapsed = time.Since(session.StartedAt).Seconds()

	// persisting uses a context that outlives the cancelled chain
	if err := r.persist(context.WithoutCancel(ctx), id, p, conf, rsq.Series(), hist, session); err != nil {
		return nil, fmt.Errorf("persist %s: %w", id, err)
	}

	log.WithFields(logrus.Fields{
		"steps":       stats.Steps,
		"acceptance":  stats.AcceptanceRate(),
		"rsq_samples": session.RSqSamples,
		"elapsed":     session.Elapsed,
	}).Info("run complete")

	return &Result{
		ID:            id,
		Session:       session,
		Stats:         stats,
		Configuration: conf,
		RSq:           rsq.Series(),
		Histogram:     hist,
	}, nil
}

func (r *Runner) start(ctx context.Context, p plasma.Params, id plasma.RunID, mode Mode, rng *rand.Rand) (plasma.Configuration, *metrics.Histogram, error) {
	var conf plasma.Configuration
	var hist *metrics.Histogram

	switch m := mode.(type) {
	case Fresh:
		if !(m.XMax > 0) || math.IsInf(m.XMax, 0) {
			return nil, nil, &plasma.ConfigError{Field: "xmax", Reason: fmt.Sprintf("a fresh run needs a positive xmax, got %v", m.XMax)}
		}
		conf = make(plasma.Configuration, p.N)
		for i := range conf {
			conf[i] = complex((2*rng.Float64()-1)*m.XMax, (2*rng.Float64()-1)*m.XMax)
		}
		if err := r.store.Reset(ctx, id); err != nil {
			return nil, nil, err
		}

	case Resume:
		loaded, ok, err := r.store.LoadConfiguration(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", plasma.ErrNoPriorRun, id)
		}
		if len(loaded) != p.N {
			return nil, nil, &plasma.ConfigError{Field: "N", Reason: fmt.Sprintf("persisted configuration has %d particles, requested %d", len(loaded), p.N)}
		}
		conf = loaded

		if p.HistogramEnabled() {
			hist, _, err = r.store.LoadHistogram(ctx, id)
			if err != nil {
				return nil, nil, err
			}
		}

	default:
		return nil, nil, &plasma.ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown run mode %T", mode)}
	}

	if p.HistogramEnabled() {
		meta := metrics.NewHistogramMeta(p.HistBinWidth, p.HistXMax)
		if hist == nil {
			hist = metrics.NewHistogram(meta)
		} else if !hist.Meta.Equal(meta) {
			return nil, nil, fmt.Errorf("%w: persisted %v, requested %v", plasma.ErrHistogramMismatch, hist.Meta, meta)
		}
	}
	return conf, hist, nil
}

func (r *Runner) persist(ctx context.Context, id plasma.RunID, p plasma.Params, conf plasma.Configuration, rsq []float64, hist *metrics.Histogram, session storage.Session) error {
	if err := r.store.SaveConfiguration(ctx, id, conf); err != nil {
		return err
	}
	if err := r.store.AppendRSq(ctx, id, rsq); err != nil {
		return err
	}
	if p.HistogramEnabled() {
		if err := r.store.SaveHistogram(ctx, id, hist); err != nil {
			return err
		}
	}
	return r.store.AppendSession(ctx, id, session)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
