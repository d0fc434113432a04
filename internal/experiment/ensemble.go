package experiment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Plan is the usual two-call protocol: a fresh thermalization run followed by
// a resumed production run with the same parameters.
type Plan struct {
	Params         plasma.Params
	XMax           float64
	Thermalization int
}

type ReplicaResult struct {
	Replica        int
	Thermalization *Result
	Production     *Result
}

// Ensemble runs independent replicas of a plan in parallel. Every replica
// has its own store and random streams, so replicas share no mutable state.
type Ensemble struct {
	newStore  func(replica int) (storage.Store, error)
	log       logrus.FieldLogger
	numRuns   int
	seedStart uint64
	limit     int
}

func NewEnsemble(newStore func(replica int) (storage.Store, error), numRuns int, seedStart uint64, log logrus.FieldLogger) *Ensemble {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	return &Ensemble{newStore: newStore, log: log, numRuns: numRuns, seedStart: seedStart}
}

// SetLimit caps the number of replicas running at once; n <= 0 means no cap.
func (e *Ensemble) SetLimit(n int) { e.limit = n }

func (e *Ensemble) Run(ctx context.Context, plan Plan) ([]ReplicaResult, error) {
	if err := plan.Params.Validate(); err != nil {
		return nil, err
	}

	results := make([]ReplicaResult, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			res, err := e.runReplica(ctx, idx, plan)
			if err != nil {
				return fmt.Errorf("replica %d: %w", idx, err)
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Ensemble) runReplica(ctx context.Context, idx int, plan Plan) (ReplicaResult, error) {
	res := ReplicaResult{Replica: idx}

	st, err := e.newStore(idx)
	if err != nil {
		return res, err
	}
	defer storage.CloseIfSupported(st)

	if err := st.Init(ctx); err != nil {
		return res, err
	}

	runner := NewRunner(st, e.log.WithField("replica", idx))
	seed := e.seedStart + 2*uint64(idx)

	thermal := plan.Params
	thermal.NSteps = plan.Thermalization
	res.Thermalization, err = runner.Run(ctx, Request{Params: thermal, Mode: Fresh{XMax: plan.XMax}, Seed: seed})
	if err != nil {
		return res, err
	}
	if res.Thermalization.Stats.Interrupted {
		return res, ctx.Err()
	}

	res.Production, err = runner.Run(ctx, Request{Params: plan.Params, Mode: Resume{}, Seed: seed + 1})
	if err != nil {
		return res, err
	}
	if res.Production.Stats.Interrupted {
		return res, ctx.Err()
	}
	return res, nil
}
