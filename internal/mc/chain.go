package mc

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

// cancellation is polled once per this many moves
const ctxPollInterval = 1024

type Accumulator interface {
	Name() string
	Measure(c plasma.Configuration)
}

type Observer interface {
	OnProgress(p Progress)
}

type Progress struct {
	Done     int
	Total    int
	Accepted int
}

type State int

const (
	Running State = iota
	Done
)

func (s State) String() string {
	if s == Done {
		return "done"
	}
	return "running"
}

type Stats struct {
	Steps       int
	Accepted    int
	Degenerate  int
	Interrupted bool
}

func (s Stats) AcceptanceRate() float64 {
	if s.Steps == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Steps)
}

type sampling struct {
	every int
	acc   Accumulator
}

type watcher struct {
	every int
	obs   Observer
}

type Chain struct {
	model     *plasma.Model
	rng       *rand.Rand
	proposer  *Proposer
	delta     float64
	samplings []sampling
	observers []watcher
	state     State
}

func NewChain(model *plasma.Model, rng *rand.Rand, delta float64) *Chain {
	return &Chain{
		model:     model,
		rng:       rng,
		proposer:  NewProposer(rng),
		delta:     delta,
		samplings: make([]sampling, 0),
		observers: make([]watcher, 0),
		state:     Done,
	}
}

// AddAccumulator registers acc to run after every move index divisible by
// every. A non-positive interval disables it.
func (c *Chain) AddAccumulator(every int, acc Accumulator) {
	if every <= 0 || acc == nil {
		return
	}
	c.samplings = append(c.samplings, sampling{every: every, acc: acc})
}

// AddObserver registers o to be told about progress every n moves and after
// the last move. A non-positive interval disables it.
func (c *Chain) AddObserver(o Observer, every int) {
	if every <= 0 || o == nil {
		return
	}
	c.observers = append(c.observers, watcher{every: every, obs: o})
}

func (c *Chain) State() State { return c.state }

// Run performs nsteps elementary moves on conf in place. On context
// cancellation it stops between moves, marks the stats as interrupted and
// returns the context error; conf is left in a consistent state.
func (c *Chain) Run(ctx context.Context, conf plasma.Configuration, nsteps int) (Stats, error) {
	var stats Stats
	if err := c.validate(conf, nsteps); err != nil {
		return stats, err
	}

	if len(conf) == 0 {
		return stats, nil
	}

	c.state = Running
	defer func() { c.state = Done }()

	for t := 1; t <= nsteps; t++ {
		if t%ctxPollInterval == 0 {
			select {
			case <-ctx.Done():
				stats.Interrupted = true
				return stats, ctx.Err()
			default:
			}
		}

		accepted, degenerate := c.Step(conf)
		stats.Steps++
		if accepted {
			stats.Accepted++
		}
		if degenerate {
			stats.Degenerate++
		}

		for _, s := range c.samplings {
			if t%s.every == 0 {
				s.acc.Measure(conf)
			}
		}

		for _, w := range c.observers {
			if t%w.every == 0 || t == nsteps {
				w.obs.OnProgress(Progress{Done: t, Total: nsteps, Accepted: stats.Accepted})
			}
		}
	}

	return stats, nil
}

// Step performs one elementary move. A NaN energy difference is reported as
// degenerate and the move is rejected.
func (c *Chain) Step(conf plasma.Configuration) (accepted, degenerate bool) {
	i := c.rng.IntN(len(conf))
	zNew := c.proposer.Propose(conf[i], c.delta)
	dU := c.model.DeltaEnergy(conf, i, zNew)

	u := c.rng.Float64()
	if math.IsNaN(dU) {
		return false, true
	}
	if u < math.Exp(-dU) {
		conf[i] = zNew
		return true, false
	}
	return false, false
}

func (c *Chain) validate(conf plasma.Configuration, nsteps int) error {
	if nsteps < 0 {
		return fmt.Errorf("nsteps must be non-negative, got %d", nsteps)
	}
	if !(c.delta > 0) {
		return fmt.Errorf("delta must be positive, got %f", c.delta)
	}
	if !conf.IsValid() {
		return fmt.Errorf("%w: starting configuration contains NaN/Inf", plasma.ErrNumericDegeneracy)
	}
	return nil
}
