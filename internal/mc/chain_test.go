package mc

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

type countingAccumulator struct {
	calls int
	last  plasma.Configuration
}

func (c *countingAccumulator) Name() string { return "count" }
func (c *countingAccumulator) Measure(conf plasma.Configuration) {
	c.calls++
	c.last = conf.Clone()
}

type meanRSq struct {
	n   int
	sum float64
}

func (m *meanRSq) Name() string { return "mean_rsq" }
func (m *meanRSq) Measure(conf plasma.Configuration) {
	m.n++
	m.sum += conf.MeanSquareRadius()
}
func (m *meanRSq) Value() float64 { return m.sum / float64(m.n) }

type progressRecorder struct {
	events []Progress
}

func (p *progressRecorder) OnProgress(pr Progress) { p.events = append(p.events, pr) }

func lattice(n int) plasma.Configuration {
	c := make(plasma.Configuration, n)
	for i := range c {
		c[i] = complex(float64(i%4)-1.5, float64(i/4)-1.0)
	}
	return c
}

func TestChain_SamplingIntervals(t *testing.T) {
	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(1), 0.5)
	rsq := &countingAccumulator{}
	hist := &countingAccumulator{}
	disabled := &countingAccumulator{}
	chain.AddAccumulator(7, rsq)
	chain.AddAccumulator(10, hist)
	chain.AddAccumulator(0, disabled)

	conf := lattice(4)
	stats, err := chain.Run(context.Background(), conf, 100)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if stats.Steps != 100 {
		t.Errorf("expected 100 steps, got %d", stats.Steps)
	}
	if rsq.calls != 14 {
		t.Errorf("expected 14 rsq measurements, got %d", rsq.calls)
	}
	if hist.calls != 10 {
		t.Errorf("expected 10 histogram measurements, got %d", hist.calls)
	}
	if disabled.calls != 0 {
		t.Errorf("disabled accumulator was called %d times", disabled.calls)
	}
	if chain.State() != Done {
		t.Errorf("expected chain to be done, got %v", chain.State())
	}
}

func TestChain_MeasurementSeesFinalState(t *testing.T) {
	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(9), 0.5)
	acc := &countingAccumulator{}
	chain.AddAccumulator(50, acc)

	conf := lattice(5)
	if _, err := chain.Run(context.Background(), conf, 50); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for i := range conf {
		if acc.last[i] != conf[i] {
			t.Fatalf("measurement at move 50 differs from final configuration at %d", i)
		}
	}
}

func TestChain_ZeroSteps(t *testing.T) {
	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(1), 0.5)
	conf := lattice(6)
	orig := conf.Clone()

	stats, err := chain.Run(context.Background(), conf, 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Steps != 0 {
		t.Errorf("expected no steps, got %d", stats.Steps)
	}
	for i := range conf {
		if conf[i] != orig[i] {
			t.Fatalf("configuration changed at %d", i)
		}
	}
}

func TestChain_NoParticles(t *testing.T) {
	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(1), 0.5)
	acc := &countingAccumulator{}
	chain.AddAccumulator(1, acc)

	stats, err := chain.Run(context.Background(), plasma.Configuration{}, 1000)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Steps != 0 || acc.calls != 0 {
		t.Errorf("expected a no-op, got %d steps and %d measurements", stats.Steps, acc.calls)
	}
}

func TestChain_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		delta  float64
		conf   plasma.Configuration
		nsteps int
	}{
		{"negative steps", 0.5, lattice(3), -1},
		{"zero delta", 0, lattice(3), 10},
		{"NaN position", 0.5, plasma.Configuration{complex(math.NaN(), 0)}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain(plasma.NewModel(2.0, nil), NewStream(1), tt.delta)
			if _, err := chain.Run(context.Background(), tt.conf, tt.nsteps); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestChain_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(1), 0.5)
	stats, err := chain.Run(ctx, lattice(4), 10*ctxPollInterval)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !stats.Interrupted {
		t.Error("expected interrupted stats")
	}
	if stats.Steps != ctxPollInterval-1 {
		t.Errorf("expected %d steps before the first poll, got %d", ctxPollInterval-1, stats.Steps)
	}
}

func TestChain_Progress(t *testing.T) {
	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(1), 0.5)
	rec := &progressRecorder{}
	chain.AddObserver(rec, 25)

	if _, err := chain.Run(context.Background(), lattice(4), 110); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(rec.events) != 5 {
		t.Fatalf("expected 5 progress events, got %d", len(rec.events))
	}
	last := rec.events[len(rec.events)-1]
	if last.Done != 110 || last.Total != 110 {
		t.Errorf("unexpected final progress %+v", last)
	}
}

func TestChain_ObserversKeepTheirOwnInterval(t *testing.T) {
	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(1), 0.5)
	fast := &progressRecorder{}
	slow := &progressRecorder{}
	disabled := &progressRecorder{}
	chain.AddObserver(fast, 10)
	chain.AddObserver(slow, 50)
	chain.AddObserver(disabled, 0)

	if _, err := chain.Run(context.Background(), lattice(4), 100); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	tests := []struct {
		name string
		rec  *progressRecorder
		want []int
	}{
		{"fast", fast, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
		{"slow", slow, []int{50, 100}},
		{"disabled", disabled, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.rec.events) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(tt.rec.events), len(tt.want))
			}
			for k, ev := range tt.rec.events {
				if ev.Done != tt.want[k] {
					t.Errorf("event %d at move %d, want %d", k, ev.Done, tt.want[k])
				}
			}
		})
	}
}

// A single particle at the origin with U = |z|² accepts a displacement d with
// probability exp(-|d|²). Averaged over the proposal square this factorises
// into (√π erf(δ) / 2δ)².
func TestChain_AcceptanceProbability(t *testing.T) {
	delta := 1.2
	chain := NewChain(plasma.NewModel(2.0, nil), NewStream(11), delta)

	const trials = 200000
	accepted := 0
	conf := plasma.Configuration{0}
	for k := 0; k < trials; k++ {
		conf[0] = 0
		if ok, _ := chain.Step(conf); ok {
			accepted++
		}
	}

	side := math.Sqrt(math.Pi) * math.Erf(delta) / (2 * delta)
	expected := side * side
	got := float64(accepted) / trials
	sigma := math.Sqrt(expected * (1 - expected) / trials)
	if math.Abs(got-expected) > 5*sigma {
		t.Errorf("acceptance = %.4f, want %.4f ± %.4f", got, expected, sigma)
	}
}

func TestChain_DegenerateMoveRejected(t *testing.T) {
	// with m = 0 the coincident pair term becomes 0·Inf
	chain := NewChain(plasma.NewModel(0, nil), NewStream(5), 0.5)
	conf := plasma.Configuration{0, 0}

	_, degenerate := chain.Step(conf)
	if !degenerate {
		t.Fatal("expected a degenerate move")
	}
	if conf[0] != 0 || conf[1] != 0 {
		t.Errorf("degenerate move was applied: %v", conf)
	}
}

// Scaling z -> λz gives the sum rule ⟨R²⟩ = 1 + m(N-1)/2 + n0 when n0
// quasiholes sit at the origin.
func TestChain_SumRule(t *testing.T) {
	tests := []struct {
		name string
		n    int
		m    float64
		qh   plasma.QuasiholeSet
	}{
		{"single particle", 1, 3.0, nil},
		{"three particles", 3, 2.0, nil},
		{"quasihole at origin", 3, 2.0, plasma.QuasiholeSet{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain(plasma.NewModel(tt.m, tt.qh), NewStream(2024), 0.8)
			acc := &meanRSq{}
			conf := lattice(tt.n)

			if _, err := chain.Run(context.Background(), conf, 20000); err != nil {
				t.Fatalf("thermalization failed: %v", err)
			}
			chain.AddAccumulator(10, acc)
			if _, err := chain.Run(context.Background(), conf, 600000); err != nil {
				t.Fatalf("run failed: %v", err)
			}

			expected := 1 + tt.m*float64(tt.n-1)/2 + float64(len(tt.qh))
			if rel := math.Abs(acc.Value()-expected) / expected; rel > 0.04 {
				t.Errorf("<R²> = %.4f, want %.4f", acc.Value(), expected)
			}
		})
	}
}
