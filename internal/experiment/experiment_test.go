package experiment_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tcompa/Laughlin-Metropolis/internal/experiment"
	"github.com/tcompa/Laughlin-Metropolis/internal/mc"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
)

func smallParams() plasma.Params {
	return plasma.Params{
		N:          4,
		M:          2.0,
		Nqh:        1,
		Quasiholes: plasma.QuasiholeSet{complex(0.5, 0)},
		Delta:      0.5,
		NSteps:     1000,
		SkipForRSq: 100,
	}.WithDefaults()
}

type progressCounter struct{ calls int }

func (p *progressCounter) OnProgress(mc.Progress) { p.calls++ }

var _ = Describe("Runner", func() {
	var (
		ctx    context.Context
		st     *storage.MemoryStore
		runner *experiment.Runner
		params plasma.Params
		id     plasma.RunID
	)

	BeforeEach(func() {
		ctx = context.Background()
		st = storage.NewMemoryStore()
		Expect(st.Init(ctx)).To(Succeed())
		runner = experiment.NewRunner(st, nil)
		params = smallParams()
		id = params.RunID()
	})

	rsqLen := func() int {
		series, err := st.LoadRSq(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return len(series)
	}

	Describe("a fresh run", func() {
		It("persists the final configuration and one sample per epoch", func() {
			res, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ID).To(Equal(id))
			Expect(res.Stats.Steps).To(Equal(1000))
			Expect(res.RSq).To(HaveLen(10))
			Expect(res.Histogram).To(BeNil())

			conf, ok, err := st.LoadConfiguration(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(conf).To(Equal(res.Configuration))
			Expect(rsqLen()).To(Equal(10))
		})

		It("draws the initial positions inside the requested square", func() {
			p := params
			p.NSteps = 0
			res, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Fresh{XMax: 0.25}, Seed: 9})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Configuration).To(HaveLen(4))
			for _, z := range res.Configuration {
				Expect(real(z)).To(BeNumerically("<=", 0.25))
				Expect(real(z)).To(BeNumerically(">=", -0.25))
				Expect(imag(z)).To(BeNumerically("<=", 0.25))
				Expect(imag(z)).To(BeNumerically(">=", -0.25))
			}
		})

		It("with zero moves persists exactly the initial state", func() {
			p := params
			p.NSteps = 0
			res, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Fresh{XMax: 3}, Seed: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stats.Steps).To(BeZero())

			again, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Resume{}, Seed: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Configuration).To(Equal(res.Configuration))
			Expect(rsqLen()).To(BeZero())
		})

		It("truncates state left by an earlier run with the same id", func() {
			_, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())
			hist := params
			hist.SkipForXYHist = 10
			_, err = runner.Run(ctx, experiment.Request{Params: hist, Mode: experiment.Resume{}, Seed: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(rsqLen()).To(Equal(20))

			p := params
			p.NSteps = 300
			_, err = runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Fresh{XMax: 3}, Seed: 4})
			Expect(err).NotTo(HaveOccurred())

			Expect(rsqLen()).To(Equal(3))
			_, ok, err := st.LoadHistogram(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			sessions, err := st.Sessions(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(1))
		})

		It("requires a positive xmax", func() {
			for _, xmax := range []float64{0, -1} {
				_, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Fresh{XMax: xmax}})
				Expect(errors.Is(err, plasma.ErrConfiguration)).To(BeTrue())
				var ce *plasma.ConfigError
				Expect(errors.As(err, &ce)).To(BeTrue())
				Expect(ce.Field).To(Equal("xmax"))
			}
			ok, err := st.Exists(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("does not touch prior state when parameters are invalid", func() {
			_, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())

			bad := params
			bad.Quasiholes = append(bad.Quasiholes, complex(1, 1))
			_, err = runner.Run(ctx, experiment.Request{Params: bad, Mode: experiment.Fresh{XMax: 3}, Seed: 2})
			Expect(err).To(MatchError(plasma.ErrConfiguration))
			Expect(rsqLen()).To(Equal(10))
		})
	})

	Describe("a resumed run", func() {
		It("fails when nothing was persisted", func() {
			_, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Resume{}})
			Expect(err).To(MatchError(plasma.ErrNoPriorRun))
			Expect(err).To(MatchError(plasma.ErrConfiguration))
		})

		It("starts from the persisted configuration and appends to the series", func() {
			first, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())

			p := params
			p.NSteps = 0
			zero, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Resume{}, Seed: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(zero.Configuration).To(Equal(first.Configuration))

			p.NSteps = 500
			_, err = runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Resume{}, Seed: 3})
			Expect(err).NotTo(HaveOccurred())

			series, err := st.LoadRSq(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(series).To(HaveLen(15))
			Expect(series[:10]).To(Equal(first.RSq))

			sessions, err := st.Sessions(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(3))
			Expect(sessions[0].Mode).To(Equal("fresh"))
			Expect(sessions[2].Mode).To(Equal("resume"))
			Expect(sessions[2].RSqSamples).To(Equal(5))
		})

		It("rejects a configuration whose size disagrees with N", func() {
			Expect(st.SaveConfiguration(ctx, id, plasma.Configuration{1, 2})).To(Succeed())
			_, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Resume{}})
			var ce *plasma.ConfigError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Field).To(Equal("N"))
		})
	})

	Describe("the density histogram", func() {
		var hist plasma.Params

		BeforeEach(func() {
			hist = params
			hist.SkipForXYHist = 10
			hist.HistBinWidth = 0.1
			hist.HistXMax = 2.0
		})

		It("conserves mass across fresh and resumed runs", func() {
			first, err := runner.Run(ctx, experiment.Request{Params: hist, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Session.HistSamples).To(Equal(100))
			Expect(first.Histogram.Total()).To(Equal(int64(100*4) - first.Histogram.Dropped()))

			second, err := runner.Run(ctx, experiment.Request{Params: hist, Mode: experiment.Resume{}, Seed: 2})
			Expect(err).NotTo(HaveOccurred())

			stored, ok, err := st.LoadHistogram(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(stored.Meta.NBins).To(Equal(40))
			Expect(stored.Total()).To(Equal(int64(200*4) - first.Histogram.Dropped() - second.Histogram.Dropped()))
		})

		It("is created on resume when the fresh run did not sample it", func() {
			_, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())

			res, err := runner.Run(ctx, experiment.Request{Params: hist, Mode: experiment.Resume{}, Seed: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Histogram).NotTo(BeNil())

			_, ok, err := st.LoadHistogram(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("refuses to resume with different geometry", func() {
			_, err := runner.Run(ctx, experiment.Request{Params: hist, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())
			before, _, _ := st.LoadHistogram(ctx, id)

			other := hist
			other.HistBinWidth = 0.2
			_, err = runner.Run(ctx, experiment.Request{Params: other, Mode: experiment.Resume{}, Seed: 2})
			Expect(err).To(MatchError(plasma.ErrHistogramMismatch))

			after, _, _ := st.LoadHistogram(ctx, id)
			Expect(after.Total()).To(Equal(before.Total()))
			Expect(rsqLen()).To(Equal(10))
		})

		It("is left alone by a resume that does not sample it", func() {
			_, err := runner.Run(ctx, experiment.Request{Params: hist, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())
			before, _, _ := st.LoadHistogram(ctx, id)

			other := params
			other.HistBinWidth = 5
			_, err = runner.Run(ctx, experiment.Request{Params: other, Mode: experiment.Resume{}, Seed: 2})
			Expect(err).NotTo(HaveOccurred())

			after, _, _ := st.LoadHistogram(ctx, id)
			Expect(after.Meta).To(Equal(before.Meta))
			Expect(after.Total()).To(Equal(before.Total()))
		})
	})

	Describe("cancellation", func() {
		It("persists the state reached before the chain stopped", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			p := params
			p.NSteps = 100000
			res, err := runner.Run(cctx, experiment.Request{Params: p, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stats.Interrupted).To(BeTrue())
			Expect(res.Stats.Steps).To(BeNumerically("<", 100000))
			Expect(res.RSq).To(HaveLen(res.Stats.Steps / 100))

			conf, ok, err := st.LoadConfiguration(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(conf).To(Equal(res.Configuration))

			sessions, err := st.Sessions(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions[0].Interrupted).To(BeTrue())
		})
	})

	It("forwards progress to observers", func() {
		counter := &progressCounter{}
		runner.AddObserver(counter, 100)
		_, err := runner.Run(ctx, experiment.Request{Params: params, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(counter.calls).To(Equal(10))
	})

	It("accepts an empty quasihole set", func() {
		p := params
		p.Nqh = 0
		p.Quasiholes = plasma.QuasiholeSet{}
		res, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Fresh{XMax: 3}, Seed: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ID).To(Equal(plasma.RunID("N004_Nqh0_m2.000000")))
	})
})
