package experiment_test

import (
	"context"
	"errors"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/stat"

	"github.com/tcompa/Laughlin-Metropolis/internal/experiment"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
)

var _ = Describe("Ensemble", func() {
	var plan experiment.Plan

	BeforeEach(func() {
		p := smallParams()
		p.NSteps = 2000
		plan = experiment.Plan{Params: p, XMax: 3, Thermalization: 500}
	})

	It("runs every replica against its own store", func() {
		var opened atomic.Int32
		stores := make([]*storage.MemoryStore, 4)
		for i := range stores {
			stores[i] = storage.NewMemoryStore()
		}
		ens := experiment.NewEnsemble(func(i int) (storage.Store, error) {
			opened.Add(1)
			return stores[i], nil
		}, 4, 10, nil)
		ens.SetLimit(2)

		results, err := ens.Run(context.Background(), plan)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		Expect(opened.Load()).To(Equal(int32(4)))

		for i, r := range results {
			Expect(r.Replica).To(Equal(i))
			Expect(r.Thermalization.Session.Mode).To(Equal("fresh"))
			Expect(r.Thermalization.Session.Seed).To(Equal(uint64(10 + 2*i)))
			Expect(r.Production.Session.Mode).To(Equal("resume"))
			Expect(r.Production.RSq).To(HaveLen(20))

			series, err := stores[i].LoadRSq(context.Background(), plan.Params.RunID())
			Expect(err).NotTo(HaveOccurred())
			Expect(series).To(HaveLen(25))
		}
		Expect(results[0].Production.Configuration).NotTo(Equal(results[1].Production.Configuration))
	})

	It("stops when a replica cannot open its store", func() {
		boom := errors.New("disk on fire")
		ens := experiment.NewEnsemble(func(i int) (storage.Store, error) {
			if i == 1 {
				return nil, boom
			}
			return storage.NewMemoryStore(), nil
		}, 3, 1, nil)

		_, err := ens.Run(context.Background(), plan)
		Expect(err).To(MatchError(boom))
	})

	It("validates the plan before starting anything", func() {
		plan.Params.Delta = 0
		ens := experiment.NewEnsemble(func(int) (storage.Store, error) {
			Fail("no store should be opened")
			return nil, nil
		}, 2, 1, nil)

		_, err := ens.Run(context.Background(), plan)
		Expect(err).To(MatchError(plasma.ErrConfiguration))
	})
})

var _ = Describe("Resuming", func() {
	// A chain split into two invocations samples the same distribution as
	// one uninterrupted chain of the same total length.
	It("is statistically equivalent to a single run", func() {
		const trials = 400
		p := plasma.Params{N: 3, M: 1, Delta: 1.0, NSteps: 1000}.WithDefaults()
		whole := p
		whole.NSteps = 2000
		ctx := context.Background()

		split := make([]float64, trials)
		single := make([]float64, trials)
		for k := 0; k < trials; k++ {
			st := storage.NewMemoryStore()
			Expect(st.Init(ctx)).To(Succeed())
			runner := experiment.NewRunner(st, nil)

			_, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Fresh{XMax: 2}, Seed: uint64(3 * k)})
			Expect(err).NotTo(HaveOccurred())
			res, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Resume{}, Seed: uint64(3*k + 1)})
			Expect(err).NotTo(HaveOccurred())
			split[k] = res.Configuration.MeanSquareRadius()

			res, err = runner.Run(ctx, experiment.Request{Params: whole, Mode: experiment.Fresh{XMax: 2}, Seed: uint64(3*k + 2)})
			Expect(err).NotTo(HaveOccurred())
			single[k] = res.Configuration.MeanSquareRadius()
		}

		meanSplit, sdSplit := stat.MeanStdDev(split, nil)
		meanSingle, sdSingle := stat.MeanStdDev(single, nil)
		errSplit := sdSplit / 20
		errSingle := sdSingle / 20

		// exact value for m=1 without quasiholes: 1 + m(N-1)/2
		Expect(meanSplit).To(BeNumerically("~", 2.0, 5*errSplit))
		Expect(meanSingle).To(BeNumerically("~", 2.0, 5*errSingle))
		Expect(meanSplit).To(BeNumerically("~", meanSingle, 5*(errSplit+errSingle)))
	})
})
