package experiment_test

import (
	"context"
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tcompa/Laughlin-Metropolis/internal/analysis"
	"github.com/tcompa/Laughlin-Metropolis/internal/config"
	"github.com/tcompa/Laughlin-Metropolis/internal/experiment"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
)

var _ = Describe("Reference cases", func() {
	BeforeEach(func() {
		if testing.Short() {
			Skip("reference cases take a few seconds each")
		}
	})

	DescribeTable("reproduce the published mean square radius",
		func(preset string, seed uint64) {
			cfg := config.GetPreset(preset)
			Expect(cfg).NotTo(BeNil())
			Expect(cfg.Reference).NotTo(BeNil())
			p := cfg.Params()

			ctx := context.Background()
			st := storage.NewMemoryStore()
			Expect(st.Init(ctx)).To(Succeed())
			runner := experiment.NewRunner(st, nil)

			thermal := p
			thermal.NSteps = cfg.Thermalization
			_, err := runner.Run(ctx, experiment.Request{Params: thermal, Mode: experiment.Fresh{XMax: cfg.XMax}, Seed: seed})
			Expect(err).NotTo(HaveOccurred())

			res, err := runner.Run(ctx, experiment.Request{Params: p, Mode: experiment.Resume{}, Seed: seed + 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.RSq).To(HaveLen(p.NSteps / p.SkipForRSq))

			s := analysis.Summarize(res.RSq, len(res.RSq)/10)
			tol := 5 * math.Hypot(s.BlockedErr, cfg.Reference.RSqErr)
			Expect(s.Mean).To(BeNumerically("~", cfg.Reference.RSq, tol))
		},
		Entry("two quasiholes near the origin", "case1", uint64(1)),
		Entry("three scattered quasiholes", "case2", uint64(2)),
		Entry("large charge, no quasiholes", "case3", uint64(3)),
	)
})
