package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tcompa/Laughlin-Metropolis/internal/mc"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

func benchChain(cmd *cobra.Command, args []string) error {
	fmt.Printf("benchmarking %d moves per size, m=%g, delta=%g\n\n", benchMoves, charge, delta)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N\tMOVES\tTIME\tMOVES/SEC\tACCEPT")

	for _, n := range benchParticle {
		if n < 1 {
			return fmt.Errorf("bench sizes must be positive, got %d", n)
		}
		rng := mc.NewStream(42)
		conf := make(plasma.Configuration, n)
		for i := range conf {
			conf[i] = complex(2*rng.Float64()-1, 2*rng.Float64()-1)
		}

		chain := mc.NewChain(plasma.NewModel(charge, nil), rng, delta)
		start := time.Now()
		stats, err := chain.Run(cmd.Context(), conf, benchMoves)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\t%.4f\n",
			n, stats.Steps, elapsed.Round(time.Microsecond), float64(stats.Steps)/elapsed.Seconds(), stats.AcceptanceRate())
	}

	return w.Flush()
}
