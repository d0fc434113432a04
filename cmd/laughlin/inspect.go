package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/tcompa/Laughlin-Metropolis/internal/analysis"
	"github.com/tcompa/Laughlin-Metropolis/internal/config"
	"github.com/tcompa/Laughlin-Metropolis/internal/export"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
)

// plotWidth is the maximum number of points handed to asciigraph.
const plotWidth = 80

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openPersistentStore(ctx, "list")
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	ids, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tN\tRSQ SAMPLES\tHISTOGRAM\tSESSIONS\tLAST")

	for _, id := range ids {
		conf, _, err := st.LoadConfiguration(ctx, id)
		if err != nil {
			return err
		}
		rsq, err := st.LoadRSq(ctx, id)
		if err != nil {
			return err
		}
		hist, ok, err := st.LoadHistogram(ctx, id)
		if err != nil {
			return err
		}
		sessions, err := st.Sessions(ctx, id)
		if err != nil {
			return err
		}

		histInfo := "-"
		if ok {
			histInfo = fmt.Sprintf("%d counts", hist.Total())
		}
		last := "-"
		if len(sessions) > 0 {
			last = sessions[len(sessions)-1].StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%s\n", id, len(conf), len(rsq), histInfo, len(sessions), last)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := plasma.RunID(args[0])

	st, err := openPersistentStore(ctx, "show")
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	data, err := storage.Collect(ctx, st, id)
	if err != nil {
		return err
	}
	conf, _, err := st.LoadConfiguration(ctx, id)
	if err != nil {
		return err
	}

	fmt.Println(headline.Render("run " + data.ID))
	fmt.Printf("%s %d\n", label.Render("particles: "), data.N)
	fmt.Printf("%s %.6f\n", label.Render("R² now:    "), conf.MeanSquareRadius())
	fmt.Printf("%s %.6f\n", label.Render("max |z|:   "), conf.MaxRadius())
	fmt.Printf("%s %d\n", label.Render("R² series: "), len(data.RSq))
	if data.Histogram != nil {
		fmt.Printf("%s %s\n", label.Render("histogram: "), data.Histogram)
	}
	fmt.Println()

	if len(data.Sessions) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tMODE\tSEED\tMOVES\tACCEPT\tRSQ\tHIST\tELAPSED")
	for _, s := range data.Sessions {
		acc := 0.0
		if s.StepsDone > 0 {
			acc = float64(s.Accepted) / float64(s.StepsDone)
		}
		moves := fmt.Sprintf("%d", s.StepsDone)
		if s.Interrupted {
			moves = fmt.Sprintf("%d/%d", s.StepsDone, s.NSteps)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.4f\t%d\t%d\t%.2fs\n",
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Mode,
			s.Seed,
			moves,
			acc,
			s.RSqSamples,
			s.HistSamples,
			s.Elapsed,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := plasma.RunID(args[0])

	st, err := openPersistentStore(ctx, "plot")
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	if profile {
		return plotProfile(ctx, st, id)
	}

	rsq, err := st.LoadRSq(ctx, id)
	if err != nil {
		return err
	}
	if len(rsq) == 0 {
		return fmt.Errorf("no R² samples for %s", id)
	}

	fmt.Printf("run: %s\n", id)
	fmt.Printf("samples: %d\n\n", len(rsq))

	graph := asciigraph.Plot(downsample(rsq, plotWidth),
		asciigraph.Height(15),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("R² per sample"),
	)
	fmt.Println(graph)
	return nil
}

func plotProfile(ctx context.Context, st storage.Store, id plasma.RunID) error {
	conf, ok, err := st.LoadConfiguration(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", plasma.ErrNoPriorRun, id)
	}
	hist, ok, err := st.LoadHistogram(ctx, id)
	if err != nil {
		return err
	}
	if !ok || hist.Total() == 0 {
		return fmt.Errorf("no histogram for %s (run with --skip-hist)", id)
	}

	radii, rho := analysis.RadialProfile(hist, len(conf), profileDr)
	if len(rho) == 0 {
		return fmt.Errorf("annulus width %v too large for %s", profileDr, hist.Meta)
	}

	fmt.Printf("run: %s\n", id)
	fmt.Printf("histogram: %s, %d counts\n", hist.Meta, hist.Total())
	fmt.Printf("r from %.2f to %.2f\n\n", radii[0], radii[len(radii)-1])

	graph := asciigraph.Plot(rho,
		asciigraph.Height(15),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("density vs radius"),
	)
	fmt.Println(graph)
	return nil
}

// downsample averages consecutive samples so that at most n points remain.
func downsample(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	out := make([]float64, n)
	for k := range out {
		lo := k * len(data) / n
		hi := (k + 1) * len(data) / n
		sum := 0.0
		for _, v := range data[lo:hi] {
			sum += v
		}
		out[k] = sum / float64(hi-lo)
	}
	return out
}

func statsRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := plasma.RunID(args[0])

	st, err := openPersistentStore(ctx, "stats")
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	rsq, err := st.LoadRSq(ctx, id)
	if err != nil {
		return err
	}
	if len(rsq) == 0 {
		return fmt.Errorf("no R² samples for %s", id)
	}

	s := analysis.Summarize(rsq, discard)
	fmt.Println(headline.Render("R² statistics: " + string(id)))
	fmt.Printf("%s %d (%d discarded)\n", label.Render("samples:    "), s.Samples, s.Discarded)
	fmt.Printf("%s %.6f\n", label.Render("mean:       "), s.Mean)
	fmt.Printf("%s %.6f\n", label.Render("std dev:    "), s.StdDev)
	fmt.Printf("%s %.6f\n", label.Render("naive error:"), s.StdErr)
	fmt.Printf("%s %.6f\n", label.Render("blocked err:"), s.BlockedErr)
	fmt.Printf("%s %.2f samples\n", label.Render("autocorr τ: "), s.AutocorrTime)

	if cmd.Flags().Changed("ref") {
		d := analysis.SigmaDistance(s.Mean, s.BlockedErr, refValue, refErr)
		line := fmt.Sprintf("%.6f ± %.6f, distance %.2fσ", refValue, refErr, d)
		if d > 3 || math.IsInf(d, 0) {
			line = warn.Render(line)
		}
		fmt.Printf("%s %s\n", label.Render("reference:  "), line)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := plasma.RunID(args[0])

	st, err := openPersistentStore(ctx, "export")
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return storage.Export(ctx, w, st, id, exportFormat)
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := plasma.RunID(args[0])

	st, err := openPersistentStore(ctx, "snapshot")
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	conf, ok, err := st.LoadConfiguration(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", plasma.ErrNoPriorRun, id)
	}

	var svg string
	if density {
		hist, ok, err := st.LoadHistogram(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no histogram for %s (run with --skip-hist)", id)
		}
		cell := max(1, pixels/hist.Meta.NBins)
		svg = export.DensitySVG(hist, len(conf), cell)
	} else {
		qh, err := parseQuasiholes(quasiholes)
		if err != nil {
			return err
		}
		set := make(plasma.QuasiholeSet, len(qh))
		for a, w := range qh {
			set[a] = complex(w[0], w[1])
		}
		svg = export.ConfigurationSVG(conf, set, pixels)
	}

	if exportOut == "" {
		fmt.Println(svg)
		return nil
	}
	if err := os.WriteFile(exportOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", exportOut)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tN\tM\tNQH\tDELTA\tNSTEPS\tREFERENCE")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		ref := "-"
		if cfg.Reference != nil {
			ref = fmt.Sprintf("%g ± %g", cfg.Reference.RSq, cfg.Reference.RSqErr)
		}
		fmt.Fprintf(w, "%s\t%d\t%g\t%d\t%g\t%d\t%s\n",
			name, cfg.N, cfg.M, len(cfg.Quasiholes), cfg.Delta, cfg.NSteps, ref)
	}
	return w.Flush()
}
