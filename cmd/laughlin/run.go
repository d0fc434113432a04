package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tcompa/Laughlin-Metropolis/internal/analysis"
	"github.com/tcompa/Laughlin-Metropolis/internal/config"
	"github.com/tcompa/Laughlin-Metropolis/internal/experiment"
	"github.com/tcompa/Laughlin-Metropolis/internal/mc"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
	"github.com/tcompa/Laughlin-Metropolis/internal/tui"
)

// progressUpdates is the number of refreshes of the live view over a run.
const progressUpdates = 500

// resolveConfig merges, in increasing priority, the defaults, a preset, a
// run file and the flags set on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("n") {
		cfg.N = nParticles
	}
	if flags.Changed("m") {
		cfg.M = charge
	}
	if flags.Changed("qh") {
		qh, err := parseQuasiholes(quasiholes)
		if err != nil {
			return nil, err
		}
		cfg.Quasiholes = qh
	}
	if flags.Changed("delta") {
		cfg.Delta = delta
	}
	if flags.Changed("nsteps") {
		cfg.NSteps = nsteps
	}
	if flags.Changed("skip-rsq") {
		cfg.SkipForRSq = skipRSq
	}
	if flags.Changed("skip-hist") {
		cfg.SkipForXYHist = skipHist
	}
	if flags.Changed("binwidth") {
		cfg.Histogram.BinWidth = binWidth
	}
	if flags.Changed("xmax-hist") {
		cfg.Histogram.XMax = xmaxHist
	}
	if flags.Lookup("xmax") != nil && flags.Changed("xmax") {
		cfg.XMax = xmax
	}
	if flags.Lookup("thermalization") != nil && flags.Changed("thermalization") {
		cfg.Thermalization = thermalSteps
	}

	switch {
	case flags.Changed("seed"):
		cfg.Seed = seed
	case cfg.Seed != 0:
	case envCfg.Seed != 0:
		cfg.Seed = envCfg.Seed
	default:
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	return cfg, nil
}

func parseQuasiholes(values []string) ([][2]float64, error) {
	out := make([][2]float64, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("quasihole %q: want x,y", v)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("quasihole %q: %w", v, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("quasihole %q: %w", v, err)
		}
		out = append(out, [2]float64{x, y})
	}
	return out, nil
}

func runFresh(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	return execute(cmd.Context(), experiment.Request{
		Params: cfg.Params(),
		Mode:   experiment.Fresh{XMax: cfg.XMax},
		Seed:   cfg.Seed,
	})
}

func runResume(cmd *cobra.Command, args []string) error {
	if err := requirePersistentStore(storeKind, "resume"); err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	return execute(cmd.Context(), experiment.Request{
		Params: cfg.Params(),
		Mode:   experiment.Resume{},
		Seed:   cfg.Seed,
	})
}

func execute(ctx context.Context, req experiment.Request) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	log := newLogger()
	id := req.Params.RunID()

	var res *experiment.Result
	if live {
		log.SetOutput(io.Discard)
		runner := experiment.NewRunner(st, log)
		err = tui.RunWithProgress(ctx, string(id), req.Params.NSteps, func(ctx context.Context, obs mc.Observer) error {
			runner.AddObserver(obs, max(1, req.Params.NSteps/progressUpdates))
			var err error
			res, err = runner.Run(ctx, req)
			return err
		})
	} else {
		fmt.Printf("running %s (%s, %d moves)...\n", id, experiment.ModeName(req.Mode), req.Params.NSteps)
		res, err = experiment.NewRunner(st, log).Run(ctx, req)
	}
	if err != nil {
		return err
	}

	printResult(res)
	return nil
}

func printResult(res *experiment.Result) {
	fmt.Println(headline.Render("run " + string(res.ID)))
	if res.Stats.Interrupted {
		fmt.Println(warn.Render("interrupted, partial run saved"))
	}
	fmt.Printf("%s %s\n", label.Render("session:   "), res.Session.ID)
	fmt.Printf("%s %d\n", label.Render("seed:      "), res.Session.Seed)
	fmt.Printf("%s %d\n", label.Render("moves:     "), res.Stats.Steps)
	fmt.Printf("%s %.4f\n", label.Render("acceptance:"), res.Stats.AcceptanceRate())
	fmt.Printf("%s %.2fs\n", label.Render("elapsed:   "), res.Session.Elapsed)
	if res.Stats.Degenerate > 0 {
		fmt.Println(warn.Render(fmt.Sprintf("%d moves rejected as numerically degenerate", res.Stats.Degenerate)))
	}
	if len(res.RSq) > 0 {
		s := analysis.Summarize(res.RSq, 0)
		fmt.Printf("%s %d samples, <R²> = %.6f ± %.6f\n", label.Render("R²:        "), s.Samples, s.Mean, s.BlockedErr)
	}
	if res.Histogram != nil {
		fmt.Printf("%s %d counts (%s)\n", label.Render("histogram: "), res.Histogram.Total(), res.Histogram.Meta)
	}
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("thermalization") && cfg.Thermalization == 0 {
		cfg.Thermalization = thermalSteps
	}

	log := newLogger()
	newStore := func(i int) (storage.Store, error) {
		return storage.NewStore(storeKind, filepath.Join(dataDir, fmt.Sprintf("rep_%02d", i)))
	}
	ens := experiment.NewEnsemble(newStore, replicas, cfg.Seed, log)
	ens.SetLimit(parallel)

	plan := experiment.Plan{Params: cfg.Params(), XMax: cfg.XMax, Thermalization: cfg.Thermalization}
	fmt.Printf("running %d replicas of %s...\n", replicas, plan.Params.RunID())
	start := time.Now()

	results, err := ens.Run(cmd.Context(), plan)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPLICA\tSEED\tACCEPT\tSAMPLES\t<R²>\tERR")
	means := make([]float64, 0, len(results))
	for _, r := range results {
		s := analysis.Summarize(r.Production.RSq, 0)
		if s.Samples > 0 {
			means = append(means, s.Mean)
		}
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%d\t%.6f\t%.6f\n",
			r.Replica,
			r.Production.Session.Seed,
			r.Production.Stats.AcceptanceRate(),
			s.Samples,
			s.Mean,
			s.BlockedErr,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(means) > 1 {
		s := analysis.Summarize(means, 0)
		fmt.Printf("\n%s %.6f ± %.6f (%d replicas)\n", headline.Render("<R²>"), s.Mean, s.StdErr, s.Samples)
	}
	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}
