package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tcompa/Laughlin-Metropolis/internal/config"
	"github.com/tcompa/Laughlin-Metropolis/internal/storage"
)

var (
	dataDir   string
	storeKind string
	verbose   bool

	// sampler parameters
	nParticles    int
	charge        float64
	quasiholes    []string
	delta         float64
	nsteps        int
	skipRSq       int
	skipHist      int
	binWidth      float64
	xmaxHist      float64
	xmax          float64
	seed          uint64
	configFile    string
	preset        string
	live          bool
	replicas      int
	parallel      int
	thermalSteps  int
	discard       int
	refValue      float64
	refErr        float64
	exportFormat  string
	exportOut     string
	profile       bool
	profileDr     float64
	benchMoves    int
	benchParticle []int
	density       bool
	pixels        int

	envCfg config.Env
)

var (
	headline = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func main() {
	var err error
	envCfg, err = config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:          "laughlin",
		Short:        "metropolis sampling of laughlin states through the plasma analogy",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", envCfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", envCfg.Store, "storage backend (file, sqlite, or memory which keeps nothing between invocations)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", envCfg.Verbose, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "start a fresh run from random positions",
		Args:  cobra.NoArgs,
		RunE:  runFresh,
	}
	addSamplerFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "show a live progress view")
	runCmd.Flags().Float64Var(&xmax, "xmax", config.DefaultXMax, "initial positions are drawn in [-xmax, xmax]²")

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "continue a run from its saved configuration",
		Args:  cobra.NoArgs,
		RunE:  runResume,
	}
	addSamplerFlags(resumeCmd)
	resumeCmd.Flags().BoolVar(&live, "live", false, "show a live progress view")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "thermalize and sample independent replicas in parallel",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addSamplerFlags(ensembleCmd)
	ensembleCmd.Flags().Float64Var(&xmax, "xmax", config.DefaultXMax, "initial positions are drawn in [-xmax, xmax]²")
	ensembleCmd.Flags().IntVar(&replicas, "replicas", 4, "number of independent replicas")
	ensembleCmd.Flags().IntVar(&parallel, "parallel", 0, "replicas running at once (0 = all)")
	ensembleCmd.Flags().IntVar(&thermalSteps, "thermalization", 10000, "moves of the fresh thermalization run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show the saved state and session log of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the R² series or the radial density profile",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&profile, "profile", false, "plot the radial density profile from the histogram")
	plotCmd.Flags().Float64Var(&profileDr, "dr", 0.2, "annulus width of the radial profile")

	statsCmd := &cobra.Command{
		Use:   "stats [run_id]",
		Short: "mean square radius with error estimates",
		Args:  cobra.ExactArgs(1),
		RunE:  statsRun,
	}
	statsCmd.Flags().IntVar(&discard, "discard", 0, "drop the first K samples")
	statsCmd.Flags().Float64Var(&refValue, "ref", 0, "reference value to compare against")
	statsCmd.Flags().Float64Var(&refErr, "ref-err", 0, "standard error of the reference value")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export everything saved for a run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json, yaml)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [run_id]",
		Short: "draw the saved configuration or density as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotRun,
	}
	snapshotCmd.Flags().BoolVar(&density, "density", false, "draw the density histogram instead of the configuration")
	snapshotCmd.Flags().StringArrayVar(&quasiholes, "qh", nil, "quasihole position as x,y to mark (repeatable)")
	snapshotCmd.Flags().IntVar(&pixels, "size", 600, "canvas size in pixels")
	snapshotCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list canonical parameter sets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure moves per second for several system sizes",
		Args:  cobra.NoArgs,
		RunE:  benchChain,
	}
	benchCmd.Flags().IntVar(&benchMoves, "moves", 1000000, "moves per size")
	benchCmd.Flags().IntSliceVar(&benchParticle, "sizes", []int{5, 10, 20, 50, 100}, "particle numbers")
	benchCmd.Flags().Float64Var(&charge, "m", config.DefaultM, "plasma charge")
	benchCmd.Flags().Float64Var(&delta, "delta", config.DefaultDelta, "proposal half-width")

	rootCmd.AddCommand(runCmd, resumeCmd, ensembleCmd, listCmd, showCmd, plotCmd, statsCmd, exportCmd, snapshotCmd, presetsCmd, benchCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func addSamplerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&nParticles, "n", "N", config.DefaultN, "number of particles")
	cmd.Flags().Float64Var(&charge, "m", config.DefaultM, "plasma charge (inverse filling)")
	cmd.Flags().StringArrayVar(&quasiholes, "qh", nil, "quasihole position as x,y (repeatable)")
	cmd.Flags().Float64Var(&delta, "delta", config.DefaultDelta, "proposal half-width")
	cmd.Flags().IntVar(&nsteps, "nsteps", config.DefaultNSteps, "number of elementary moves")
	cmd.Flags().IntVar(&skipRSq, "skip-rsq", config.DefaultSkipForRSq, "moves between R² samples (0 disables)")
	cmd.Flags().IntVar(&skipHist, "skip-hist", 0, "moves between histogram samples (0 disables)")
	cmd.Flags().Float64Var(&binWidth, "binwidth", 0.2, "histogram bin width")
	cmd.Flags().Float64Var(&xmaxHist, "xmax-hist", 20.0, "histogram half extent")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default: LAUGHLIN_SEED or time based)")
	cmd.Flags().StringVar(&configFile, "config", "", "run file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset parameter set")
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// requirePersistentStore rejects backends that cannot see data written by an
// earlier invocation.
func requirePersistentStore(kind, command string) error {
	if kind == "memory" {
		return fmt.Errorf("%s needs a persistent store; the memory store keeps nothing between invocations", command)
	}
	return nil
}

// openPersistentStore is openStore for commands that read earlier runs.
func openPersistentStore(ctx context.Context, command string) (storage.Store, error) {
	if err := requirePersistentStore(storeKind, command); err != nil {
		return nil, err
	}
	return openStore(ctx)
}

func openStore(ctx context.Context) (storage.Store, error) {
	st, err := storage.NewStore(storeKind, dataDir)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
