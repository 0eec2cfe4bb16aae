// Package commands implements CLI command handlers for bamm.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bomeara/bamm/internal/config"
	"github.com/bomeara/bamm/pkg/chain"
	"github.com/bomeara/bamm/pkg/checkpoint"
	"github.com/bomeara/bamm/pkg/observability"
	"github.com/bomeara/bamm/pkg/phylo"
	"github.com/bomeara/bamm/pkg/prior"
	"github.com/bomeara/bamm/pkg/stats"
)

// Likelihood scores the chain's current event configuration. The default is
// flat, which reduces move acceptance to the event-process prior.
type Likelihood func(c *chain.Chain) float64

// ErrBadSummaryFormat indicates an unsupported output.summary_format value.
var ErrBadSummaryFormat = errors.New("summary format must be one of: table, yaml")

// Per-generation proposal weights. The remainder after rate update, birth,
// and death goes to event moves, split local/global by the configured ratio.
const (
	rateUpdateProbability = 0.2
	birthProbability      = 0.2
	deathProbability      = 0.2
)

const shutdownTimeout = 5 * time.Second

// acceptanceEMAAlpha smooths the decaying acceptance rate logged with each
// trace sample.
const acceptanceEMAAlpha = 0.01

// rngStreamOffset separates the proposal-selection stream from the chain's
// own stream when both derive from the same seed.
const rngStreamOffset = 1

// Move labels used in metrics and logs.
const (
	moveRateUpdate = "rate_update"
	moveBirth      = "birth"
	moveDeath      = "death"
	moveLocal      = "local_move"
	moveGlobal     = "global_move"
)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath    string
	treeFile      string
	eventDataFile string
	generations   int
	seed          uint64

	sampleInterval int
	plotFile       string
	summaryFormat  string

	checkpointDir      string
	checkpointInterval int
	resume             bool

	metricsAddr string
	verbose     bool
	noColor     bool

	likelihood Likelihood
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(flatLikelihood)
}

func newRunCommandWithDeps(lik Likelihood) *cobra.Command {
	rc := &RunCommand{likelihood: lik}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sampler on a newick tree",
		Long:  "Run a reversible-jump MCMC chain over rate-shift events on a phylogenetic tree.",
		Args:  cobra.NoArgs,
		RunE:  rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file path (default: .bamm.yaml in CWD or $HOME)")
	cmd.Flags().StringVarP(&rc.treeFile, "tree", "t", "", "Newick tree file")
	cmd.Flags().StringVar(&rc.eventDataFile, "event-data", "", "Event data file to seed the chain from")
	cmd.Flags().IntVarP(&rc.generations, "generations", "g", 0, "Number of MCMC generations")
	cmd.Flags().Uint64Var(&rc.seed, "seed", 0, "RNG seed (0 = derive from wall clock)")

	cmd.Flags().IntVar(&rc.sampleInterval, "sample-interval", 0, "Generations between trace samples")
	cmd.Flags().StringVar(&rc.plotFile, "plot", "", "Write an HTML trace plot to this file")
	cmd.Flags().StringVar(&rc.summaryFormat, "summary-format", "", "Summary output format: table, yaml")

	cmd.Flags().StringVar(&rc.checkpointDir, "checkpoint-dir", "", "Checkpoint directory (empty = checkpointing disabled)")
	cmd.Flags().IntVar(&rc.checkpointInterval, "checkpoint-interval", 0, "Generations between checkpoints")
	cmd.Flags().BoolVar(&rc.resume, "resume", false, "Resume the cold chain from an existing checkpoint")

	cmd.Flags().StringVar(&rc.metricsAddr, "metrics-addr", "", "Prometheus scrape endpoint listen address (empty = disabled)")
	cmd.Flags().BoolVarP(&rc.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored status output")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := rc.loadConfig(cmd)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if rc.verbose {
		level = slog.LevelDebug
	}

	providers, err := observability.Init(observability.Config{
		Service:     "bamm",
		MetricsAddr: cfg.Metrics.Addr,
		LogLevel:    level,
		LogFormat:   observability.LogFormatText,
	})
	if err != nil {
		return err
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := providers.Shutdown(ctx)
		if shutdownErr != nil {
			providers.Logger.Error("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewChainMetrics(providers.Meter)
	if err != nil {
		return err
	}

	tree, err := loadTree(cfg.TreeFile)
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	providers.Logger.Info("starting run",
		"tree", cfg.TreeFile, "tips", (tree.NodeCount()+1)/2,
		"generations", cfg.Generations, "chains", cfg.Chains, "seed", seed)

	runner := &chainRunner{
		cfg:        cfg,
		tree:       tree,
		likelihood: rc.likelihood,
		logger:     providers.Logger,
		metrics:    metrics,
	}

	started := time.Now()

	result, err := runner.runAll(cmd.Context(), seed)
	if err != nil {
		return err
	}

	result.summary.ElapsedSeconds = time.Since(started).Seconds()

	return writeRunOutput(cmd.OutOrStdout(), cfg, result, rc.noColor)
}

// loadConfig reads the config file and folds explicitly set flags over it.
func (rc *RunCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("tree") {
		cfg.TreeFile = rc.treeFile
	}

	if flags.Changed("event-data") {
		cfg.EventDataFile = rc.eventDataFile
	}

	if flags.Changed("generations") {
		cfg.Generations = rc.generations
	}

	if flags.Changed("seed") {
		cfg.Seed = rc.seed
	}

	if flags.Changed("sample-interval") {
		cfg.Output.SampleInterval = rc.sampleInterval
	}

	if flags.Changed("plot") {
		cfg.Output.PlotFile = rc.plotFile
	}

	if flags.Changed("summary-format") {
		cfg.Output.SummaryFormat = rc.summaryFormat
	}

	if flags.Changed("checkpoint-dir") {
		cfg.Checkpoint.Dir = rc.checkpointDir
	}

	if flags.Changed("checkpoint-interval") {
		cfg.Checkpoint.Interval = rc.checkpointInterval
	}

	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = rc.metricsAddr
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.Output.SummaryFormat != summaryFormatTable && cfg.Output.SummaryFormat != summaryFormatYAML {
		return nil, fmt.Errorf("%w: got %q", ErrBadSummaryFormat, cfg.Output.SummaryFormat)
	}

	rc.resumeRequested(cfg)

	return cfg, nil
}

func (rc *RunCommand) resumeRequested(cfg *config.Config) {
	if rc.resume {
		cfg.Checkpoint.Resume = true
	}

	if cfg.Checkpoint.Dir == "" {
		cfg.Checkpoint.Resume = false
	}
}

func loadTree(path string) (*phylo.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tree file: %w", err)
	}
	defer f.Close()

	return phylo.NewTreeFromNewick(f)
}

func flatLikelihood(*chain.Chain) float64 { return 0 }

// runResult carries the cold chain's summary and trace samples.
type runResult struct {
	summary runSummary
	trace   traceData
}

type chainRunner struct {
	cfg        *config.Config
	tree       *phylo.Tree
	likelihood Likelihood
	logger     *slog.Logger
	metrics    *observability.ChainMetrics
}

// runAll runs the configured chains sequentially. Chain 0 is the cold chain
// and the only one whose trace, checkpoints, and summary are reported;
// heated chains run at reduced coldness purely for exploration.
func (cr *chainRunner) runAll(ctx context.Context, seed uint64) (*runResult, error) {
	var result *runResult

	for chainID := range cr.cfg.Chains {
		coldness := chain.NewColdness()
		coldness.Set(1 / (1 + cr.cfg.MCMC.DeltaT*float64(chainID)))

		res, err := cr.runChain(ctx, chainID, seed+uint64(chainID)*2, coldness)
		if err != nil {
			return nil, err
		}

		if chainID == 0 {
			result = res
		}
	}

	return result, nil
}

func (cr *chainRunner) runChain(ctx context.Context, chainID int, seed uint64, coldness *chain.Coldness) (*runResult, error) {
	chainRng := rand.New(rand.NewPCG(seed, seed))
	moveRng := rand.New(rand.NewPCG(seed, seed+rngStreamOffset))

	settings := chain.Settings{
		PoissonRatePrior:         cr.cfg.MCMC.PoissonRatePrior,
		UpdateEventLocationScale: cr.cfg.MCMC.UpdateEventLocationScale,
		UpdateEventRateScale:     cr.cfg.MCMC.UpdateEventRateScale,
		LocalGlobalMoveRatio:     cr.cfg.MCMC.LocalGlobalMoveRatio,
	}

	pr := prior.NewPoissonRatePrior(cr.cfg.MCMC.PoissonRatePrior)

	c := chain.New(chainRng, cr.tree, pr, settings, coldness, defaultRootParams(), randomDiversification)

	err := cr.initChain(c, chainID)
	if err != nil {
		return nil, err
	}

	trace := traceData{}
	acceptEMA := stats.NewEMA(acceptanceEMAAlpha)

	for c.Generation() < cr.cfg.Generations {
		cr.step(ctx, c, moveRng, chainID, acceptEMA)
		c.Step()
		cr.metrics.RecordGeneration(ctx, chainID)

		gen := c.Generation()

		if gen%cr.cfg.Output.SampleInterval == 0 {
			trace.sample(gen, c.EventCount(), c.EventRate())
			cr.metrics.RecordEventCount(ctx, chainID, c.EventCount())
			cr.logger.Debug("trace sample",
				"chain", chainID, "generation", gen,
				"events", c.EventCount(), "event_rate", c.EventRate(),
				"acceptance_ema", acceptEMA.Value())
		}

		err = cr.maybeCheckpoint(c, chainID, gen)
		if err != nil {
			return nil, err
		}
	}

	accepts, rejects := c.Counters()

	cr.logger.Info("chain finished",
		"chain", chainID, "generations", c.Generation(),
		"events", c.EventCount(), "accepts", accepts, "rejects", rejects)

	meanEvents, stddevEvents := stats.MeanStdDev(trace.events)

	return &runResult{
		summary: runSummary{
			Generations:     c.Generation(),
			Chains:          cr.cfg.Chains,
			Events:          c.EventCount(),
			EventRate:       c.EventRate(),
			Accepts:         accepts,
			Rejects:         rejects,
			AcceptanceRate:  acceptanceRate(accepts, rejects),
			MeanEvents:      meanEvents,
			StdDevEvents:    stddevEvents,
			MedianEventRate: stats.Median(trace.rates),
		},
		trace: trace,
	}, nil
}

// initChain restores chain 0 from its checkpoint when resuming, otherwise
// seeds the chain from the event data file when one is configured.
func (cr *chainRunner) initChain(c *chain.Chain, chainID int) error {
	if chainID == 0 && cr.cfg.Checkpoint.Resume {
		snap, err := checkpoint.Load(cr.cfg.Checkpoint.Dir)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}

		err = checkpoint.Restore(c, snap, decodeDiversification)
		if err != nil {
			return fmt.Errorf("restore checkpoint: %w", err)
		}

		cr.logger.Info("resumed from checkpoint",
			"dir", cr.cfg.Checkpoint.Dir, "generation", c.Generation(), "events", c.EventCount())

		return nil
	}

	if cr.cfg.EventDataFile == "" {
		return nil
	}

	f, err := os.Open(cr.cfg.EventDataFile)
	if err != nil {
		return fmt.Errorf("open event data: %w", err)
	}
	defer f.Close()

	n, err := c.InitializeFromEventData(f, parseDiversification)
	if err != nil {
		return err
	}

	cr.logger.Info("seeded chain from event data", "chain", chainID, "records", n, "events", c.EventCount())

	return nil
}

func (cr *chainRunner) maybeCheckpoint(c *chain.Chain, chainID, gen int) error {
	if chainID != 0 || cr.cfg.Checkpoint.Dir == "" || cr.cfg.Checkpoint.Interval <= 0 {
		return nil
	}

	if gen%cr.cfg.Checkpoint.Interval != 0 {
		return nil
	}

	snap, err := checkpoint.Capture(c, encodeDiversification)
	if err != nil {
		return fmt.Errorf("capture checkpoint: %w", err)
	}

	err = checkpoint.Save(cr.cfg.Checkpoint.Dir, snap)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	cr.logger.Debug("checkpoint saved", "dir", cr.cfg.Checkpoint.Dir, "generation", gen)

	return nil
}

// step proposes and resolves one move.
func (cr *chainRunner) step(ctx context.Context, c *chain.Chain, rng *rand.Rand, chainID int, acceptEMA *stats.EMA) {
	u := rng.Float64()
	started := time.Now()

	var (
		move     string
		accepted bool
	)

	switch {
	case u < rateUpdateProbability:
		move = moveRateUpdate
		before, _ := c.Counters()
		c.UpdateEventRate()
		after, _ := c.Counters()
		accepted = after > before
	case u < rateUpdateProbability+birthProbability:
		move = moveBirth
		accepted = cr.proposeBirth(c)
	case u < rateUpdateProbability+birthProbability+deathProbability:
		move = moveDeath
		accepted = cr.proposeDeath(c)
	default:
		local := rng.Float64() < c.LocalMoveProbability()
		if local {
			move = moveLocal
		} else {
			move = moveGlobal
		}

		accepted = cr.proposeMove(c, local)
	}

	outcome := 0.0
	if accepted {
		outcome = 1.0
	}

	acceptEMA.Update(outcome)
	cr.metrics.RecordMove(ctx, chainID, move, accepted, time.Since(started))
}

// proposeBirth resolves an event insertion. The new event's position and
// parameters are drawn from the process prior, so the proposal density
// cancels and the acceptance ratio reduces to the prior ratio of the event
// counts. It is therefore computed before touching the chain; a rejected
// birth leaves no trace to undo.
func (cr *chainRunner) proposeBirth(c *chain.Chain) bool {
	k := c.EventCount()

	logRatio := math.Log(c.EventRate()) - math.Log(float64(k+1))
	if !c.AcceptMetropolis(logRatio) {
		c.Reject()

		return false
	}

	c.AddRandomEvent()
	c.Accept()

	return true
}

// proposeDeath mirrors proposeBirth: acceptance is resolved on the prior
// ratio first, then a uniformly chosen event is removed.
func (cr *chainRunner) proposeDeath(c *chain.Chain) bool {
	k := c.EventCount()
	if k == 0 {
		c.Reject()

		return false
	}

	logRatio := math.Log(float64(k)) - math.Log(c.EventRate())
	if !c.AcceptMetropolis(logRatio) {
		c.Reject()

		return false
	}

	c.DeleteEvent(c.PickRandomEvent())
	c.Accept()

	return true
}

// proposeMove relocates an event, scores the new configuration, and reverts
// on rejection. Location proposals are symmetric, so the acceptance ratio is
// the likelihood difference alone.
func (cr *chainRunner) proposeMove(c *chain.Chain, local bool) bool {
	before := cr.likelihood(c)

	var e *chain.Event
	if local {
		e = c.LocalMove()
	} else {
		e = c.GlobalMove()
	}

	if e == nil {
		c.Reject()

		return false
	}

	logRatio := cr.likelihood(c) - before
	if c.AcceptMetropolis(logRatio) {
		c.Accept()

		return true
	}

	c.RevertLastMove()
	c.Reject()

	return false
}

func acceptanceRate(accepts, rejects int) float64 {
	total := accepts + rejects
	if total == 0 {
		return 0
	}

	return float64(accepts) / float64(total)
}

// writeRunOutput renders the summary and, when configured, the trace plot.
func writeRunOutput(w io.Writer, cfg *config.Config, result *runResult, noColor bool) error {
	err := writeSummary(w, cfg.Output.SummaryFormat, result.summary, noColor)
	if err != nil {
		return err
	}

	if cfg.Output.PlotFile == "" {
		return nil
	}

	return writeTracePlot(cfg.Output.PlotFile, result.trace)
}
