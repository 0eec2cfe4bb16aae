// Package config loads and validates the sampler's run configuration.
package config

import "errors"

// Validation errors.
var (
	ErrNoTreeFile          = errors.New("config: tree file is required")
	ErrBadGenerations      = errors.New("config: generations must be positive")
	ErrBadChains           = errors.New("config: chains must be positive")
	ErrBadPoissonRatePrior = errors.New("config: mcmc.poisson_rate_prior must be positive")
	ErrBadLocationScale    = errors.New("config: mcmc.update_event_location_scale must be positive")
	ErrBadRateScale        = errors.New("config: mcmc.update_event_rate_scale must be positive")
	ErrBadMoveRatio        = errors.New("config: mcmc.local_global_move_ratio must be positive")
	ErrBadDeltaT           = errors.New("config: mcmc.delta_t must be non-negative")
	ErrBadSampleInterval   = errors.New("config: output.sample_interval must be positive")
)

// Config is the top-level configuration struct for a sampler run.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	TreeFile      string `mapstructure:"tree_file"`
	EventDataFile string `mapstructure:"event_data_file"`
	Seed          uint64 `mapstructure:"seed"`
	Generations   int    `mapstructure:"generations"`
	Chains        int    `mapstructure:"chains"`

	MCMC       MCMCConfig       `mapstructure:"mcmc"`
	Output     OutputConfig     `mapstructure:"output"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// MCMCConfig holds the proposal-tuning knobs handed to each chain.
type MCMCConfig struct {
	PoissonRatePrior         float64 `mapstructure:"poisson_rate_prior"`
	UpdateEventLocationScale float64 `mapstructure:"update_event_location_scale"`
	UpdateEventRateScale     float64 `mapstructure:"update_event_rate_scale"`
	LocalGlobalMoveRatio     float64 `mapstructure:"local_global_move_ratio"`

	// DeltaT is the coldness increment between heated chains of a
	// Metropolis-coupled ensemble; zero runs every chain cold.
	DeltaT float64 `mapstructure:"delta_t"`
}

// OutputConfig holds trace and report output settings.
type OutputConfig struct {
	SampleInterval int    `mapstructure:"sample_interval"`
	PlotFile       string `mapstructure:"plot_file"`
	SummaryFormat  string `mapstructure:"summary_format"`
}

// CheckpointConfig holds chain snapshot settings.
type CheckpointConfig struct {
	Dir      string `mapstructure:"dir"`
	Interval int    `mapstructure:"interval"`

	// Resume restores the cold chain from an existing snapshot in Dir
	// before running.
	Resume bool `mapstructure:"resume"`
}

// MetricsConfig holds the telemetry endpoint settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Validate checks invariants that viper cannot express.
func (c *Config) Validate() error {
	if c.TreeFile == "" {
		return ErrNoTreeFile
	}

	if c.Generations <= 0 {
		return ErrBadGenerations
	}

	if c.Chains <= 0 {
		return ErrBadChains
	}

	if c.MCMC.PoissonRatePrior <= 0 {
		return ErrBadPoissonRatePrior
	}

	if c.MCMC.UpdateEventLocationScale <= 0 {
		return ErrBadLocationScale
	}

	if c.MCMC.UpdateEventRateScale <= 0 {
		return ErrBadRateScale
	}

	if c.MCMC.LocalGlobalMoveRatio <= 0 {
		return ErrBadMoveRatio
	}

	if c.MCMC.DeltaT < 0 {
		return ErrBadDeltaT
	}

	if c.Output.SampleInterval <= 0 {
		return ErrBadSampleInterval
	}

	return nil
}
