package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// An explicit path that does not exist is a real error.
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultGenerations, cfg.Generations)
	assert.Equal(t, DefaultChains, cfg.Chains)
	assert.InDelta(t, DefaultPoissonRatePrior, cfg.MCMC.PoissonRatePrior, 1e-12)
	assert.InDelta(t, DefaultUpdateEventLocationScale, cfg.MCMC.UpdateEventLocationScale, 1e-12)
	assert.InDelta(t, DefaultLocalGlobalMoveRatio, cfg.MCMC.LocalGlobalMoveRatio, 1e-12)
	assert.Equal(t, DefaultSampleInterval, cfg.Output.SampleInterval)
	assert.Equal(t, DefaultSummaryFormat, cfg.Output.SummaryFormat)
	assert.Empty(t, cfg.TreeFile)
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bamm.yaml")

	data := `tree_file: whales.tre
generations: 5000
seed: 42
mcmc:
  poisson_rate_prior: 2.5
  local_global_move_ratio: 4
output:
  sample_interval: 10
  plot_file: trace.html
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "whales.tre", cfg.TreeFile)
	assert.Equal(t, 5000, cfg.Generations)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.InDelta(t, 2.5, cfg.MCMC.PoissonRatePrior, 1e-12)
	assert.InDelta(t, 4.0, cfg.MCMC.LocalGlobalMoveRatio, 1e-12)
	assert.Equal(t, 10, cfg.Output.SampleInterval)
	assert.Equal(t, "trace.html", cfg.Output.PlotFile)

	// Unset keys keep their defaults.
	assert.InDelta(t, DefaultUpdateEventRateScale, cfg.MCMC.UpdateEventRateScale, 1e-12)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			TreeFile:    "tree.tre",
			Generations: 100,
			Chains:      1,
			MCMC: MCMCConfig{
				PoissonRatePrior:         1,
				UpdateEventLocationScale: 0.05,
				UpdateEventRateScale:     2,
				LocalGlobalMoveRatio:     10,
				DeltaT:                   0.1,
			},
			Output: OutputConfig{SampleInterval: 100},
		}
	}

	require.NoError(t, valid().Validate())

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing tree", func(c *Config) { c.TreeFile = "" }, ErrNoTreeFile},
		{"zero generations", func(c *Config) { c.Generations = 0 }, ErrBadGenerations},
		{"zero chains", func(c *Config) { c.Chains = 0 }, ErrBadChains},
		{"bad prior", func(c *Config) { c.MCMC.PoissonRatePrior = 0 }, ErrBadPoissonRatePrior},
		{"bad location scale", func(c *Config) { c.MCMC.UpdateEventLocationScale = -1 }, ErrBadLocationScale},
		{"bad rate scale", func(c *Config) { c.MCMC.UpdateEventRateScale = 0 }, ErrBadRateScale},
		{"bad move ratio", func(c *Config) { c.MCMC.LocalGlobalMoveRatio = 0 }, ErrBadMoveRatio},
		{"negative delta t", func(c *Config) { c.MCMC.DeltaT = -0.1 }, ErrBadDeltaT},
		{"bad sample interval", func(c *Config) { c.Output.SampleInterval = 0 }, ErrBadSampleInterval},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.wantErr)
		})
	}
}
