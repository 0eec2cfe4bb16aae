package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".bamm"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for sampler settings.
const envPrefix = "BAMM"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default tuning values. The event rate starts at the inverse of the
// Poisson-rate prior, so the default prior expects one event on the tree.
const (
	DefaultGenerations              = 100000
	DefaultChains                   = 1
	DefaultPoissonRatePrior         = 1.0
	DefaultUpdateEventLocationScale = 0.05
	DefaultUpdateEventRateScale     = 2.0
	DefaultLocalGlobalMoveRatio     = 10.0
	DefaultDeltaT                   = 0.1
	DefaultSampleInterval           = 100
	DefaultCheckpointInterval       = 10000
	DefaultSummaryFormat            = "table"
)

// Load reads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("generations", DefaultGenerations)
	viperCfg.SetDefault("chains", DefaultChains)
	viperCfg.SetDefault("seed", 0)

	viperCfg.SetDefault("mcmc.poisson_rate_prior", DefaultPoissonRatePrior)
	viperCfg.SetDefault("mcmc.update_event_location_scale", DefaultUpdateEventLocationScale)
	viperCfg.SetDefault("mcmc.update_event_rate_scale", DefaultUpdateEventRateScale)
	viperCfg.SetDefault("mcmc.local_global_move_ratio", DefaultLocalGlobalMoveRatio)
	viperCfg.SetDefault("mcmc.delta_t", DefaultDeltaT)

	viperCfg.SetDefault("output.sample_interval", DefaultSampleInterval)
	viperCfg.SetDefault("output.summary_format", DefaultSummaryFormat)

	viperCfg.SetDefault("checkpoint.interval", DefaultCheckpointInterval)
	viperCfg.SetDefault("checkpoint.resume", false)
}
