// Package config loads and validates the YAML run configuration that
// drives a processing session: which metrics to derive, with which
// parameters, and what to downsample.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a configuration file that parsed but failed
// validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// DefaultEpsilon is the time comparison tolerance used when the main
// configuration does not set one.
const DefaultEpsilon = 1e-6

// MainConfig is the top-level configuration.
type MainConfig struct {
	// Epsilon is the tolerance for comparing timestamps.
	Epsilon float64 `yaml:"epsilon"`
	// MainsFrequency is the local mains hum frequency in Hz, used by the
	// audio import filters.
	MainsFrequency float64 `yaml:"mains_frequency"`
	// DataRunParameterFile points at the DataRunConfig to execute.
	DataRunParameterFile string `yaml:"data_run_parameter_file"`
}

// SearchPattern selects modalities by name.
type SearchPattern struct {
	Pattern  string `yaml:"pattern"`
	IsRegexp bool   `yaml:"is_regexp"`
}

// PDArguments configures the pixel difference operation.
type PDArguments struct {
	Norms                []string `yaml:"norms"`
	Timesteps            []int    `yaml:"timesteps"`
	MaskImages           bool     `yaml:"mask_images"`
	PDOnInterpolatedData bool     `yaml:"pd_on_interpolated_data"`
	ReleaseDataMemory    bool     `yaml:"release_data_memory"`
	Preload              bool     `yaml:"preload"`
}

// SplineMetricArguments configures the spline metric operation.
type SplineMetricArguments struct {
	Metrics           []string `yaml:"metrics"`
	Timesteps         []int    `yaml:"timesteps"`
	ExcludePoints     *[2]int  `yaml:"exclude_points"`
	ReleaseDataMemory bool     `yaml:"release_data_memory"`
	Preload           bool     `yaml:"preload"`
}

// DownsampleParams configures the downsampling operation.
type DownsampleParams struct {
	ModalityPattern    SearchPattern `yaml:"modality_pattern"`
	MatchTimestep      bool          `yaml:"match_timestep"`
	DownsamplingRatios []int         `yaml:"downsampling_ratios"`
}

// DataRunConfig describes one processing run.
type DataRunConfig struct {
	OutputDirectory string                 `yaml:"output_directory"`
	PD              *PDArguments           `yaml:"pd_arguments"`
	SplineMetrics   *SplineMetricArguments `yaml:"spline_metric_arguments"`
	Downsample      *DownsampleParams      `yaml:"downsample"`
}

// Load reads and validates a MainConfig from a YAML file.
func Load(path string) (*MainConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := &MainConfig{Epsilon: DefaultEpsilon}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Epsilon <= 0 {
		return nil, fmt.Errorf("%w: epsilon must be positive, got %f", ErrInvalidConfig, cfg.Epsilon)
	}
	if cfg.MainsFrequency < 0 {
		return nil, fmt.Errorf("%w: mains frequency must be non-negative, got %f",
			ErrInvalidConfig, cfg.MainsFrequency)
	}
	return cfg, nil
}

// LoadDataRun reads and validates a DataRunConfig from a YAML file.
func LoadDataRun(path string) (*DataRunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := &DataRunConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *DataRunConfig) validate() error {
	if c.PD != nil {
		for _, timestep := range c.PD.Timesteps {
			if timestep < 1 {
				return fmt.Errorf("%w: pd timestep %d", ErrInvalidConfig, timestep)
			}
		}
	}
	if c.SplineMetrics != nil {
		for _, timestep := range c.SplineMetrics.Timesteps {
			if timestep < 1 {
				return fmt.Errorf("%w: spline metric timestep %d", ErrInvalidConfig, timestep)
			}
		}
	}
	if c.Downsample != nil {
		if c.Downsample.ModalityPattern.Pattern == "" {
			return fmt.Errorf("%w: downsample needs a modality pattern", ErrInvalidConfig)
		}
		for _, ratio := range c.Downsample.DownsamplingRatios {
			if ratio < 1 {
				return fmt.Errorf("%w: downsampling ratio %d", ErrInvalidConfig, ratio)
			}
		}
	}
	return nil
}
