package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlab/artkit/config"
)

// writeYAML drops a config document into the test's temp dir.
func writeYAML(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// TestLoad_MainConfig verifies parsing and the epsilon default.
func TestLoad_MainConfig(t *testing.T) {
	path := writeYAML(t, "configuration.yaml", `
mains_frequency: 50
data_run_parameter_file: run.yaml
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEpsilon, cfg.Epsilon, "unset epsilon gets the default")
	assert.Equal(t, 50.0, cfg.MainsFrequency)
	assert.Equal(t, "run.yaml", cfg.DataRunParameterFile)
}

// TestLoad_RejectsBadValues verifies validation of the main config.
func TestLoad_RejectsBadValues(t *testing.T) {
	_, err := config.Load(writeYAML(t, "configuration.yaml", "epsilon: -1\n"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "negative epsilon must fail")

	_, err = config.Load(writeYAML(t, "configuration.yaml", "mains_frequency: -50\n"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "negative mains frequency must fail")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "missing file must fail")
}

// TestLoadDataRun_FullDocument verifies parsing of a complete run
// configuration with all three operation sections.
func TestLoadDataRun_FullDocument(t *testing.T) {
	path := writeYAML(t, "run.yaml", `
output_directory: derived
pd_arguments:
  norms: [l1, l2]
  timesteps: [1, 2]
  mask_images: true
  release_data_memory: true
spline_metric_arguments:
  metrics: [annd, mpbpd]
  timesteps: [1, 3]
  exclude_points: [2, 1]
downsample:
  modality_pattern:
    pattern: PD
  match_timestep: true
  downsampling_ratios: [2]
`)
	run, err := config.LoadDataRun(path)
	require.NoError(t, err)

	require.NotNil(t, run.PD)
	assert.Equal(t, []string{"l1", "l2"}, run.PD.Norms)
	assert.True(t, run.PD.MaskImages)

	require.NotNil(t, run.SplineMetrics)
	assert.Equal(t, []int{1, 3}, run.SplineMetrics.Timesteps)
	require.NotNil(t, run.SplineMetrics.ExcludePoints)
	assert.Equal(t, [2]int{2, 1}, *run.SplineMetrics.ExcludePoints)

	require.NotNil(t, run.Downsample)
	assert.Equal(t, "PD", run.Downsample.ModalityPattern.Pattern)
	assert.True(t, run.Downsample.MatchTimestep)
}

// TestLoadDataRun_Validation verifies rejection of bad timesteps, bad
// ratios and a missing downsample pattern.
func TestLoadDataRun_Validation(t *testing.T) {
	_, err := config.LoadDataRun(writeYAML(t, "run.yaml", `
pd_arguments:
  timesteps: [0]
`))
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "pd timestep below one must fail")

	_, err = config.LoadDataRun(writeYAML(t, "run.yaml", `
spline_metric_arguments:
  timesteps: [-2]
`))
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "negative spline timestep must fail")

	_, err = config.LoadDataRun(writeYAML(t, "run.yaml", `
downsample:
  match_timestep: true
  downsampling_ratios: [2]
`))
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "downsample needs a pattern")

	_, err = config.LoadDataRun(writeYAML(t, "run.yaml", `
downsample:
  modality_pattern:
    pattern: PD
  downsampling_ratios: [0]
`))
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "ratio below one must fail")
}

// TestLoadDataRun_EmptyDocument verifies that a run configuration with no
// operations parses to all-nil sections.
func TestLoadDataRun_EmptyDocument(t *testing.T) {
	run, err := config.LoadDataRun(writeYAML(t, "run.yaml", "output_directory: out\n"))
	require.NoError(t, err)
	assert.Nil(t, run.PD)
	assert.Nil(t, run.SplineMetrics)
	assert.Nil(t, run.Downsample)
}
