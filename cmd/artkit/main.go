// Command artkit runs derivation pipelines over saved sessions: it loads
// a session from the database, applies the operations the run
// configuration asks for, and saves the enriched session back.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/artlab/artkit/config"
	"github.com/artlab/artkit/metrics"
	"github.com/artlab/artkit/process"
	"github.com/artlab/artkit/store"
)

var version = "dev"

var (
	configPath  string
	dbPath      string
	sessionName string
	workers     int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "artkit",
	Short:         "Articulation data derivation toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the artkit version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("artkit", version)
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the configured derivations over a saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess()
	},
}

func init() {
	processCmd.Flags().StringVarP(&configPath, "config", "c", "configuration.yaml",
		"main configuration file")
	processCmd.Flags().StringVar(&dbPath, "db", "artkit.db", "session database")
	processCmd.Flags().StringVarP(&sessionName, "session", "s", "", "session to process")
	processCmd.Flags().IntVarP(&workers, "workers", "w", 1,
		"recordings processed concurrently")
	processCmd.MarkFlagRequired("session")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(processCmd, versionCmd)
}

func runProcess() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	run, err := config.LoadDataRun(cfg.DataRunParameterFile)
	if err != nil {
		return err
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	session, err := db.LoadSession(sessionName)
	if err != nil {
		return err
	}
	log.Info("loaded session", "name", session.Name, "recordings", session.Len())

	operations := buildOperations(run)
	if len(operations) == 0 {
		log.Warn("run configuration requests no operations")
		return nil
	}
	if err := process.Run(session.Recordings, operations,
		process.WithWorkers(workers), process.WithLogger(log)); err != nil {
		return err
	}

	if err := db.SaveSession(session); err != nil {
		return err
	}
	log.Info("saved session", "name", session.Name)
	return nil
}

// buildOperations translates the run configuration into registered
// operations. Labels sort in the order the pipeline should run: metrics
// derive before downsampling sees them.
func buildOperations(run *config.DataRunConfig) map[string]process.Operation {
	operations := make(map[string]process.Operation)
	if run.PD != nil {
		operations["1: pd"] = process.PDOperation(
			run.PD.Norms, run.PD.Timesteps, run.PD.MaskImages,
			run.PD.PDOnInterpolatedData, run.PD.ReleaseDataMemory)
	}
	if run.SplineMetrics != nil {
		kinds := make([]metrics.SplineMetricKind, len(run.SplineMetrics.Metrics))
		for i, name := range run.SplineMetrics.Metrics {
			kinds[i] = metrics.SplineMetricKind(name)
		}
		var exclude *metrics.PointRange
		if run.SplineMetrics.ExcludePoints != nil {
			exclude = &metrics.PointRange{
				Low:  run.SplineMetrics.ExcludePoints[0],
				High: run.SplineMetrics.ExcludePoints[1],
			}
		}
		operations["2: spline metrics"] = process.SplineMetricOperation(
			kinds, run.SplineMetrics.Timesteps, exclude,
			run.SplineMetrics.ReleaseDataMemory)
	}
	if run.Downsample != nil {
		operations["3: downsample"] = process.DownsampleOperation(
			run.Downsample.ModalityPattern.Pattern,
			run.Downsample.DownsamplingRatios,
			run.Downsample.MatchTimestep)
	}
	return operations
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "artkit:", err)
		os.Exit(1)
	}
}
