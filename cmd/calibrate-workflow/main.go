// calibrate-workflow partitions the configured physical-parameter sweep into
// bounded-size jobs and emits the cluster workflow: per-job parameter files,
// a DAG description, a shared submission template, and the directory layout
// the job runner expects.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wavecal/calibration-core/internal/grid"
	"github.com/wavecal/calibration-core/internal/workflow"
	"github.com/wavecal/calibration-core/pkg/config"
	"github.com/wavecal/calibration-core/pkg/logger"
)

var (
	configFile   string
	workDir      string
	runnerBinary string
)

var rootCmd = &cobra.Command{
	Use:           "calibrate-workflow",
	Short:         "Generate the calibration DAG workflow",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generate()
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configFile, "config", "", "Path to the workflow configuration file (required)")
	f.StringVar(&workDir, "workdir", ".", "Directory to materialize the workflow in")
	f.StringVar(&runnerBinary, "runner-binary", "", "Path to the built calibrate-job binary to stage (required)")

	cobra.CheckErr(rootCmd.MarkFlagRequired("config"))
	cobra.CheckErr(rootCmd.MarkFlagRequired("runner-binary"))
}

func generate() error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stderr))

	batches := grid.Partition(cfg.Grid)
	logger.Info("parameter sweep partitioned",
		"jobs", len(batches), "rows", grid.TotalRows(batches),
		"calcs_per_job", cfg.Grid.CalcsPerJob)

	emitter := workflow.NewEmitter(workDir, cfg.Run, runnerBinary)
	if err := emitter.Scaffold(); err != nil {
		return err
	}
	return emitter.Emit(batches)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("workflow generation failed", "error", err)
		os.Exit(1)
	}
}
