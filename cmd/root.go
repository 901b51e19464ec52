// Package cmd provides the root command and CLI setup for evogen.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"evogen.dev/pkg/evogen/internal/adapter"
	"evogen.dev/pkg/evogen/internal/controller"
	"evogen.dev/pkg/evogen/internal/domain"
	"evogen.dev/pkg/evogen/internal/ga"
	"evogen.dev/pkg/evogen/internal/metrics"
	m "evogen.dev/pkg/evogen/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var targetAdapter adapter.TargetAdapter
var reportStore adapter.ReportStore
var snapshotStore adapter.SnapshotStore
var searchMetrics *metrics.Metrics
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// verboseFlag switches the log file to debug level.
var verboseFlag bool

// logFileFlag overrides the log file path.
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	targetAdapter = adapter.NewLocalTargetAdapter(fsAdapter)
	reportStore = adapter.NewReportStore(fsAdapter)

	var err error

	snapshotStore, err = adapter.NewSnapshotStore(viper.GetString(snapshotBackendKey), viper.GetString(snapshotPathKey))
	cobra.CheckErr(err)

	searchMetrics, err = metrics.New()
	cobra.CheckErr(err)

	workflow = domain.NewWorkflow(
		targetAdapter,
		reportStore,
		snapshotStore,
		ui,
		metricsListener,
	)
}

func metricsListener(class string) ga.SearchListener {
	return searchMetrics.Listener(class)
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...              recursively scan current directory for target files
  - ./targets/...      recursively scan the targets directory
  - ./a.yaml ./b.yaml  use the given target descriptions`

const rootLongDescription = `Evogen is a search-based unit test generator. It evolves suites of method
call sequences with a genetic algorithm until they cover the goals of the
selected criteria: branches, mutants, inputs and outputs.

` + pathPatternsHelp

const generateLongDescription = `Generate tests for the target descriptions under the given paths
(default: current directory).

` + pathPatternsHelp

const listLongDescription = `List the coverage goals of each target per criterion.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evogen",
		Short: "Search-based unit test generator",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for generation reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
