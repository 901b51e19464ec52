package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evogen.dev/pkg/evogen/internal/domain"
	"evogen.dev/pkg/evogen/internal/metrics"
	m "evogen.dev/pkg/evogen/internal/model"
)

var (
	criteriaFlag    []string
	populationFlag  int
	budgetFlag      int64
	stoppingFlag    string
	strategyFlag    string
	selectionFlag   string
	crossoverFlag   string
	archiveFlag     string
	seedFlag        int64
	parallelFlag    int
	metricsAddrFlag string
)

// generateCmd represents the generate command.
var generateCmd = newGenerateCmd()

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate [paths...]",
		Aliases: []string{"gen"},
		Short:   "Generate unit tests",
		Long:    generateLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := searchConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr := viper.GetString(metricsAddrKey); addr != "" {
				server, err := metrics.Serve(addr, searchMetrics.Handler(workflow.Stop))
				if err != nil {
					return fmt.Errorf("failed to start metrics server: %w", err)
				}

				defer func() {
					if err := server.Close(context.WithoutCancel(ctx)); err != nil {
						slog.Warn("Failed to stop metrics server", "error", err)
					}
				}()
			}

			return workflow.Generate(ctx, domain.GenerateArgs{
				Paths:   parsePaths(args),
				Reports: m.Path(viper.GetString(outputFlagName)),
				Search:  cfg,
			})
		},
	}

	configureGenerateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func configureGenerateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringSliceVarP(&criteriaFlag, criteriaFlagName, "c", viper.GetStringSlice(searchCriteriaKey), "coverage criteria (branch, weak-mutation, strong-mutation, input, output)")
	bindFlagToConfig(flags.Lookup(criteriaFlagName), searchCriteriaKey)

	flags.IntVar(&populationFlag, populationFlagName, viper.GetInt(searchPopulationKey), "population size")
	bindFlagToConfig(flags.Lookup(populationFlagName), searchPopulationKey)

	flags.Int64VarP(&budgetFlag, budgetFlagName, "b", viper.GetInt64(searchBudgetKey), "search budget in units of the stopping condition (seconds for maxtime)")
	bindFlagToConfig(flags.Lookup(budgetFlagName), searchBudgetKey)

	flags.StringVar(&stoppingFlag, stoppingFlagName, viper.GetString(searchStoppingKey), "stopping condition (maxtime, maxgenerations, maxevaluations, maxtests, maxstatements)")
	bindFlagToConfig(flags.Lookup(stoppingFlagName), searchStoppingKey)

	flags.StringVar(&strategyFlag, strategyFlagName, viper.GetString(searchStrategyKey), "replacement strategy (standard, monotonic)")
	bindFlagToConfig(flags.Lookup(strategyFlagName), searchStrategyKey)

	flags.StringVar(&selectionFlag, selectionFlagName, viper.GetString(searchSelectionKey), "selection function (rank, tournament, roulette, binary-tournament-crowding)")
	bindFlagToConfig(flags.Lookup(selectionFlagName), searchSelectionKey)

	flags.StringVar(&crossoverFlag, crossoverFlagName, viper.GetString(searchCrossoverKey), "crossover function (single-point, fixed, relative, uniform, coverage)")
	bindFlagToConfig(flags.Lookup(crossoverFlagName), searchCrossoverKey)

	flags.StringVar(&archiveFlag, archiveFlagName, viper.GetString(searchArchiveKey), "archive (coverage, mio, none)")
	bindFlagToConfig(flags.Lookup(archiveFlagName), searchArchiveKey)

	flags.Int64Var(&seedFlag, seedFlagName, viper.GetInt64(searchSeedKey), "random seed (0 picks one from the clock)")
	bindFlagToConfig(flags.Lookup(seedFlagName), searchSeedKey)

	flags.IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(searchParallelismKey), "tests executed in parallel per fitness evaluation")
	bindFlagToConfig(flags.Lookup(parallelFlagName), searchParallelismKey)

	flags.StringVar(&metricsAddrFlag, metricsAddrFlagName, viper.GetString(metricsAddrKey), "serve Prometheus metrics and POST /stop on this address")
	bindFlagToConfig(flags.Lookup(metricsAddrFlagName), metricsAddrKey)
}
