package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evogen.dev/pkg/evogen/internal/domain"
	m "evogen.dev/pkg/evogen/internal/model"
)

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <dirs...>",
		Short: "Merge report directories into the output directory",
		Long: `Merge the reports of other directories, for example from parallel CI jobs,
into the output directory. Reports already present are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportsPath := m.Path(viper.GetString(outputFlagName))

			return workflow.Merge(cmd.Context(), domain.MergeArgs{
				Reports: reportsPath,
				Inputs:  parsePaths(args),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
