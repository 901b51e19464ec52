package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evogen.dev/pkg/evogen/internal/domain"
	m "evogen.dev/pkg/evogen/internal/model"
)

var viewClassFlag string
var viewDiffFlag bool

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously generated reports",
		Long: `View previously generated reports from a reports directory. With --diff the
generated tests of the two latest reports of a class are compared.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reportsPath := m.Path(viper.GetString(outputFlagName))

			return workflow.View(cmd.Context(), domain.ViewArgs{
				Reports: reportsPath,
				Class:   viewClassFlag,
				Diff:    viewDiffFlag,
			})
		},
	}

	cmd.Flags().StringVar(&viewClassFlag, "class", "", "only show reports of this class")
	cmd.Flags().BoolVar(&viewDiffFlag, "diff", false, "diff the tests of the two latest reports")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
