package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"evogen.dev/pkg/evogen/internal/coverage"
	"evogen.dev/pkg/evogen/internal/domain"
)

var listCriteriaFlag []string

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List coverage goals per criterion",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			var criteria []coverage.Criterion

			if len(listCriteriaFlag) > 0 {
				parsed, err := coverage.ParseCriteria(strings.Join(listCriteriaFlag, ","))
				if err != nil {
					return fmt.Errorf("invalid --%s: %w", criteriaFlagName, err)
				}

				criteria = parsed
			}

			return workflow.ListGoals(cmd.Context(), domain.ListArgs{
				Paths:    parsePaths(args),
				Criteria: criteria,
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listCriteriaFlag, criteriaFlagName, "c", nil, "criteria to list (default: all)")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
