package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/register-interests/internal/taxonomy"
)

var taxonomyPeriod string

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "List the interest categories",
	Long: `List the categories of the code of conduct. With --period, only the
categories in force for that reporting period are shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTaxonomy(cmd.OutOrStdout(), taxonomyPeriod)
	},
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.Flags().StringVar(&taxonomyPeriod, "period", "", "Reporting period, e.g. 2015-16")
}

func runTaxonomy(out io.Writer, period string) error {
	categories := taxonomy.All()
	if period != "" {
		var err error
		if categories, err = taxonomy.ForPeriod(period); err != nil {
			return err
		}
	}

	year := 0
	for _, c := range categories {
		if c.RuleSetYear != year {
			year = c.RuleSetYear
			fmt.Fprintf(out, "Rules from %d:\n", year)
		}
		marker := ""
		if c.AmountRequired {
			marker = " (amount required)"
		}
		fmt.Fprintf(out, "  %s%s\n", c, marker)
	}
	return nil
}
