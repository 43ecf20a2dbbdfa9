package cmd

import (
	"fmt"
	"os"

	"magistrant/internal/charts"
	"magistrant/internal/configutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	planLogin    string
	planPassword string
	planTerm     int
)

func init() {
	planCmd.Flags().StringVar(&planLogin, "login", "", "Portal login.")
	planCmd.Flags().StringVar(&planPassword, "password", "", "Portal password, prefer the "+envPassword+" environment variable.")
	planCmd.Flags().IntVar(&planTerm, "term", 1, "Term number, 1 to 4.")
	planCmd.MarkFlagRequired("login")
	rootCmd.AddCommand(planCmd)
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Prints the curriculum of a term, scraping the portal when nothing is cached.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		password := planPassword
		configutil.OverrideFromEnv(&password, envPassword)

		records, err := a.plans.GetPlan(cmd.Context(), planLogin, password, planTerm)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No disciplines found for this term.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Discipline", "Control", "Hours"})
		for i, r := range records {
			t.AppendRow(table.Row{i + 1, r.Name, r.Control.String(), r.Hours})
		}
		summary, err := charts.Summarize(records)
		if err != nil {
			return err
		}
		t.AppendFooter(table.Row{"", "Total", fmt.Sprintf("median %.1f", summary.Median), summary.Total})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
