package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	cacheLogin string
	cacheTerms []int
)

func init() {
	cacheCmd.Flags().StringVar(&cacheLogin, "login", "", "Portal login.")
	cacheCmd.Flags().IntSliceVar(&cacheTerms, "term", []int{1, 2, 3, 4}, "Terms to show.")
	cacheCmd.MarkFlagRequired("login")
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Shows what the store holds for a login without contacting the portal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Term", "Fetched at", "Discipline", "Control", "Hours"})
		for _, term := range cacheTerms {
			entry, err := a.plans.Cached(cmd.Context(), cacheLogin, term)
			if err != nil {
				return err
			}
			if !entry.Fetched {
				t.AppendRow(table.Row{term, "never", "", "", ""})
				continue
			}

			fetchedAt := "unknown"
			if !entry.FetchedAt.IsZero() {
				fetchedAt = entry.FetchedAt.Format(time.DateTime)
			}
			if len(entry.Records) == 0 {
				t.AppendRow(table.Row{term, fetchedAt, "(empty)", "", ""})
			}
			for _, r := range entry.Records {
				t.AppendRow(table.Row{term, fetchedAt, r.Name, r.Control.String(), r.Hours})
			}
			t.AppendSeparator()
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf("store: %s\n", a.config.Store.Driver)
		return nil
	},
}
