package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexihash/internal/due"
	"github.com/conorfennell/lexihash/internal/interval"
)

func newDueCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the cards due for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				now := time.Now()
				cards, err := d.Reviews().Due(cmd.Context(), now)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(cards) == 0 {
					fmt.Fprintln(out, "No cards due.")
				} else {
					w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tWORD\tTRANSLATIONS\tLEVEL\tDUE SINCE")
					for _, c := range cards {
						fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
							c.ID, c.Word, strings.Join(c.Translations, ", "), c.Level,
							due.NextReview(c).Local().Format(time.DateTime))
					}
					if err := w.Flush(); err != nil {
						return err
					}
				}

				if days <= 0 {
					return nil
				}
				all, err := d.DB.ListCards(cmd.Context())
				if err != nil {
					return err
				}
				counts, err := due.Forecast(all, now, days)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "\nForecast:")
				for i, n := range counts {
					fmt.Fprintf(out, "  %s  %d\n", now.AddDate(0, 0, i).Format(time.DateOnly), n)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "forecast", 0, "Also show how many cards fall due on each of the next N days")

	return cmd
}

func newLevelsCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Show the review intervals a card passes through",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("n must be positive, got %d", n)
			}
			out := cmd.OutOrStdout()
			for i, level := range interval.Ladder(n) {
				fmt.Fprintf(out, "%2d. level %d: next review after %d days (%s)\n", i+1, level, level, interval.Duration(level))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "count", "n", 10, "Number of levels to show")

	return cmd
}
