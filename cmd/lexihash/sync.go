package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexihash/internal/sync"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync cards from all sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				report, err := d.Syncer().RunSync(cmd.Context())
				if err != nil {
					return err
				}
				printReport(cmd, report)
				return nil
			})
		},
	}
}

func newAddSourceCmd() *cobra.Command {
	var syncNow bool

	cmd := &cobra.Command{
		Use:   "add-source <path|git-url>",
		Short: "Add a directory or git repository of decks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				syncer := d.Syncer()
				source, err := syncer.AddSource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s source %d: %s\n", source.Type, source.ID, source.Path)
				if !syncNow {
					return nil
				}
				report, err := syncer.SyncSource(cmd.Context(), source)
				if err != nil {
					return err
				}
				printReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&syncNow, "sync", true, "Sync the source right away")

	return cmd
}

func printReport(cmd *cobra.Command, report sync.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Parsed %d cards: %d new, %d examples added, %d orphaned.\n",
		report.Parsed, report.Inserted, report.ExamplesAdded, report.Orphaned)
	if len(report.Errors) > 0 {
		fmt.Fprintln(out, "\nErrors:")
		for _, e := range report.Errors {
			fmt.Fprintf(out, "- %s\n", e)
		}
	}
}
