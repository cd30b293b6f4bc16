package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nihanthkethireddy/invite/internal/guests"
	"github.com/nihanthkethireddy/invite/internal/models"
)

func guestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guests",
		Short: "Inspect and edit the guest list",
	}

	var opts guests.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List guests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := a.guests.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printGuests(cmd.OutOrStdout(), all)
		},
	}
	list.Flags().StringVar(&opts.Scope, "scope", "", "Only guests in this scope (all, wedding)")
	list.Flags().StringVar(&opts.RSVP, "rsvp", "", "Only guests with this response (yes, no, maybe, none)")
	list.Flags().StringVarP(&opts.Search, "search", "q", "", "Match name or phone")
	list.Flags().StringVar(&opts.Sort, "sort", guests.SortUpdatedAt, "Sort key (name, phone, rsvp, plusOnes, scope, updatedAt)")
	list.Flags().BoolVar(&opts.Asc, "asc", false, "Sort ascending")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show attendance per scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.guests.Summary(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a guest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.guests.DeleteByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("guest %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, stats, del)
	return cmd
}

func printGuests(w io.Writer, all []models.Guest) error {
	if len(all) == 0 {
		_, err := fmt.Fprintln(w, "No guests found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tRSVP\t+1\tSCOPE\tUPDATED")
	for _, g := range all {
		rsvp := string(g.RSVP)
		if rsvp == "" {
			rsvp = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			g.ID, g.Name, g.Phone, rsvp, g.PlusOnes, g.Scope, g.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func printSummary(w io.Writer, sum models.Summary) {
	for _, scope := range models.Scopes {
		s := sum.For(scope)
		fmt.Fprintf(w, "%s: %d guests, %d responses, %d attending in total\n",
			scope.Label(), s.TotalGuests, s.TotalRSVPs, s.TotalPeople)
		fmt.Fprintf(w, "  yes %d (%d%%)  maybe %d (%d%%)  no %d (%d%%)\n",
			s.Yes, s.YesPercent, s.Maybe, s.MaybePercent, s.No, s.NoPercent)
	}
}
