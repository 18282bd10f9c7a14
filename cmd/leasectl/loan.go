package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/loan"
)

func loanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan schedules and outstanding capital",
	}
	cmd.AddCommand(loanScheduleCmd(a), loanCRDCmd(a))
	return cmd
}

func loanScheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <loan-id>",
		Short: "Regenerate the stored schedule of a loan and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			schedule, err := loan.NewScheduler(store, a.log).Regenerate(cmd.Context(), loan.ID(args[0]))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "#\tDate\tCapital\tInterest\tInsurance\tTotal\tRemaining\t")
			for _, in := range schedule {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					in.Number, in.Date,
					in.Capital.StringFixed(2), in.Interest.StringFixed(2), in.Insurance.StringFixed(2),
					in.Total().StringFixed(2), in.CapitalRemaining.StringFixed(2))
			}
			return w.Flush()
		},
	}
}

func loanCRDCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "crd <loan-id>",
		Short: "Print the capital remaining of a loan at a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := generic.ParseDate(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			l, err := store.Loan(cmd.Context(), loan.ID(args[0]))
			if err != nil {
				return err
			}
			crd := generic.RoundMoney(loan.CapitalRemainingAt(l, date))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", l.ID, date, crd.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
