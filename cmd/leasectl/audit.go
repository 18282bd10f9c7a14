package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/lease-engine/api"
)

func auditCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report tariff gaps of every lease",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			warnings := api.NewContinuityAuditor(store, a.log).RunNow(cmd.Context())
			out := cmd.OutOrStdout()
			if len(warnings) == 0 {
				fmt.Fprintln(out, "All tariff timelines are continuous.")
				return nil
			}
			for _, w := range warnings {
				fmt.Fprintln(out, w.Error())
			}
			if strict {
				return fmt.Errorf("%d lease(s) with tariff gaps", len(warnings))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when gaps are found")
	return cmd
}
