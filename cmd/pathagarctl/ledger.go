package main

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/amarpathagar/pathagar-server/internal/service"
)

func newVerifyLedgerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-ledger",
		Short: "Replay every reputation ledger and report scores it does not explain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(injector do.Injector) error {
				reputation := do.MustInvoke[*service.ReputationService](injector)
				drifted, err := reputation.VerifyAll(context.Background())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(drifted) == 0 {
					fmt.Fprintln(out, "All ledgers are consistent")
					return nil
				}
				for _, r := range drifted {
					fmt.Fprintf(out, "%s (%s): stored %d, replayed %d over %d entries",
						r.Username, r.UserID, r.StoredScore, r.ReplayScore, r.Entries)
					if r.BrokenAt != "" {
						fmt.Fprintf(out, ", chain broken at %s", r.BrokenAt)
					}
					fmt.Fprintln(out)
				}
				return fmt.Errorf("%d ledgers drifted", len(drifted))
			})
		},
	}
}
