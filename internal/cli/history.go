package cli

import (
	"fmt"

	"github.com/bcnelson/guacamole-csv-importer/internal/ui"
	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.HistoryEnabled() {
				return fmt.Errorf("run history is disabled (DB_DRIVER=none)")
			}
			svc, closeStore, err := a.newService(true)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			if runID != "" {
				outcomes, err := svc.Outcomes(cmd.Context(), runID)
				if err != nil {
					return fmt.Errorf("loading run %s: %w", runID, err)
				}
				if len(outcomes) == 0 {
					ui.Success(out, "No entries recorded for this run.")
					return nil
				}
				ui.Outcomes(out, outcomes)
				return nil
			}

			runs, err := svc.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			ui.History(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the failed entries of one run")
	return cmd
}
