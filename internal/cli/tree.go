package cli

import (
	"fmt"

	"github.com/bcnelson/guacamole-csv-importer/internal/ui"
	"github.com/spf13/cobra"
)

func newTreeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the connection group tree stored in Guacamole",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.FormatError("Invalid configuration", err.Error(), ""))
				return reported(err)
			}
			svc, closeStore, err := a.newService(false)
			if err != nil {
				return err
			}
			defer closeStore()

			t, err := svc.Snapshot(cmd.Context())
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.FormatError("Could not load the connection tree", err.Error(), hintFor(err)))
				return reported(err)
			}
			return ui.Tree(cmd.OutOrStdout(), t)
		},
	}
}
