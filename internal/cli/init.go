package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = LeafCommand{
	Use:   "init",
	Short: "Initialize the datahub database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.repo.Init(cmd.Context()); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(w, Success("Database initialized."))
		_, _ = fmt.Fprintf(w, "%s %s\n", Silent("Postgres:"), rt.cfg.PostgresURL)
		return nil
	},
}.Build()
