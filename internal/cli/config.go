package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/config"
)

var configCmd = LeafCommand{
	Use:   "config KEY [VALUE]",
	Short: "Get or set a settings value (dot notation, e.g. peloton.username)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.OpenDefaultSettings()
		if err != nil {
			return err
		}

		key := args[0]
		w := cmd.OutOrStdout()

		if len(args) == 1 {
			value, ok := settings.Get(key)
			if !ok {
				_, _ = fmt.Fprintln(w, Warning(fmt.Sprintf("%s is not set", key)))
				return nil
			}
			_, _ = fmt.Fprintf(w, "%v\n", value)
			return nil
		}

		if err := settings.Set(key, args[1]); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, Success(fmt.Sprintf("Set %s", key)))
		return nil
	},
}.Build()
