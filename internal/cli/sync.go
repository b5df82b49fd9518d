package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/connectors/oura"
	"github.com/jtbaccus/datahub-project/internal/connectors/peloton"
	"github.com/jtbaccus/datahub-project/internal/connectors/simplefin"
	"github.com/jtbaccus/datahub-project/internal/connectors/tonal"
)

var syncCmd = GroupCommand{
	Use:   "sync",
	Short: "Sync data from connected services",
	Subcommands: []*cobra.Command{
		syncOuraCmd,
		syncPelotonCmd,
		syncTonalCmd,
		syncSimplefinCmd,
	},
}.Build()

var syncOuraCmd = LeafCommand{
	Use:   "oura",
	Short: "Sync sleep, readiness, and activity from Oura",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "days of history to sync", Default: 30},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		days, _ := cmd.Flags().GetInt("days")
		connector := oura.New(rt.repo, rt.settings.GetString("oura.token"), rt.cfg.BatchSize)

		log, err := rt.runner.RunSync(cmd.Context(), connector, sinceFromDays(days))
		if err != nil {
			return err
		}
		printSyncOutcome(cmd, log)
		return nil
	},
}.Build()

var syncPelotonCmd = LeafCommand{
	Use:   "peloton",
	Short: "Sync workouts from Peloton",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "only sync workouts from the last N days (0 = all)", Default: 0},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		days, _ := cmd.Flags().GetInt("days")
		connector := peloton.New(
			rt.repo,
			rt.settings.GetString("peloton.username"),
			rt.settings.GetString("peloton.password"),
			rt.cfg.BatchSize,
		)

		log, err := rt.runner.RunSync(cmd.Context(), connector, sinceFromDays(days))
		if err != nil {
			return err
		}
		printSyncOutcome(cmd, log)
		return nil
	},
}.Build()

var syncTonalCmd = LeafCommand{
	Use:   "tonal",
	Short: "Sync strength workouts from Tonal",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "only sync workouts from the last N days (0 = all)", Default: 0},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		days, _ := cmd.Flags().GetInt("days")
		connector := tonal.New(
			rt.repo,
			rt.settings.GetString("tonal.email"),
			rt.settings.GetString("tonal.password"),
			rt.cfg.BatchSize,
		)

		log, err := rt.runner.RunSync(cmd.Context(), connector, sinceFromDays(days))
		if err != nil {
			return err
		}
		printSyncOutcome(cmd, log)
		return nil
	},
}.Build()

var syncSimplefinCmd = LeafCommand{
	Use:   "simplefin",
	Short: "Sync bank transactions from SimpleFIN Bridge",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "days of history to sync", Default: 30},
	},
	StrFlags: []StringFlag{
		{Name: "setup", Usage: "claim a setup token and store the access URL"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		w := cmd.OutOrStdout()

		if token, _ := cmd.Flags().GetString("setup"); token != "" {
			accessURL, err := simplefin.ClaimSetupToken(cmd.Context(), token)
			if err != nil {
				return err
			}
			if err := rt.settings.Set("simplefin.access_url", accessURL); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(w, Success("SimpleFIN setup complete. Access URL stored."))
		}

		days, _ := cmd.Flags().GetInt("days")
		connector := simplefin.New(rt.repo, rt.settings.GetString("simplefin.access_url"), rt.cfg.BatchSize)

		log, err := rt.runner.RunSync(cmd.Context(), connector, sinceFromDays(days))
		if err != nil {
			return err
		}
		printSyncOutcome(cmd, log)
		return nil
	},
}.Build()
