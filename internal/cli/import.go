package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/connectors/applehealth"
	"github.com/jtbaccus/datahub-project/internal/connectors/bankcsv"
	"github.com/jtbaccus/datahub-project/internal/domain"
)

var importCmd = GroupCommand{
	Use:   "import",
	Short: "Import data from local export files",
	Subcommands: []*cobra.Command{
		importAppleHealthCmd,
		importBankCSVCmd,
	},
}.Build()

var importAppleHealthCmd = LeafCommand{
	Use:   "apple-health FILE",
	Short: "Import an Apple Health export.xml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		connector := applehealth.New(rt.repo, rt.cfg.BatchSize)
		log, err := rt.runner.RunImport(cmd.Context(), connector, args[0])
		if err != nil {
			return err
		}
		printSyncOutcome(cmd, log)
		return nil
	},
}.Build()

var importBankCSVCmd = LeafCommand{
	Use:   "bank-csv FILE",
	Short: "Import a bank CSV export",
	Args:  cobra.ExactArgs(1),
	StrFlags: []StringFlag{
		{Name: "format", Usage: "bank format: chase, bofa, apple_card, amex, generic", Default: "chase"},
		{Name: "account", Usage: "account name for labeling"},
		{Name: "date-col", Usage: "date column name (generic format)"},
		{Name: "amount-col", Usage: "amount column name (generic format)"},
		{Name: "desc-col", Usage: "description column name (generic format)"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		format, _ := cmd.Flags().GetString("format")
		account, _ := cmd.Flags().GetString("account")

		var custom *bankcsv.Columns
		if format == "generic" {
			dateCol, _ := cmd.Flags().GetString("date-col")
			amountCol, _ := cmd.Flags().GetString("amount-col")
			descCol, _ := cmd.Flags().GetString("desc-col")
			if dateCol == "" || amountCol == "" {
				return fmt.Errorf("generic format requires --date-col and --amount-col")
			}
			custom = &bankcsv.Columns{Date: dateCol, Amount: amountCol, Description: descCol}
		}

		connector, err := bankcsv.New(rt.repo, format, custom, account, rt.cfg.BatchSize)
		if err != nil {
			return err
		}
		log, err := rt.runner.RunImport(cmd.Context(), connector, args[0])
		if err != nil {
			return err
		}
		printSyncOutcome(cmd, log)
		return nil
	},
}.Build()

func printSyncOutcome(cmd *cobra.Command, log domain.SyncLog) {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "%s %s added, %s skipped (already imported)\n",
		Success(log.Connector+":"),
		Primary(fmt.Sprintf("%d", log.RecordsAdded)),
		Silent(fmt.Sprintf("%d", log.RecordsSkipped)),
	)
}
