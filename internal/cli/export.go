package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

// exportRecord is the flattened shape written to JSON and CSV exports.
type exportRecord struct {
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Source    string  `json:"source"`
}

var exportCmd = LeafCommand{
	Use:   "export",
	Short: "Export raw measurements to JSON or CSV",
	StrFlags: []StringFlag{
		{Name: "format", Usage: "output format: json or csv", Default: "json"},
		{Name: "type", Usage: "filter by metric type"},
		{Name: "output", Usage: "output file path"},
	},
	IntFlags: []IntFlag{
		{Name: "days", Usage: "days of data to export", Default: 30},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "csv" {
			return fmt.Errorf("unknown format %q: want json or csv", format)
		}
		metricFlag, _ := cmd.Flags().GetString("type")
		days, _ := cmd.Flags().GetInt("days")
		output, _ := cmd.Flags().GetString("output")

		records, err := rt.repo.ExportMeasurements(cmd.Context(), domain.MetricType(metricFlag), sinceFromDays(days))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(records) == 0 {
			_, _ = fmt.Fprintln(w, Warning("No data found to export."))
			return nil
		}

		data := make([]exportRecord, 0, len(records))
		for _, m := range records {
			data = append(data, exportRecord{
				Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
				Type:      string(m.MetricType),
				Value:     m.Value,
				Unit:      m.Unit,
				Source:    m.Source,
			})
		}

		if output == "" {
			suffix := ""
			if metricFlag != "" {
				suffix = "_" + metricFlag
			}
			output = fmt.Sprintf("datahub_export%s_%s.%s", suffix, time.Now().UTC().Format("20060102_150405"), format)
		}

		if format == "json" {
			raw, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, raw, 0o644); err != nil {
				return err
			}
		} else {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			writer := csv.NewWriter(f)
			_ = writer.Write([]string{"timestamp", "type", "value", "unit", "source"})
			for _, rec := range data {
				_ = writer.Write([]string{
					rec.Timestamp,
					rec.Type,
					strconv.FormatFloat(rec.Value, 'f', -1, 64),
					rec.Unit,
					rec.Source,
				})
			}
			writer.Flush()
			if err := writer.Error(); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}

		_, _ = fmt.Fprintln(w, Success(fmt.Sprintf("Exported %d records to %s", len(data), output)))
		return nil
	},
}.Build()
