// Package bankcsv imports transactions from bank CSV exports.
//
// Bank exports carry no stable row identifier, so each row is fingerprinted
// over its content (date, amount, description); re-importing the same file,
// or overlapping exports, never duplicates a transaction.
package bankcsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/ingest"
	"github.com/jtbaccus/datahub-project/internal/observability"
)

// Columns maps logical fields to CSV header names.
type Columns struct {
	Date        string
	Description string
	Amount      string
	Merchant    string
	Category    string
}

// Formats are the known bank export layouts.
var Formats = map[string]Columns{
	"chase": {
		Date:        "Transaction Date",
		Description: "Description",
		Amount:      "Amount",
		Category:    "Category",
	},
	"bofa": {
		Date:        "Date",
		Description: "Description",
		Amount:      "Amount",
	},
	"apple_card": {
		Date:        "Transaction Date",
		Description: "Description",
		Amount:      "Amount (USD)",
		Merchant:    "Merchant",
		Category:    "Category",
	},
	"amex": {
		Date:        "Date",
		Description: "Description",
		Amount:      "Amount",
		Category:    "Category",
	},
}

var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"01/02/06",
	"02/01/2006",
	"2006/01/02",
}

// ParseDate tries the date layouts banks commonly export.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date: %q", value)
}

// ParseAmount handles currency symbols, thousands separators, and
// parenthesised negatives: "($1,234.50)" -> -1234.50.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	return decimal.NewFromString(cleaned)
}

// Connector imports one CSV file per run.
type Connector struct {
	store       domain.EntryStore
	columns     Columns
	format      string
	accountName string
	batchSize   int
}

// New builds a Connector for a known format, or for "generic" with custom
// column names.
func New(store domain.EntryStore, format string, custom *Columns, accountName string, batchSize int) (*Connector, error) {
	var columns Columns
	switch {
	case format == "generic" && custom != nil:
		columns = *custom
	default:
		known, ok := Formats[format]
		if !ok {
			return nil, fmt.Errorf("unknown bank format: %q", format)
		}
		columns = known
	}
	return &Connector{
		store:       store,
		columns:     columns,
		format:      format,
		accountName: accountName,
		batchSize:   batchSize,
	}, nil
}

// Name implements connectors.FileImporter.
func (c *Connector) Name() string { return "csv_bank" }

// ImportFile streams the CSV through the idempotent writer. Malformed rows
// are dropped without aborting the batch and count as neither added nor
// skipped.
func (c *Connector) ImportFile(ctx context.Context, path string) (domain.SyncResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.SyncResult{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("read header: %w", err)
	}
	index := headerIndex(header)

	source := "csv_" + c.format
	writer := ingest.NewEntryWriter(c.store, c.batchSize)
	malformed := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			malformed++
			continue
		}

		entry, ok := c.parseRow(index, row, source)
		if !ok {
			malformed++
			continue
		}
		if err := writer.Write(ctx, entry); err != nil {
			return writer.Result(), err
		}
	}

	if err := writer.Flush(ctx); err != nil {
		return writer.Result(), err
	}
	observability.RecordIngested(c.Name(), "malformed", malformed)
	return writer.Result(), nil
}

func (c *Connector) parseRow(index map[string]int, row []string, source string) (domain.FinancialEntry, bool) {
	get := func(column string) (string, bool) {
		if column == "" {
			return "", false
		}
		i, ok := index[column]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	rawDate, ok := get(c.columns.Date)
	if !ok || rawDate == "" {
		return domain.FinancialEntry{}, false
	}
	rawAmount, ok := get(c.columns.Amount)
	if !ok || rawAmount == "" {
		return domain.FinancialEntry{}, false
	}

	date, err := ParseDate(rawDate)
	if err != nil {
		return domain.FinancialEntry{}, false
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return domain.FinancialEntry{}, false
	}

	description, _ := get(c.columns.Description)
	merchant, _ := get(c.columns.Merchant)
	category, _ := get(c.columns.Category)

	fingerprint := ingest.ContentFingerprint(date, amount.String(), description)

	return domain.FinancialEntry{
		Date:        date,
		Amount:      amount,
		Description: description,
		Merchant:    merchant,
		Category:    category,
		Account:     c.accountName,
		Source:      source,
		SourceID:    fingerprint,
		Fingerprint: fingerprint,
	}, true
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		// Excel-style exports often prefix the first header with a BOM.
		index[strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")] = i
	}
	return index
}
