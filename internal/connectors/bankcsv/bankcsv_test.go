package bankcsv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

type fakeEntryStore struct {
	seen    map[string]struct{}
	entries []domain.FinancialEntry
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{seen: map[string]struct{}{}}
}

func (s *fakeEntryStore) InsertEntries(_ context.Context, batch []domain.FinancialEntry) (int, error) {
	inserted := 0
	for _, e := range batch {
		key := e.Source + "|" + e.Fingerprint
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.entries = append(s.entries, e)
		inserted++
	}
	return inserted, nil
}

func (s *fakeEntryStore) ListEntries(context.Context, time.Time, time.Time, int) ([]domain.FinancialEntry, error) {
	return s.entries, nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDateFormats(t *testing.T) {
	cases := map[string]time.Time{
		"01/15/2024": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"2024-01-15": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		" 01/15/24 ": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"2024/01/15": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := ParseDate(input)
		require.NoError(t, err, "input %q", input)
		require.Equal(t, want, got, "input %q", input)
	}

	_, err := ParseDate("January 15, 2024")
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"-42.50":      "-42.5",
		"$1,234.56":   "1234.56",
		"($1,234.50)": "-1234.5",
		" -0.01 ":     "-0.01",
	}
	for input, want := range cases {
		got, err := ParseAmount(input)
		require.NoError(t, err, "input %q", input)
		require.True(t, got.Equal(decimal.RequireFromString(want)), "input %q: got %s", input, got)
	}

	_, err := ParseAmount("N/A")
	require.Error(t, err)
}

func TestUnknownFormatRejected(t *testing.T) {
	_, err := New(newFakeEntryStore(), "monzo", nil, "", 10)
	require.Error(t, err)
}

func TestImportChaseCSV(t *testing.T) {
	store := newFakeEntryStore()
	connector, err := New(store, "chase", nil, "Sapphire", 10)
	require.NoError(t, err)

	path := writeCSV(t, "Transaction Date,Description,Amount,Category\n"+
		"01/15/2024,COFFEE SHOP,-4.50,Food & Drink\n"+
		"01/16/2024,PAYCHECK,2500.00,Income\n")

	result, err := connector.ImportFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, result.Added)
	require.Equal(t, 0, result.Skipped)

	require.Len(t, store.entries, 2)
	first := store.entries[0]
	require.Equal(t, "csv_chase", first.Source)
	require.Equal(t, "COFFEE SHOP", first.Description)
	require.Equal(t, "Food & Drink", first.Category)
	require.Equal(t, "Sapphire", first.Account)
	require.True(t, first.Amount.Equal(decimal.RequireFromString("-4.5")))
	require.NotEmpty(t, first.Fingerprint)
}

func TestReimportAddsNothing(t *testing.T) {
	store := newFakeEntryStore()
	connector, err := New(store, "chase", nil, "", 10)
	require.NoError(t, err)

	csv := "Transaction Date,Description,Amount,Category\n" +
		"01/15/2024,COFFEE SHOP,-4.50,Food & Drink\n"
	path := writeCSV(t, csv)

	first, err := connector.ImportFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, domain.SyncResult{Added: 1, Skipped: 0}, first)

	second, err := connector.ImportFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, domain.SyncResult{Added: 0, Skipped: 1}, second,
		"re-importing the same file must not duplicate transactions")
}

func TestMalformedRowsDropped(t *testing.T) {
	store := newFakeEntryStore()
	connector, err := New(store, "chase", nil, "", 10)
	require.NoError(t, err)

	path := writeCSV(t, "Transaction Date,Description,Amount,Category\n"+
		"not-a-date,BAD ROW,-1.00,\n"+
		"01/15/2024,MISSING AMOUNT,,\n"+
		"01/16/2024,GOOD ROW,-2.00,\n")

	result, err := connector.ImportFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, result.Added, "malformed rows count as neither added nor skipped")
	require.Equal(t, 0, result.Skipped)
}

func TestGenericFormatCustomColumns(t *testing.T) {
	store := newFakeEntryStore()
	connector, err := New(store, "generic", &Columns{
		Date:        "When",
		Amount:      "Value",
		Description: "What",
	}, "Checking", 10)
	require.NoError(t, err)

	path := writeCSV(t, "When,What,Value\n2024-01-15,GROCERIES,-80.25\n")

	result, err := connector.ImportFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)
	require.Equal(t, "csv_generic", store.entries[0].Source)
	require.Equal(t, "GROCERIES", store.entries[0].Description)
}

func TestBOMHeaderHandled(t *testing.T) {
	store := newFakeEntryStore()
	connector, err := New(store, "bofa", nil, "", 10)
	require.NoError(t, err)

	path := writeCSV(t, "\uFEFFDate,Description,Amount\n01/15/2024,LUNCH,-12.00\n")

	result, err := connector.ImportFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)
}
