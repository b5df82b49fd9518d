package cli

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":        "$0.00",
		"4.5":      "$4.50",
		"-42.5":    "-$42.50",
		"1234.56":  "$1,234.56",
		"-1234567": "-$1,234,567.00",
	}
	for input, want := range cases {
		got := formatMoney(decimal.RequireFromString(input))
		require.Equal(t, want, got, "input %s", input)
	}
}

func TestFormatCount(t *testing.T) {
	cases := map[float64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		8523.7:   "8,524",
		-1234567: "-1,234,567",
	}
	for input, want := range cases {
		require.Equal(t, want, formatCount(input), "input %v", input)
	}
}

func TestSinceFromDays(t *testing.T) {
	require.True(t, sinceFromDays(0).IsZero())
	require.True(t, sinceFromDays(-5).IsZero())

	since := sinceFromDays(7)
	require.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -7), since, time.Minute)
}
