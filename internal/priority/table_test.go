package priority

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

func TestLookupConfiguredPair(t *testing.T) {
	table := Default()

	require.Equal(t, 100, table.Lookup(domain.MetricSteps, "apple_watch"))
	require.Equal(t, 50, table.Lookup(domain.MetricSteps, "apple_health"))
	require.Equal(t, 100, table.Lookup(domain.MetricSleepMinutes, "oura"))
}

func TestLookupUnknownSourceFallsBack(t *testing.T) {
	table := Default()

	require.Equal(t, DefaultPriority, table.Lookup(domain.MetricSteps, "fitbit"))
}

func TestLookupUnknownMetricFallsBack(t *testing.T) {
	table := Default()

	require.Equal(t, DefaultPriority, table.Lookup(domain.MetricType("blood_glucose"), "apple_watch"))
}

func TestUnknownSourceNeverBeatsConfigured(t *testing.T) {
	table := Default()

	for _, source := range []string{"apple_watch", "oura", "apple_health", "peloton"} {
		require.Greater(t, table.Lookup(domain.MetricSteps, source), DefaultPriority,
			"configured source %s must outrank the default", source)
	}
}

func TestNilTableIsUsable(t *testing.T) {
	var table *Table

	require.Equal(t, DefaultPriority, table.Lookup(domain.MetricSteps, "apple_watch"))
}

func TestCustomRanking(t *testing.T) {
	table := New(map[domain.MetricType]map[string]int{
		domain.MetricSteps: {"garmin": 200},
	})

	require.Equal(t, 200, table.Lookup(domain.MetricSteps, "garmin"))
	require.Equal(t, DefaultPriority, table.Lookup(domain.MetricSteps, "apple_watch"))
}
