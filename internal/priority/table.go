// Package priority ranks how trustworthy each source is per metric type.
// The ranking encodes domain knowledge once, centrally: a wrist sensor beats a
// phone in a pocket for steps, a ring beats everything for sleep and HRV.
package priority

import "github.com/jtbaccus/datahub-project/internal/domain"

// DefaultPriority is assigned to any (metric, source) pair missing from the
// table. It is strictly lower than every configured value, so an unknown
// source never displaces a configured one.
const DefaultPriority = 10

// Table maps metric type to per-source priorities. Higher wins. A Table is an
// explicit value handed to the aggregator at construction time, not ambient
// global state, so tests can substitute alternate rankings.
type Table struct {
	ranks map[domain.MetricType]map[string]int
}

// New builds a Table from explicit rankings.
func New(ranks map[domain.MetricType]map[string]int) *Table {
	return &Table{ranks: ranks}
}

// Default returns the ranking shipped with datahub.
func Default() *Table {
	return New(map[domain.MetricType]map[string]int{
		domain.MetricSteps: {
			"apple_watch":  100,
			"oura":         80,
			"apple_health": 50, // iPhone, often in a pocket
			"peloton":      30,
		},
		domain.MetricActiveCalories: {
			"apple_watch":  100,
			"peloton":      90, // accurate for workout calories
			"oura":         80,
			"apple_health": 50,
		},
		domain.MetricHeartRate: {
			"apple_watch":  100,
			"oura":         90,
			"peloton":      85,
			"apple_health": 50,
		},
		domain.MetricHRV: {
			"oura":         100,
			"apple_watch":  90,
			"apple_health": 50,
		},
		domain.MetricSleepMinutes: {
			"oura":         100,
			"apple_watch":  80,
			"apple_health": 50,
		},
		domain.MetricDistance: {
			"apple_watch":  100,
			"peloton":      95,
			"oura":         70,
			"apple_health": 50,
		},
	})
}

// Lookup resolves the priority for a source reporting a metric. Unknown
// metrics and unknown sources both resolve to DefaultPriority; aggregation
// never errors on unseen combinations.
func (t *Table) Lookup(metric domain.MetricType, source string) int {
	if t == nil {
		return DefaultPriority
	}
	if sources, ok := t.ranks[metric]; ok {
		if p, ok := sources[source]; ok {
			return p
		}
	}
	return DefaultPriority
}
