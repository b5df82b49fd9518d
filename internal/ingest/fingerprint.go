// Package ingest implements the write-time half of datahub's correctness
// story: stable fingerprints for incoming records and an idempotent batched
// writer every connector funnels through.
package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// contentFingerprintLen is how many hex characters of the digest are kept.
// Stored fingerprints depend on this value; changing it would make every
// existing record look new on reimport.
const contentFingerprintLen = 16

// SourceFingerprint wraps a durable identifier supplied by the originating
// system. Namespacing by source keeps fingerprints globally unique even when
// two systems reuse the same numeric IDs.
func SourceFingerprint(source, nativeID string) string {
	return fmt.Sprintf("%s_%s", source, nativeID)
}

// WithSuffix derives a per-fact identifier from one source event, so each
// fact extracted from the event (calories, distance, heart rate, ...) is
// independently idempotent.
func WithSuffix(nativeID, suffix string) string {
	return fmt.Sprintf("%s_%s", nativeID, suffix)
}

// ContentFingerprint digests the semantic content of a record that has no
// durable source identifier (bank CSV rows, apple health samples). Identical
// content always produces the same fingerprint; changing any field, including
// a sub-cent amount difference, produces a different one.
func ContentFingerprint(ts time.Time, amount, description string) string {
	content := fmt.Sprintf("%s|%s|%s", ts.UTC().Format("2006-01-02T15:04:05"), amount, description)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:contentFingerprintLen]
}

// ValueFingerprint is ContentFingerprint for numeric measurement values.
func ValueFingerprint(ts time.Time, value float64, label string) string {
	return ContentFingerprint(ts, strconv.FormatFloat(value, 'g', -1, 64), label)
}
