package ingest

import (
	"context"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

// DefaultBatchSize bounds memory for large imports; apple health exports run
// into the hundreds of thousands of rows.
const DefaultBatchSize = 500

// InsertFunc persists a batch and reports how many rows were actually
// materialised. The store treats a (source, fingerprint) collision as a
// silent skip, which is what makes Write idempotent without a separate
// existence check.
type InsertFunc[R any] func(ctx context.Context, batch []R) (int, error)

// Writer is the single idempotent-write path shared by every connector. A
// connector only supplies normalised records with fingerprints already set;
// insert-or-skip is decided atomically by the store.
type Writer[R any] struct {
	insert    InsertFunc[R]
	batchSize int
	buf       []R
	result    domain.SyncResult
}

// NewWriter builds a Writer flushing every batchSize records.
func NewWriter[R any](insert InsertFunc[R], batchSize int) *Writer[R] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer[R]{
		insert:    insert,
		batchSize: batchSize,
		buf:       make([]R, 0, batchSize),
	}
}

// NewMeasurementWriter wires a Writer to the measurement store.
func NewMeasurementWriter(store domain.MeasurementStore, batchSize int) *Writer[domain.Measurement] {
	return NewWriter(store.InsertMeasurements, batchSize)
}

// NewEntryWriter wires a Writer to the financial entry store.
func NewEntryWriter(store domain.EntryStore, batchSize int) *Writer[domain.FinancialEntry] {
	return NewWriter(store.InsertEntries, batchSize)
}

// Write buffers a record, flushing when the batch fills.
func (w *Writer[R]) Write(ctx context.Context, record R) error {
	w.buf = append(w.buf, record)
	if len(w.buf) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush persists buffered records. Each flushed batch is fully committed, so
// an interrupted run leaves previously flushed batches intact.
func (w *Writer[R]) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	inserted, err := w.insert(ctx, w.buf)
	if err != nil {
		return err
	}
	w.result.Added += inserted
	w.result.Skipped += len(w.buf) - inserted
	w.buf = w.buf[:0]
	return nil
}

// Result reports added/skipped tallies for everything flushed so far.
func (w *Writer[R]) Result() domain.SyncResult {
	return w.result
}
