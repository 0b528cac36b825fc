package persistence

import (
	"context"
	"database/sql"
	"log"
	"time"

	"MintLedger/internal/engine"
	"MintLedger/internal/observability"
)

// Worker drains the engine's persist channel and batch-writes operation
// records to Postgres, then syncs the mirrored position rows.
// The persist channel uses BLOCKING sends from the engine, so if this
// worker falls behind, operations stall — no record is ever lost.
type Worker struct {
	writer       *OperationWriter
	inputChan    <-chan engine.Record
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewWorker(
	db *sql.DB,
	inputChan <-chan engine.Record,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		writer:       NewOperationWriter(db),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the worker loop. It batches incoming records and flushes
// either when the batch is full or the flush timeout expires.
// Blocks until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	batch := make([]engine.Record, 0, w.batchSize)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				// Shutdown flush runs on a fresh context: ctx is done.
				if err := w.flush(context.Background(), batch); err != nil {
					log.Printf("ERROR: final flush failed: %v", err)
				}
			}
			return ctx.Err()

		case rec, ok := <-w.inputChan:
			if !ok {
				if len(batch) > 0 {
					if err := w.flush(context.Background(), batch); err != nil {
						log.Printf("ERROR: final flush failed: %v", err)
					}
				}
				return nil
			}

			batch = append(batch, rec)

			if len(batch) >= w.batchSize {
				if err := w.flushWithRetry(ctx, batch); err != nil {
					log.Printf("ERROR: batch flush failed: %v", err)
				}
				batch = batch[:0]
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				if err := w.flushWithRetry(ctx, batch); err != nil {
					log.Printf("ERROR: timeout flush failed: %v", err)
				}
				batch = batch[:0]
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff until the write
// succeeds or the context is cancelled. The worker never drops records.
func (w *Worker) flushWithRetry(ctx context.Context, batch []engine.Record) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: persistence retry attempt %d (backoff=%v, records=%d)",
				attempt, backoff, len(batch))
			select {
			case <-ctx.Done():
				// One last attempt off the cancelled context so a
				// shutdown mid-retry does not drop the batch.
				return w.flush(context.Background(), batch)
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := w.flush(ctx, batch)
		if err == nil {
			return nil
		}

		if w.metrics != nil {
			w.metrics.PersistErrors.Inc()
		}
		log.Printf("WARN: persistence flush failed: %v", err)
	}
}

func (w *Worker) flush(ctx context.Context, batch []engine.Record) error {
	start := time.Now()

	if err := w.writer.WriteOperationBatch(ctx, batch); err != nil {
		return err
	}

	for _, rec := range batch {
		if err := w.writer.SyncPosition(ctx, rec); err != nil {
			return err
		}
	}

	if w.metrics != nil {
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.PersistOpsWritten.Add(float64(len(batch)))
	}
	return nil
}
