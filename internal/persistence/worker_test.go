package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"MintLedger/internal/engine"
	"MintLedger/internal/persistence"
	"MintLedger/internal/testutil"
)

func TestWorker_FlushesOnShutdown_Integration(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	if err := persistence.NewMigrator(db, "../../migrations").Up(context.Background()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	// Oversized batch and a long flush timeout: nothing can flush until
	// the shutdown path runs.
	input := make(chan engine.Record, 16)
	worker := persistence.NewWorker(db, input, 100, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- worker.Run(ctx)
	}()

	input <- testRecord(engine.OpOpenPosition, 1)
	input <- testRecord(engine.OpDeposit, 1)
	input <- testRecord(engine.OpWithdraw, 1)

	// Give the worker a moment to drain the channel into its batch.
	time.Sleep(100 * time.Millisecond)
	cancel()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("worker: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM mint.operations").Scan(&count); err != nil {
		t.Fatalf("count operations: %v", err)
	}
	if count != 3 {
		t.Errorf("operations = %d, want 3 flushed on shutdown", count)
	}
}
