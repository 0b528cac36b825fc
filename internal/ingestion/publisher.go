package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"MintLedger/internal/engine"
)

// OutboundPublisher publishes applied operation records to NATS for
// downstream consumers (indexers, alerting, liquidation bots).
// Subjects follow the pattern: mint.ledger.events.{op}
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan engine.Record
	logger    zerolog.Logger
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan engine.Record, logger zerolog.Logger) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
		logger:    logger,
	}
}

// Run starts the publisher loop. Publish failures are non-fatal:
// downstream consumers can reconcile from the operation log.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case rec, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, rec); err != nil {
				op.logger.Warn().Err(err).
					Str("op", rec.Op).Uint64("index", rec.Index).
					Msg("outbound publish failed")
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, rec engine.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	subject := fmt.Sprintf("mint.ledger.events.%s", rec.Op)
	if _, err := op.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
