package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"MintLedger/internal/observability"
	"MintLedger/internal/oracle"
)

// PriceSubscriber consumes oracle quotes from JetStream and feeds the
// in-memory price store. Gaps and replays are tolerated: the store
// keeps only the freshest quote per asset.
type PriceSubscriber struct {
	js      jetstream.JetStream
	store   *oracle.Store
	logger  zerolog.Logger
	metrics *observability.Metrics
	consume jetstream.ConsumeContext
}

func NewPriceSubscriber(js jetstream.JetStream, store *oracle.Store, logger zerolog.Logger, metrics *observability.Metrics) *PriceSubscriber {
	return &PriceSubscriber{
		js:      js,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Subscribe creates the durable price consumer and starts consuming.
func (ps *PriceSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := ps.js.CreateOrUpdateConsumer(ctx, PriceStreamName, jetstream.ConsumerConfig{
		Durable:       PriceConsumer,
		FilterSubject: PriceSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create price consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		update, err := ParsePriceUpdate(msg.Data())
		if err != nil {
			ps.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("bad price message")
			msg.Term()
			return
		}

		ps.store.SetPrice(update.Asset, update.Price, update.Timestamp)

		if ps.metrics != nil {
			ps.metrics.PriceUpdates.WithLabelValues(update.Asset).Inc()
			ps.metrics.PriceValue.WithLabelValues(update.Asset).Set(float64(update.Price))
		}

		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("consume prices: %w", err)
	}

	ps.consume = cc
	return nil
}

// Stop drains the consumer.
func (ps *PriceSubscriber) Stop() {
	if ps.consume != nil {
		ps.consume.Stop()
	}
}
