package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for MintLedger.
type Metrics struct {
	// --- Engine operations ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec

	// --- Ledger state ---
	OpenPositions     prometheus.Gauge
	NextPositionIndex prometheus.Gauge
	FeesCollected     *prometheus.CounterVec
	CollateralLocked  *prometheus.GaugeVec

	// --- Price feed ---
	PriceUpdates *prometheus.CounterVec
	PriceValue   *prometheus.GaugeVec

	// --- Persistence ---
	PersistOpsWritten prometheus.Counter
	PersistErrors     prometheus.Counter
	PersistBatchDur   prometheus.Histogram

	// --- Outbound publishing ---
	PublishDrops prometheus.Counter

	// --- HTTP API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_ops_applied_total",
			Help: "Ledger operations successfully applied",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_ops_rejected_total",
			Help: "Ledger operations rejected, by operation and reason",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mint_op_duration_seconds",
			Help:    "Time to apply a single ledger operation",
			Buckets: opBuckets,
		}, []string{"op"}),

		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mint_open_positions",
			Help: "Number of open positions in the ledger",
		}),

		NextPositionIndex: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mint_next_position_index",
			Help: "Next position index to be assigned",
		}),

		FeesCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_fees_collected_total",
			Help: "Protocol fees routed to the collector, by denom (fixed-point units)",
		}, []string{"denom"}),

		CollateralLocked: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mint_collateral_locked",
			Help: "Collateral held by the mint module, by denom (fixed-point units)",
		}, []string{"denom"}),

		PriceUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_price_updates_total",
			Help: "Oracle price updates accepted into the store",
		}, []string{"asset"}),

		PriceValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mint_price_value",
			Help: "Latest oracle price, by asset (fixed-point units)",
		}, []string{"asset"}),

		PersistOpsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mint_persist_ops_written_total",
			Help: "Operation rows written to Postgres",
		}),

		PersistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mint_persist_errors_total",
			Help: "Postgres write errors",
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mint_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mint_publish_drops_total",
			Help: "Outbound events dropped because the publish channel was full",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_query_requests_total",
			Help: "HTTP API requests, by endpoint and status",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mint_query_duration_seconds",
			Help:    "HTTP API request duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"endpoint"}),
	}
}
