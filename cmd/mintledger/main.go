package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"MintLedger/internal/engine"
	"MintLedger/internal/ingestion"
	"MintLedger/internal/ledger"
	"MintLedger/internal/observability"
	"MintLedger/internal/oracle"
	"MintLedger/internal/persistence"
	"MintLedger/internal/query"
	"MintLedger/internal/registry"
	"MintLedger/internal/server"
	"MintLedger/internal/token"
)

// Config holds all application configuration, loaded from environment
// variables.
type Config struct {
	PostgresURL   string
	NATSURL       string
	HTTPAddr      string
	MigrationsDir string

	BaseDenom          string
	ModuleAddr         string
	CollectorAddr      string
	OwnerAddr          string
	FactoryAddr        string
	ProtocolFeeRate    int64
	PriceExpireSeconds int64

	PersistChanSize  int
	PublishChanSize  int
	PersistBatchSize int
	PersistFlush     time.Duration
}

func DefaultConfig() Config {
	return Config{
		PostgresURL:   os.Getenv("MINT_POSTGRES_DSN"), // empty disables persistence
		NATSURL:       os.Getenv("MINT_NATS_URL"),     // empty disables the broker
		HTTPAddr:      envOrDefault("MINT_HTTP_ADDR", ":8080"),
		MigrationsDir: envOrDefault("MINT_MIGRATIONS_DIR", "migrations"),

		BaseDenom:          envOrDefault("MINT_BASE_DENOM", "uusd"),
		ModuleAddr:         envOrDefault("MINT_MODULE_ADDR", "mint_module"),
		CollectorAddr:      envOrDefault("MINT_COLLECTOR_ADDR", "mint_collector"),
		OwnerAddr:          envOrDefault("MINT_OWNER_ADDR", "mint_owner"),
		FactoryAddr:        envOrDefault("MINT_FACTORY_ADDR", "mint_factory"),
		ProtocolFeeRate:    int64(envIntOrDefault("MINT_PROTOCOL_FEE_RATE", 15_000)), // 1.5%
		PriceExpireSeconds: int64(envIntOrDefault("MINT_PRICE_EXPIRE_SECONDS", 60)),

		PersistChanSize:  envIntOrDefault("MINT_PERSIST_CHAN_SIZE", 1024),
		PublishChanSize:  envIntOrDefault("MINT_PUBLISH_CHAN_SIZE", 2048),
		PersistBatchSize: envIntOrDefault("MINT_PERSIST_BATCH_SIZE", 50),
		PersistFlush:     10 * time.Millisecond,
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("INFO: MintLedger starting...")

	cfg := DefaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	logger := observability.NewLogger("mintledger")
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Core state ---
	priceStore := oracle.NewStore()
	priceClient := oracle.NewClient(priceStore, cfg.BaseDenom)
	assetRegistry := registry.NewRegistry()
	book := ledger.NewBook()
	bank := token.NewInMemoryBank()

	mintEngine := engine.New(engine.Config{
		BaseDenom:          cfg.BaseDenom,
		ModuleAddr:         cfg.ModuleAddr,
		CollectorAddr:      cfg.CollectorAddr,
		Owner:              cfg.OwnerAddr,
		Factory:            cfg.FactoryAddr,
		ProtocolFeeRate:    cfg.ProtocolFeeRate,
		PriceExpireSeconds: cfg.PriceExpireSeconds,
	}, assetRegistry, book, priceClient, bank, observability.NewLogger("engine"), metrics)

	errChan := make(chan error, 8)

	// --- Postgres (optional) ---
	var persistChan chan engine.Record
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Fatalf("FATAL: postgres open: %v", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("FATAL: postgres ping: %v", err)
		}
		log.Println("INFO: Postgres connected")

		migrator := persistence.NewMigrator(db, cfg.MigrationsDir)
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("FATAL: run migrations: %v", err)
		}
		log.Println("INFO: migrations applied")

		persistChan = make(chan engine.Record, cfg.PersistChanSize)
		worker := persistence.NewWorker(db, persistChan, cfg.PersistBatchSize, cfg.PersistFlush, metrics)
		go func() {
			errChan <- worker.Run(ctx)
		}()

		assetWriter := persistence.NewOperationWriter(db)
		mintEngine.SetAssetSink(func(assetCfg registry.AssetConfig) {
			if err := assetWriter.SyncAssetConfig(ctx, assetCfg); err != nil {
				log.Printf("WARN: sync asset config %s: %v", assetCfg.Token, err)
			}
		})
	} else {
		log.Println("WARN: MINT_POSTGRES_DSN not set, running without persistence")
	}

	// --- NATS (optional) ---
	var publishChan chan engine.Record
	if cfg.NATSURL != "" {
		nc, js, err := ingestion.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("FATAL: nats connect: %v", err)
		}
		defer nc.Close()
		log.Println("INFO: NATS connected")

		if err := ingestion.EnsureStreams(ctx, js); err != nil {
			log.Fatalf("FATAL: ensure NATS streams: %v", err)
		}

		priceSub := ingestion.NewPriceSubscriber(js, priceStore, observability.NewLogger("prices"), metrics)
		if err := priceSub.Subscribe(ctx); err != nil {
			log.Fatalf("FATAL: subscribe prices: %v", err)
		}
		defer priceSub.Stop()

		publishChan = make(chan engine.Record, cfg.PublishChanSize)
		publisher := ingestion.NewOutboundPublisher(js, publishChan, observability.NewLogger("publisher"))
		go func() {
			errChan <- publisher.Run(ctx)
		}()
	} else {
		log.Println("WARN: MINT_NATS_URL not set, price feed via HTTP only")
	}

	mintEngine.SetSinks(persistChan, publishChan)

	// --- HTTP server ---
	queryService := query.NewService(mintEngine, assetRegistry)
	httpServer := server.New(cfg.HTTPAddr, mintEngine, queryService, priceStore, healthChecker, metrics, observability.NewLogger("http"))
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	healthChecker.SetReady(true)
	logger.Info().Str("http_addr", cfg.HTTPAddr).Str("base_denom", cfg.BaseDenom).Msg("mintledger ready")

	select {
	case sig := <-sigChan:
		log.Printf("INFO: received signal %v, shutting down", sig)
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			log.Printf("ERROR: component failed: %v", err)
		}
	}

	healthChecker.SetReady(false)
	cancel()
	time.Sleep(200 * time.Millisecond) // let workers flush
	log.Println("INFO: MintLedger stopped")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
