package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"MintLedger/internal/engine"
	"MintLedger/internal/observability"
	"MintLedger/internal/oracle"
	"MintLedger/internal/query"
)

// Server is the HTTP surface: transaction endpoints driving the mint
// engine, read-only query endpoints, and operational probes.
type Server struct {
	engine  *engine.Engine
	queries *query.Service
	prices  *oracle.Store
	health  *observability.HealthChecker
	metrics *observability.Metrics
	logger  zerolog.Logger
	http    *http.Server
}

func New(addr string, eng *engine.Engine, queries *query.Service, prices *oracle.Store, health *observability.HealthChecker, metrics *observability.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		engine:  eng,
		queries: queries,
		prices:  prices,
		health:  health,
		metrics: metrics,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Get("/healthz", health.LivenessHandler)
	r.Get("/readyz", health.ReadinessHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.instrument)
		r.Post("/tx/open", s.handleOpen)
		r.Post("/tx/deposit", s.handleDeposit)
		r.Post("/tx/withdraw", s.handleWithdraw)
		r.Post("/tx/mint", s.handleMint)
		r.Post("/tx/close", s.handleClose)
		r.Post("/tx/auction", s.handleAuction)

		r.Get("/positions", s.handleListPositions)
		r.Get("/positions/unsafe", s.handleUnsafePositions)
		r.Get("/positions/{index}", s.handleGetPosition)

		r.Get("/assets", s.handleListAssets)
		r.Post("/assets", s.handleRegisterAsset)
		r.Get("/assets/{denom}", s.handleGetAsset)
		r.Put("/assets/{denom}", s.handleUpdateAsset)
		r.Post("/assets/{denom}/migrate", s.handleMigrateAsset)

		r.Get("/prices/{asset}", s.handleGetPrice)
		r.Post("/prices", s.handleSetPrice)
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves HTTP until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.http.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- Transaction endpoints ---

type openRequest struct {
	Sender           string `json:"sender"`
	CollateralToken  string `json:"collateral_token"`
	CollateralAmount int64  `json:"collateral_amount"` // fixed-point, 6 decimals
	AssetToken       string `json:"asset_token"`
	CollateralRatio  int64  `json:"collateral_ratio"` // fixed-point, 6 decimals
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !s.decode(w, r, &req) {
		return
	}

	idx, err := s.engine.OpenPosition(req.Sender, req.CollateralToken, req.CollateralAmount, req.AssetToken, req.CollateralRatio)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]uint64{"index": idx})
}

type adjustRequest struct {
	Sender string `json:"sender"`
	Index  uint64 `json:"index"`
	Token  string `json:"token"`
	Amount int64  `json:"amount"` // fixed-point, 6 decimals
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.Deposit(req.Sender, req.Index, req.Token, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.Withdraw(req.Sender, req.Index, req.Token, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.Mint(req.Sender, req.Index, req.Token, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type closeRequest struct {
	Sender string `json:"sender"`
	Index  uint64 `json:"index"`
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.ClosePosition(req.Sender, req.Index); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type auctionRequest struct {
	Sender string `json:"sender"`
	Index  uint64 `json:"index"`
	Amount int64  `json:"amount"` // max synthetic asset to surrender
}

func (s *Server) handleAuction(w http.ResponseWriter, r *http.Request) {
	var req auctionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.Auction(req.Sender, req.Index, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Query endpoints ---

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errBody("invalid_parameter", "bad position index"))
		return
	}

	view, ok := s.queries.Position(idx)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errBody("position_not_found", "no such position"))
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	asset := r.URL.Query().Get("asset")
	if owner == "" && asset == "" {
		s.writeJSON(w, http.StatusBadRequest, errBody("invalid_parameter", "owner or asset filter required"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.queries.Positions(owner, asset))
}

func (s *Server) handleUnsafePositions(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		s.writeJSON(w, http.StatusBadRequest, errBody("invalid_parameter", "asset filter required"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.queries.UnsafePositions(asset))
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.queries.Assets())
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	view, ok := s.queries.Asset(chi.URLParam(r, "denom"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errBody("not_registered", "no such asset"))
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.queries.Price(chi.URLParam(r, "asset")))
}

// --- Admin endpoints ---

type assetRequest struct {
	Sender             string `json:"sender"`
	Token              string `json:"token"`
	AuctionDiscount    int64  `json:"auction_discount"`     // fixed-point fraction
	MinCollateralRatio int64  `json:"min_collateral_ratio"` // fixed-point ratio
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.RegisterAsset(req.Sender, req.Token, req.AuctionDiscount, req.MinCollateralRatio); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !s.decode(w, r, &req) {
		return
	}
	denom := chi.URLParam(r, "denom")
	if err := s.engine.UpdateAsset(req.Sender, denom, req.AuctionDiscount, req.MinCollateralRatio); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type migrateRequest struct {
	Sender   string `json:"sender"`
	EndPrice int64  `json:"end_price"` // fixed-point
}

func (s *Server) handleMigrateAsset(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if !s.decode(w, r, &req) {
		return
	}
	denom := chi.URLParam(r, "denom")
	if err := s.engine.MigrateAsset(req.Sender, denom, req.EndPrice); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

type priceRequest struct {
	Asset     string `json:"asset"`
	Price     int64  `json:"price"`     // fixed-point
	Timestamp int64  `json:"timestamp"` // unix seconds; 0 means now
}

// handleSetPrice mirrors the NATS price subject so the service can run
// without a broker (dev/test deployments).
func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Asset == "" || req.Price < 0 {
		s.writeJSON(w, http.StatusBadRequest, errBody("invalid_parameter", "asset and nonnegative price required"))
		return
	}
	ts := req.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	s.prices.SetPrice(req.Asset, req.Price, ts)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument records per-endpoint request counts and latency, labeled
// by the matched chi route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		if s.metrics == nil {
			return
		}
		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		s.metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(sw.status)).Inc()
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errBody("invalid_parameter", "malformed JSON body"))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errBody(code, msg string) map[string]string {
	return map[string]string{"code": code, "error": msg}
}

// writeError maps engine error kinds to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	reason := engine.ErrorReason(err)

	status := http.StatusInternalServerError
	switch reason {
	case "invalid_parameter", "amount_too_small":
		status = http.StatusBadRequest
	case "unauthorized":
		status = http.StatusForbidden
	case "position_not_found", "not_registered":
		status = http.StatusNotFound
	case "already_registered":
		status = http.StatusConflict
	case "asset_deprecated", "below_minimum_ratio", "position_safe", "transfer_failed":
		status = http.StatusUnprocessableEntity
	case "stale_price", "zero_price":
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("operation failed")
	}
	s.writeJSON(w, status, errBody(reason, err.Error()))
}
