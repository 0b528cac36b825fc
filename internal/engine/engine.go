package engine

import (
	"fmt"
	stdmath "math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"MintLedger/internal/ledger"
	fpmath "MintLedger/internal/math"
	"MintLedger/internal/observability"
	"MintLedger/internal/oracle"
	"MintLedger/internal/registry"
	"MintLedger/internal/token"
)

// Config holds the engine's protocol parameters and privileged identities.
type Config struct {
	BaseDenom          string
	ModuleAddr         string // custody account holding deposited collateral
	CollectorAddr      string // protocol fee sink
	Owner              string // governance identities allowed to manage assets
	Factory            string
	ProtocolFeeRate    int64 // fixed-point fraction carved out of payouts
	PriceExpireSeconds int64 // quotes older than this are unusable; 0 disables the check
}

// Engine is the operation layer over the asset registry, position book,
// price oracle, and token bank. Operations are strictly serialized
// behind a single lock and are all-or-nothing: every precondition and
// price read happens before the first transfer or ledger write.
type Engine struct {
	mu       sync.RWMutex
	cfg      Config
	registry *registry.Registry
	book     *ledger.Book
	prices   *oracle.Client
	bank     token.Bank

	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() int64

	persistChan chan<- Record // blocking; backpressure stalls the engine
	publishChan chan<- Record // best effort; drops are counted

	assetSink func(registry.AssetConfig) // mirrors config changes to storage
}

func New(
	cfg Config,
	reg *registry.Registry,
	book *ledger.Book,
	prices *oracle.Client,
	bank token.Bank,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		cfg:      cfg,
		registry: reg,
		book:     book,
		prices:   prices,
		bank:     bank,
		logger:   logger,
		metrics:  metrics,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// SetClock overrides the engine clock. Test hook.
func (e *Engine) SetClock(now func() int64) {
	e.now = now
}

// SetSinks wires the persistence and outbound publish channels.
func (e *Engine) SetSinks(persist, publish chan<- Record) {
	e.persistChan = persist
	e.publishChan = publish
}

// SetAssetSink wires a callback invoked with the stored config after
// every successful register, update, or migrate.
func (e *Engine) SetAssetSink(sink func(registry.AssetConfig)) {
	e.assetSink = sink
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// --- Pricing ---

// assetPrice returns (value, lastUpdated) for a denom. Migrated assets
// are frozen at their end price and never go stale; the base denom is
// handled inside the oracle client.
func (e *Engine) assetPrice(denom string) (int64, int64) {
	if cfg := e.registry.Get(denom); cfg.Migrated() {
		return cfg.EndPrice, stdmath.MaxInt64
	}
	return e.prices.Price(denom)
}

// relativePrice returns the price of quote denominated in base:
// price(quote) / price(base), truncated toward zero.
func (e *Engine) relativePrice(quote, base string) (int64, error) {
	qp, qt := e.assetPrice(quote)
	bp, bt := e.assetPrice(base)

	if qp == 0 || bp == 0 {
		return 0, fmt.Errorf("%s/%s: %w", quote, base, ErrZeroPrice)
	}

	if expire := e.cfg.PriceExpireSeconds; expire > 0 {
		cutoff := e.now() - expire
		if qt < cutoff || bt < cutoff {
			return 0, fmt.Errorf("%s/%s: %w", quote, base, ErrStalePrice)
		}
	}

	return fpmath.DivFixed(qp, bp), nil
}

// positionUnsafe reports whether a position violates its asset's
// minimum collateral ratio at the live relative price:
// collateral < debt * rel(asset, collateral) * minRatio.
func (e *Engine) positionUnsafe(p ledger.Position) (bool, error) {
	rel, err := e.relativePrice(p.AssetToken, p.CollateralToken)
	if err != nil {
		return false, err
	}

	cfg := e.registry.Get(p.AssetToken)
	required := fpmath.MulFixed(fpmath.MulFixed(p.AssetAmount, rel), cfg.MinCollateralRatio)
	return p.CollateralAmount < required, nil
}

// --- Registry administration (onlyFactoryOrOwner) ---

func (e *Engine) authorized(sender string) bool {
	return sender != "" && (sender == e.cfg.Owner || sender == e.cfg.Factory)
}

func (e *Engine) RegisterAsset(sender, denom string, discount, minRatio int64) error {
	if !e.authorized(sender) {
		return fmt.Errorf("register asset %s: %w", denom, ErrUnauthorized)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.Register(denom, discount, minRatio); err != nil {
		return err
	}
	e.logger.Info().Str("asset", denom).
		Str("discount", fpmath.Format(discount)).
		Str("min_ratio", fpmath.Format(minRatio)).
		Msg("asset registered")
	e.syncAsset(denom)
	return nil
}

func (e *Engine) UpdateAsset(sender, denom string, discount, minRatio int64) error {
	if !e.authorized(sender) {
		return fmt.Errorf("update asset %s: %w", denom, ErrUnauthorized)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.Update(denom, discount, minRatio); err != nil {
		return err
	}
	e.syncAsset(denom)
	return nil
}

func (e *Engine) MigrateAsset(sender, denom string, endPrice int64) error {
	if !e.authorized(sender) {
		return fmt.Errorf("migrate asset %s: %w", denom, ErrUnauthorized)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.Migrate(denom, endPrice); err != nil {
		return err
	}
	e.logger.Info().Str("asset", denom).
		Str("end_price", fpmath.Format(endPrice)).
		Msg("asset migrated")
	e.syncAsset(denom)
	return nil
}

func (e *Engine) syncAsset(denom string) {
	if e.assetSink != nil {
		e.assetSink(e.registry.Get(denom))
	}
}

// --- Operations ---

// OpenPosition creates a CDP: pulls collateral from sender, mints
// collateral * rel(collateral, asset) / collateralRatio of the
// synthetic asset to sender, and returns the new position index.
func (e *Engine) OpenPosition(sender, collateralToken string, collateralAmount int64, assetToken string, collateralRatio int64) (uint64, error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.openPosition(sender, collateralToken, collateralAmount, assetToken, collateralRatio)
	e.finishOp(OpOpenPosition, start, err)
	return idx, err
}

func (e *Engine) openPosition(sender, collateralToken string, collateralAmount int64, assetToken string, collateralRatio int64) (uint64, error) {
	if sender == "" || collateralToken == "" || assetToken == "" {
		return 0, fmt.Errorf("open position: %w", ErrInvalidParameter)
	}
	if collateralAmount <= 0 || collateralRatio <= 0 {
		return 0, fmt.Errorf("open position: nonpositive amount or ratio: %w", ErrInvalidParameter)
	}

	cfg := e.registry.Get(assetToken)
	if !cfg.Registered() {
		return 0, fmt.Errorf("open position %s: %w", assetToken, ErrNotRegistered)
	}
	if cfg.Migrated() {
		return 0, fmt.Errorf("open position %s: %w", assetToken, ErrAssetDeprecated)
	}
	if collateralRatio < cfg.MinCollateralRatio {
		return 0, fmt.Errorf("ratio %s below minimum %s: %w",
			fpmath.Format(collateralRatio), fpmath.Format(cfg.MinCollateralRatio), ErrBelowMinimumRatio)
	}

	rel, err := e.relativePrice(collateralToken, assetToken)
	if err != nil {
		return 0, err
	}

	mintAmount := fpmath.MulDiv(collateralAmount, rel, collateralRatio)
	if mintAmount <= 0 {
		return 0, fmt.Errorf("open position: mint amount rounds to zero: %w", ErrAmountTooSmall)
	}

	if err := e.bank.Transfer(collateralToken, sender, e.cfg.ModuleAddr, collateralAmount); err != nil {
		return 0, fmt.Errorf("pull collateral: %v: %w", err, ErrTransferFailed)
	}

	if err := e.bank.Mint(assetToken, sender, mintAmount); err != nil {
		// Undo the pull so a refused issue leaves no trace. The book
		// has not been touched yet.
		if refundErr := e.bank.Transfer(collateralToken, e.cfg.ModuleAddr, sender, collateralAmount); refundErr != nil {
			e.logger.Error().Err(refundErr).Str("owner", sender).
				Str("collateral", collateralToken).
				Msg("collateral refund failed after rejected issue")
		}
		return 0, fmt.Errorf("issue %s: %v: %w", assetToken, err, ErrTransferFailed)
	}
	e.trackCollateral(collateralToken, collateralAmount)

	pos := ledger.Position{
		Owner:            sender,
		CollateralToken:  collateralToken,
		CollateralAmount: collateralAmount,
		AssetToken:       assetToken,
		AssetAmount:      mintAmount,
	}
	idx := e.book.Insert(pos)
	pos.Index = idx

	e.logger.Info().Uint64("index", idx).Str("owner", sender).
		Str("collateral", collateralToken).Str("asset", assetToken).
		Str("mint_amount", fpmath.Format(mintAmount)).
		Msg("position opened")

	e.emit(Record{
		Op: OpOpenPosition, Sender: sender, Index: idx,
		Position: pos, Amount: collateralAmount, MintAmount: mintAmount,
	})
	return idx, nil
}

// Deposit adds collateral to an existing position.
func (e *Engine) Deposit(sender string, index uint64, collateralToken string, amount int64) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.deposit(sender, index, collateralToken, amount)
	e.finishOp(OpDeposit, start, err)
	return err
}

func (e *Engine) deposit(sender string, index uint64, collateralToken string, amount int64) error {
	pos, err := e.ownedPosition(sender, index)
	if err != nil {
		return err
	}
	if collateralToken != pos.CollateralToken {
		return fmt.Errorf("deposit %s into %s position: %w", collateralToken, pos.CollateralToken, ErrInvalidParameter)
	}
	if amount <= 0 {
		return fmt.Errorf("deposit: nonpositive amount: %w", ErrInvalidParameter)
	}
	if e.registry.Get(pos.AssetToken).Migrated() {
		return fmt.Errorf("deposit %s: %w", pos.AssetToken, ErrAssetDeprecated)
	}

	if err := e.bank.Transfer(collateralToken, sender, e.cfg.ModuleAddr, amount); err != nil {
		return fmt.Errorf("pull collateral: %v: %w", err, ErrTransferFailed)
	}
	e.trackCollateral(collateralToken, amount)

	pos.CollateralAmount += amount
	e.book.Save(pos)

	e.emit(Record{Op: OpDeposit, Sender: sender, Index: index, Position: pos, Amount: amount})
	return nil
}

// Withdraw removes collateral from a position, keeping it solvent.
// A protocol fee is carved out of the withdrawn amount.
func (e *Engine) Withdraw(sender string, index uint64, collateralToken string, amount int64) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.withdraw(sender, index, collateralToken, amount)
	e.finishOp(OpWithdraw, start, err)
	return err
}

func (e *Engine) withdraw(sender string, index uint64, collateralToken string, amount int64) error {
	pos, err := e.ownedPosition(sender, index)
	if err != nil {
		return err
	}
	if collateralToken != pos.CollateralToken {
		return fmt.Errorf("withdraw %s from %s position: %w", collateralToken, pos.CollateralToken, ErrInvalidParameter)
	}
	if amount <= 0 || amount > pos.CollateralAmount {
		return fmt.Errorf("withdraw amount out of range: %w", ErrInvalidParameter)
	}

	remaining := pos.CollateralAmount - amount

	if pos.AssetAmount > 0 {
		rel, err := e.relativePrice(pos.AssetToken, pos.CollateralToken)
		if err != nil {
			return err
		}
		cfg := e.registry.Get(pos.AssetToken)
		required := fpmath.MulFixed(fpmath.MulFixed(pos.AssetAmount, rel), cfg.MinCollateralRatio)
		if remaining < required {
			return fmt.Errorf("remaining %s below required %s: %w",
				fpmath.Format(remaining), fpmath.Format(required), ErrBelowMinimumRatio)
		}
	}

	fee, err := e.payOut(collateralToken, sender, amount)
	if err != nil {
		return err
	}
	e.trackCollateral(collateralToken, -amount)

	pos.CollateralAmount = remaining
	removed := remaining == 0 && pos.AssetAmount == 0
	if removed {
		e.book.Remove(index)
	} else {
		e.book.Save(pos)
	}

	e.emit(Record{
		Op: OpWithdraw, Sender: sender, Index: index, Position: pos,
		Removed: removed, Amount: amount, Fee: fee, FeeDenom: collateralToken,
	})
	return nil
}

// Mint issues additional synthetic debt against a position's collateral.
func (e *Engine) Mint(sender string, index uint64, assetToken string, amount int64) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.mint(sender, index, assetToken, amount)
	e.finishOp(OpMint, start, err)
	return err
}

func (e *Engine) mint(sender string, index uint64, assetToken string, amount int64) error {
	pos, err := e.ownedPosition(sender, index)
	if err != nil {
		return err
	}
	if assetToken != pos.AssetToken {
		return fmt.Errorf("mint %s against %s position: %w", assetToken, pos.AssetToken, ErrInvalidParameter)
	}
	if amount <= 0 {
		return fmt.Errorf("mint: nonpositive amount: %w", ErrInvalidParameter)
	}

	cfg := e.registry.Get(assetToken)
	if cfg.Migrated() {
		return fmt.Errorf("mint %s: %w", assetToken, ErrAssetDeprecated)
	}

	rel, err := e.relativePrice(assetToken, pos.CollateralToken)
	if err != nil {
		return err
	}

	newDebt := pos.AssetAmount + amount
	required := fpmath.MulFixed(fpmath.MulFixed(newDebt, rel), cfg.MinCollateralRatio)
	if required > pos.CollateralAmount {
		return fmt.Errorf("required collateral %s exceeds %s: %w",
			fpmath.Format(required), fpmath.Format(pos.CollateralAmount), ErrBelowMinimumRatio)
	}

	if err := e.bank.Mint(assetToken, sender, amount); err != nil {
		return fmt.Errorf("issue %s: %v: %w", assetToken, err, ErrTransferFailed)
	}

	pos.AssetAmount = newDebt
	e.book.Save(pos)

	e.emit(Record{Op: OpMint, Sender: sender, Index: index, Position: pos, Amount: amount, MintAmount: amount})
	return nil
}

// ClosePosition burns the full outstanding debt pulled from the owner
// and returns the collateral minus the protocol fee. The position and
// its owner/pair index entry are removed.
func (e *Engine) ClosePosition(sender string, index uint64) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.closePosition(sender, index)
	e.finishOp(OpClosePosition, start, err)
	return err
}

func (e *Engine) closePosition(sender string, index uint64) error {
	pos, err := e.ownedPosition(sender, index)
	if err != nil {
		return err
	}
	if pos.AssetAmount <= 0 || pos.CollateralAmount <= 0 {
		return fmt.Errorf("close: position %d is empty: %w", index, ErrInvalidParameter)
	}

	if err := e.bank.Transfer(pos.AssetToken, sender, e.cfg.ModuleAddr, pos.AssetAmount); err != nil {
		return fmt.Errorf("pull debt: %v: %w", err, ErrTransferFailed)
	}
	if err := e.bank.Burn(pos.AssetToken, e.cfg.ModuleAddr, pos.AssetAmount); err != nil {
		return fmt.Errorf("burn %s: %v: %w", pos.AssetToken, err, ErrTransferFailed)
	}

	fee, err := e.payOut(pos.CollateralToken, sender, pos.CollateralAmount)
	if err != nil {
		return err
	}

	burned := pos.AssetAmount
	returned := pos.CollateralAmount
	e.trackCollateral(pos.CollateralToken, -returned)
	e.book.Remove(index)

	pos.CollateralAmount = 0
	pos.AssetAmount = 0

	e.logger.Info().Uint64("index", index).Str("owner", sender).
		Str("burned", fpmath.Format(burned)).
		Str("returned", fpmath.Format(returned)).
		Msg("position closed")

	e.emit(Record{
		Op: OpClosePosition, Sender: sender, Index: index, Position: pos,
		Removed: true, Amount: returned, MintAmount: burned,
		Fee: fee, FeeDenom: pos.CollateralToken,
	})
	return nil
}

// Auction liquidates an undercollateralized position. Anyone may call.
// The liquidator surrenders synthetic asset (capped by the request, the
// collateral at the discounted price, and the outstanding debt) and
// receives collateral at the discounted price, minus the protocol fee.
func (e *Engine) Auction(sender string, index uint64, requested int64) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.auction(sender, index, requested)
	e.finishOp(OpAuction, start, err)
	return err
}

func (e *Engine) auction(sender string, index uint64, requested int64) error {
	if sender == "" || requested <= 0 {
		return fmt.Errorf("auction: %w", ErrInvalidParameter)
	}

	pos, ok := e.book.Get(index)
	if !ok {
		return fmt.Errorf("auction: position %d: %w", index, ErrPositionNotFound)
	}

	unsafe, err := e.positionUnsafe(pos)
	if err != nil {
		return err
	}
	if !unsafe {
		return fmt.Errorf("auction: position %d: %w", index, ErrPositionSafe)
	}

	cfg := e.registry.Get(pos.AssetToken)
	denom := fpmath.Scale - cfg.AuctionDiscount
	if denom <= 0 {
		return fmt.Errorf("auction: discount consumes entire price: %w", ErrInvalidParameter)
	}

	rel, err := e.relativePrice(pos.AssetToken, pos.CollateralToken)
	if err != nil {
		return err
	}

	// Collateral paid per unit of surrendered asset.
	discountedPrice := fpmath.DivFixed(rel, denom)
	if discountedPrice <= 0 {
		return fmt.Errorf("auction: discounted price rounds to zero: %w", ErrAmountTooSmall)
	}

	liquidated := requested
	if byCollateral := fpmath.DivFixed(pos.CollateralAmount, discountedPrice); byCollateral < liquidated {
		liquidated = byCollateral
	}
	if pos.AssetAmount < liquidated {
		liquidated = pos.AssetAmount
	}
	if liquidated <= 0 {
		return fmt.Errorf("auction: liquidation rounds to zero: %w", ErrAmountTooSmall)
	}

	returnCollateral := fpmath.MulFixed(liquidated, discountedPrice)

	if err := e.bank.Transfer(pos.AssetToken, sender, e.cfg.ModuleAddr, liquidated); err != nil {
		return fmt.Errorf("pull asset: %v: %w", err, ErrTransferFailed)
	}
	if err := e.bank.Burn(pos.AssetToken, e.cfg.ModuleAddr, liquidated); err != nil {
		return fmt.Errorf("burn %s: %v: %w", pos.AssetToken, err, ErrTransferFailed)
	}

	fee, err := e.payOut(pos.CollateralToken, sender, returnCollateral)
	if err != nil {
		return err
	}
	e.trackCollateral(pos.CollateralToken, -returnCollateral)

	pos.CollateralAmount -= returnCollateral
	pos.AssetAmount -= liquidated

	removed := false
	switch {
	case pos.CollateralAmount == 0:
		// Collateral exhausted; any residual debt is socialized.
		e.book.Remove(index)
		removed = true

	case pos.AssetAmount == 0:
		// Debt cleared with collateral left over: hand the residual
		// back to the original owner and retire the position.
		if err := e.bank.Transfer(pos.CollateralToken, e.cfg.ModuleAddr, pos.Owner, pos.CollateralAmount); err != nil {
			return fmt.Errorf("return residual collateral: %v: %w", err, ErrTransferFailed)
		}
		e.trackCollateral(pos.CollateralToken, -pos.CollateralAmount)
		e.book.Remove(index)
		removed = true

	default:
		e.book.Save(pos)
	}

	e.logger.Info().Uint64("index", index).Str("liquidator", sender).
		Str("liquidated", fpmath.Format(liquidated)).
		Str("return_collateral", fpmath.Format(returnCollateral)).
		Bool("removed", removed).
		Msg("position auctioned")

	e.emit(Record{
		Op: OpAuction, Sender: sender, Index: index, Position: pos,
		Removed: removed, Amount: returnCollateral, MintAmount: liquidated,
		Fee: fee, FeeDenom: pos.CollateralToken,
	})
	return nil
}

// --- Queries ---

// Position returns the position at index.
func (e *Engine) Position(index uint64) (ledger.Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Get(index)
}

// Positions enumerates open positions filtered by owner and/or asset.
func (e *Engine) Positions(owner, asset string) []ledger.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Query(owner, asset)
}

// LookupPair returns the recorded position index for an
// (owner, collateral, asset) triple.
func (e *Engine) LookupPair(owner, collateralToken, assetToken string) (uint64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.LookupPair(owner, collateralToken, assetToken)
}

// UnsafePositions returns positions in asset that are currently
// undercollateralized. An unavailable or stale price yields nothing.
func (e *Engine) UnsafePositions(asset string) []ledger.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if price, _ := e.assetPrice(asset); price == 0 {
		return nil
	}

	return e.book.QueryInvalid(asset, func(p ledger.Position) bool {
		unsafe, err := e.positionUnsafe(p)
		return err == nil && unsafe
	})
}

// AssetPrice returns the engine-visible (value, lastUpdated) for a
// denom: migrated assets report their end price, the base denom its
// unit price, everything else the live oracle quote.
func (e *Engine) AssetPrice(denom string) (int64, int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.assetPrice(denom)
}

// OpenPositionCount returns the number of open positions.
func (e *Engine) OpenPositionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Len()
}

// --- Internals ---

// ownedPosition loads a position and enforces the ownership check
// shared by deposit, withdraw, mint, and close.
func (e *Engine) ownedPosition(sender string, index uint64) (ledger.Position, error) {
	pos, ok := e.book.Get(index)
	if !ok {
		return ledger.Position{}, fmt.Errorf("position %d: %w", index, ErrPositionNotFound)
	}
	if sender == "" || sender != pos.Owner {
		return ledger.Position{}, fmt.Errorf("position %d: %w", index, ErrUnauthorized)
	}
	return pos, nil
}

// payOut sends gross collateral to recipient minus the protocol fee,
// which goes to the collector. Returns the fee taken.
func (e *Engine) payOut(denom, recipient string, gross int64) (int64, error) {
	fee := fpmath.MulFixed(gross, e.cfg.ProtocolFeeRate)

	if fee > 0 {
		if err := e.bank.Transfer(denom, e.cfg.ModuleAddr, e.cfg.CollectorAddr, fee); err != nil {
			return 0, fmt.Errorf("pay fee: %v: %w", err, ErrTransferFailed)
		}
		if e.metrics != nil {
			e.metrics.FeesCollected.WithLabelValues(denom).Add(float64(fee))
		}
	}

	if net := gross - fee; net > 0 {
		if err := e.bank.Transfer(denom, e.cfg.ModuleAddr, recipient, net); err != nil {
			return 0, fmt.Errorf("pay out: %v: %w", err, ErrTransferFailed)
		}
	}

	return fee, nil
}

// trackCollateral adjusts the locked-collateral gauge as custody moves
// in and out of the module account.
func (e *Engine) trackCollateral(denom string, delta int64) {
	if e.metrics != nil {
		e.metrics.CollateralLocked.WithLabelValues(denom).Add(float64(delta))
	}
}

func (e *Engine) finishOp(op string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}

	e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.OpsRejected.WithLabelValues(op, ErrorReason(err)).Inc()
		return
	}
	e.metrics.OpsApplied.WithLabelValues(op).Inc()
	e.metrics.OpenPositions.Set(float64(e.book.Len()))
	e.metrics.NextPositionIndex.Set(float64(e.book.NextIndex()))
}

func (e *Engine) emit(rec Record) {
	rec.OpID = uuid.New()
	rec.Timestamp = time.Now().UTC()

	if e.persistChan != nil {
		e.persistChan <- rec
	}

	if e.publishChan != nil {
		select {
		case e.publishChan <- rec:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}
}
