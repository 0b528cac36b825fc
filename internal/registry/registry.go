package registry

import (
	"errors"
	"fmt"
	"sync"

	fpmath "MintLedger/internal/math"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrAlreadyRegistered = errors.New("asset already registered")
	ErrNotRegistered     = errors.New("asset not registered")
)

// AssetConfig is the per-asset risk configuration. A zero Token marks
// the config as unregistered.
type AssetConfig struct {
	Token              string
	AuctionDiscount    int64 // fixed-point fraction in [0, Scale]
	MinCollateralRatio int64 // fixed-point ratio >= Scale
	EndPrice           int64 // nonzero marks the asset migrated
}

// Registered reports whether the config belongs to a registered asset.
func (c AssetConfig) Registered() bool {
	return c.Token != ""
}

// Migrated reports whether the asset has been deprecated via migration.
func (c AssetConfig) Migrated() bool {
	return c.EndPrice != 0
}

// Registry holds asset configurations keyed by denom, with enumeration
// in registration order.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]AssetConfig
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]AssetConfig)}
}

func validateParams(denom string, discount, minRatio int64) error {
	if denom == "" {
		return fmt.Errorf("empty asset denom: %w", ErrInvalidParameter)
	}
	if discount < 0 || discount > fpmath.Scale {
		return fmt.Errorf("auction discount %s out of [0,1]: %w", fpmath.Format(discount), ErrInvalidParameter)
	}
	if minRatio < fpmath.Scale {
		return fmt.Errorf("min collateral ratio %s below 1: %w", fpmath.Format(minRatio), ErrInvalidParameter)
	}
	return nil
}

// Register creates a new asset config. Fails if the asset already has a
// config with a nonzero token identity.
func (r *Registry) Register(denom string, discount, minRatio int64) error {
	if err := validateParams(denom, discount, minRatio); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.configs[denom].Registered() {
		return fmt.Errorf("%s: %w", denom, ErrAlreadyRegistered)
	}

	r.store(denom, AssetConfig{
		Token:              denom,
		AuctionDiscount:    discount,
		MinCollateralRatio: minRatio,
	})
	return nil
}

// Update upserts an asset config with the same validation as Register.
// A migrated asset keeps its end price; only the risk parameters move.
func (r *Registry) Update(denom string, discount, minRatio int64) error {
	if err := validateParams(denom, discount, minRatio); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.configs[denom]
	cfg.Token = denom
	cfg.AuctionDiscount = discount
	cfg.MinCollateralRatio = minRatio
	r.store(denom, cfg)
	return nil
}

// Migrate deprecates an asset: records the terminal end price and
// freezes the minimum collateral ratio at exactly 1 so existing
// positions can wind down. The asset stays enumerable.
func (r *Registry) Migrate(denom string, endPrice int64) error {
	if endPrice <= 0 {
		return fmt.Errorf("end price must be positive: %w", ErrInvalidParameter)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.configs[denom]
	if !cfg.Registered() {
		return fmt.Errorf("%s: %w", denom, ErrNotRegistered)
	}

	cfg.EndPrice = endPrice
	cfg.MinCollateralRatio = fpmath.Scale
	r.configs[denom] = cfg
	return nil
}

// Get returns the config for denom, or the zero config if unregistered.
func (r *Registry) Get(denom string) AssetConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs[denom]
}

// Assets enumerates registered denoms in registration order.
func (r *Registry) Assets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// store writes cfg and appends denom to the enumeration set if new.
// Caller holds the lock.
func (r *Registry) store(denom string, cfg AssetConfig) {
	if _, exists := r.configs[denom]; !exists {
		r.order = append(r.order, denom)
	}
	r.configs[denom] = cfg
}
