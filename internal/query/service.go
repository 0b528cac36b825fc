package query

import (
	"MintLedger/internal/engine"
	"MintLedger/internal/ledger"
	fpmath "MintLedger/internal/math"
	"MintLedger/internal/registry"
)

// Service provides read-only views over the in-memory ledger state.
// Amounts are returned both as raw fixed-point integers (exact) and as
// formatted decimal strings (display).
type Service struct {
	engine   *engine.Engine
	registry *registry.Registry
}

func NewService(eng *engine.Engine, reg *registry.Registry) *Service {
	return &Service{engine: eng, registry: reg}
}

type PositionView struct {
	Index            uint64 `json:"index"`
	Owner            string `json:"owner"`
	CollateralToken  string `json:"collateral_token"`
	CollateralAmount int64  `json:"collateral_amount"`
	CollateralHuman  string `json:"collateral_amount_dec"`
	AssetToken       string `json:"asset_token"`
	AssetAmount      int64  `json:"asset_amount"`
	AssetHuman       string `json:"asset_amount_dec"`
}

type AssetView struct {
	Token              string `json:"token"`
	AuctionDiscount    string `json:"auction_discount"`
	MinCollateralRatio string `json:"min_collateral_ratio"`
	EndPrice           string `json:"end_price"`
	Migrated           bool   `json:"migrated"`
}

type PriceView struct {
	Asset       string `json:"asset"`
	Price       int64  `json:"price"`
	PriceHuman  string `json:"price_dec"`
	LastUpdated int64  `json:"last_updated"`
}

func toPositionView(p ledger.Position) PositionView {
	return PositionView{
		Index:            p.Index,
		Owner:            p.Owner,
		CollateralToken:  p.CollateralToken,
		CollateralAmount: p.CollateralAmount,
		CollateralHuman:  fpmath.Format(p.CollateralAmount),
		AssetToken:       p.AssetToken,
		AssetAmount:      p.AssetAmount,
		AssetHuman:       fpmath.Format(p.AssetAmount),
	}
}

// Position returns the position at index.
func (s *Service) Position(index uint64) (PositionView, bool) {
	p, ok := s.engine.Position(index)
	if !ok {
		return PositionView{}, false
	}
	return toPositionView(p), true
}

// Positions lists open positions filtered by owner and/or asset.
func (s *Service) Positions(owner, asset string) []PositionView {
	positions := s.engine.Positions(owner, asset)
	out := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionView(p))
	}
	return out
}

// UnsafePositions lists undercollateralized positions in asset.
func (s *Service) UnsafePositions(asset string) []PositionView {
	positions := s.engine.UnsafePositions(asset)
	out := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionView(p))
	}
	return out
}

// Assets lists registered asset configs in registration order.
func (s *Service) Assets() []AssetView {
	denoms := s.registry.Assets()
	out := make([]AssetView, 0, len(denoms))
	for _, d := range denoms {
		out = append(out, s.assetView(s.registry.Get(d)))
	}
	return out
}

// Asset returns the config for one denom.
func (s *Service) Asset(denom string) (AssetView, bool) {
	cfg := s.registry.Get(denom)
	if !cfg.Registered() {
		return AssetView{}, false
	}
	return s.assetView(cfg), true
}

func (s *Service) assetView(cfg registry.AssetConfig) AssetView {
	return AssetView{
		Token:              cfg.Token,
		AuctionDiscount:    fpmath.Format(cfg.AuctionDiscount),
		MinCollateralRatio: fpmath.Format(cfg.MinCollateralRatio),
		EndPrice:           fpmath.Format(cfg.EndPrice),
		Migrated:           cfg.Migrated(),
	}
}

// Price returns the engine-visible price for an asset (base denom and
// migrated assets included).
func (s *Service) Price(asset string) PriceView {
	price, updated := s.engine.AssetPrice(asset)
	return PriceView{
		Asset:       asset,
		Price:       price,
		PriceHuman:  fpmath.Format(price),
		LastUpdated: updated,
	}
}
