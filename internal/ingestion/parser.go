package ingestion

import (
	"encoding/json"
	"fmt"
)

// PriceUpdate is the wire format published by price collectors on
// mint.prices.{asset}. Field names use snake_case to match upstream
// producers; price is fixed-point with 6 decimals.
type PriceUpdate struct {
	Asset     string `json:"asset"`
	Price     int64  `json:"price"`
	Timestamp int64  `json:"timestamp"` // unix seconds
}

// ParsePriceUpdate validates and decodes a raw price message.
func ParsePriceUpdate(data []byte) (PriceUpdate, error) {
	var u PriceUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return PriceUpdate{}, fmt.Errorf("parse price update: %w", err)
	}

	if u.Asset == "" {
		return PriceUpdate{}, fmt.Errorf("price update missing asset")
	}
	if u.Price < 0 {
		return PriceUpdate{}, fmt.Errorf("price update for %s has negative price %d", u.Asset, u.Price)
	}
	if u.Timestamp <= 0 {
		return PriceUpdate{}, fmt.Errorf("price update for %s has invalid timestamp %d", u.Asset, u.Timestamp)
	}

	return u, nil
}
