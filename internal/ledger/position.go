package ledger

// Position is one open CDP: deposited collateral backing minted
// synthetic-asset debt. The (CollateralToken, AssetToken) pair is
// immutable after creation; only the amounts move.
type Position struct {
	Index            uint64 `json:"index"`
	Owner            string `json:"owner"`
	CollateralToken  string `json:"collateral_token"`
	CollateralAmount int64  `json:"collateral_amount"` // fixed-point quantity, > 0 while open
	AssetToken       string `json:"asset_token"`
	AssetAmount      int64  `json:"asset_amount"` // fixed-point outstanding debt
}

// PairKey identifies the owner-scoped secondary index entry for a
// (collateral, asset) pair.
type PairKey struct {
	Owner           string
	CollateralToken string
	AssetToken      string
}

func (p Position) pairKey() PairKey {
	return PairKey{Owner: p.Owner, CollateralToken: p.CollateralToken, AssetToken: p.AssetToken}
}
