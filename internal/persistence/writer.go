package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MintLedger/internal/engine"
	"MintLedger/internal/registry"
)

// OperationWriter persists applied ledger operations and position
// snapshots to Postgres. The operation log is append-only and
// idempotent on op_id; position rows mirror live ledger state.
type OperationWriter struct {
	db *sql.DB
}

func NewOperationWriter(db *sql.DB) *OperationWriter {
	return &OperationWriter{db: db}
}

// WriteOperationBatch appends a batch of operation records using a
// multi-row INSERT. Replays are harmless: op_id conflicts are skipped.
func (w *OperationWriter) WriteOperationBatch(ctx context.Context, recs []engine.Record) error {
	if len(recs) == 0 {
		return nil
	}

	query := `INSERT INTO mint.operations
		(op_id, op, sender, position_index, collateral_token, asset_token,
		 amount, mint_amount, fee, fee_denom, removed, occurred_at)
		VALUES `

	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*12)

	for i, r := range recs {
		base := i * 12
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args,
			r.OpID, r.Op, r.Sender, int64(r.Index),
			r.Position.CollateralToken, r.Position.AssetToken,
			r.Amount, r.MintAmount, r.Fee, r.FeeDenom, r.Removed, r.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (op_id) DO NOTHING"

	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

// SyncPosition upserts (or deletes, when removed) the mirrored position
// row for a record.
func (w *OperationWriter) SyncPosition(ctx context.Context, rec engine.Record) error {
	if rec.Removed {
		_, err := w.db.ExecContext(ctx,
			`DELETE FROM mint.positions WHERE position_index = $1`, int64(rec.Index))
		return err
	}

	p := rec.Position
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO mint.positions
			(position_index, owner, collateral_token, collateral_amount, asset_token, asset_amount, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (position_index) DO UPDATE SET
			collateral_amount = EXCLUDED.collateral_amount,
			asset_amount      = EXCLUDED.asset_amount,
			updated_at        = EXCLUDED.updated_at`,
		int64(p.Index), p.Owner, p.CollateralToken, p.CollateralAmount,
		p.AssetToken, p.AssetAmount, rec.Timestamp,
	)
	return err
}

// SyncAssetConfig upserts the mirrored asset config row.
func (w *OperationWriter) SyncAssetConfig(ctx context.Context, cfg registry.AssetConfig) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO mint.assets
			(token, auction_discount, min_collateral_ratio, end_price, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			auction_discount     = EXCLUDED.auction_discount,
			min_collateral_ratio = EXCLUDED.min_collateral_ratio,
			end_price            = EXCLUDED.end_price,
			updated_at           = EXCLUDED.updated_at`,
		cfg.Token, cfg.AuctionDiscount, cfg.MinCollateralRatio, cfg.EndPrice, time.Now().UTC(),
	)
	return err
}
