package engine

import (
	"time"

	"github.com/google/uuid"

	"MintLedger/internal/ledger"
)

// Operation names, used in records, metrics labels, and NATS subjects.
const (
	OpOpenPosition  = "open_position"
	OpDeposit       = "deposit"
	OpWithdraw      = "withdraw"
	OpMint          = "mint"
	OpClosePosition = "close_position"
	OpAuction       = "auction"
)

// Record describes one applied operation, emitted to the persistence
// worker (blocking) and the outbound publisher (best effort).
type Record struct {
	OpID       uuid.UUID       `json:"op_id"`
	Op         string          `json:"op"`
	Sender     string          `json:"sender"`
	Index      uint64          `json:"index"`
	Position   ledger.Position `json:"position"` // state after the operation
	Removed    bool            `json:"removed"`
	Amount     int64           `json:"amount"`      // operation principal (collateral or asset units)
	MintAmount int64           `json:"mint_amount"` // synthetic issued (open/mint) or burned (close/auction)
	Fee        int64           `json:"fee"`
	FeeDenom   string          `json:"fee_denom,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}
