package engine

import (
	"errors"

	"MintLedger/internal/registry"
	"MintLedger/internal/token"
)

// Operation errors. Every engine operation fails with exactly one of
// these kinds (possibly wrapped with context); registry admin
// operations additionally surface registry.ErrAlreadyRegistered and
// registry.ErrNotRegistered.
var (
	ErrInvalidParameter  = registry.ErrInvalidParameter
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotRegistered     = registry.ErrNotRegistered
	ErrAssetDeprecated   = errors.New("asset deprecated by migration")
	ErrBelowMinimumRatio = errors.New("collateral below minimum ratio")
	ErrPositionSafe      = errors.New("position is safe")
	ErrPositionNotFound  = errors.New("position not found")
	ErrStalePrice        = errors.New("price data is stale")
	ErrZeroPrice         = errors.New("price unavailable")
	ErrTransferFailed    = errors.New("token transfer failed")
	ErrAmountTooSmall    = errors.New("amount too small")
)

// ErrorReason maps an operation error to a stable label used by the
// rejection metrics and the HTTP error codes.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, registry.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrAssetDeprecated):
		return "asset_deprecated"
	case errors.Is(err, ErrBelowMinimumRatio):
		return "below_minimum_ratio"
	case errors.Is(err, ErrPositionSafe):
		return "position_safe"
	case errors.Is(err, ErrPositionNotFound):
		return "position_not_found"
	case errors.Is(err, ErrStalePrice):
		return "stale_price"
	case errors.Is(err, ErrZeroPrice):
		return "zero_price"
	case errors.Is(err, ErrTransferFailed), errors.Is(err, token.ErrInsufficientFunds):
		return "transfer_failed"
	case errors.Is(err, ErrAmountTooSmall):
		return "amount_too_small"
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	default:
		return "internal"
	}
}
