package token

import (
	"errors"
	"fmt"
	"sync"
)

// Bank is the fungible-token primitive the mint engine drives.
// A non-nil error from Transfer must abort the enclosing operation.
type Bank interface {
	// Transfer moves amount of denom from one account to another.
	Transfer(denom, from, to string, amount int64) error
	// Mint issues new supply of denom to an account.
	Mint(denom, to string, amount int64) error
	// Burn destroys amount of denom held by an account.
	Burn(denom, from string, amount int64) error
}

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// InMemoryBank is a Bank backed by an in-process balance table.
// It serves both the standalone service mode and tests.
type InMemoryBank struct {
	mu       sync.Mutex
	balances map[string]map[string]int64 // account -> denom -> amount
}

func NewInMemoryBank() *InMemoryBank {
	return &InMemoryBank{
		balances: make(map[string]map[string]int64),
	}
}

// Fund credits an account directly, bypassing supply accounting.
// Test and bootstrap helper.
func (b *InMemoryBank) Fund(denom, account string, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(denom, account, amount)
}

// Balance returns the balance of denom held by account.
func (b *InMemoryBank) Balance(denom, account string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account][denom]
}

func (b *InMemoryBank) Transfer(denom, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer %d %s: %w", amount, denom, ErrInvalidAmount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[from][denom] < amount {
		return fmt.Errorf("transfer %d %s from %s: %w", amount, denom, from, ErrInsufficientFunds)
	}

	b.balances[from][denom] -= amount
	b.credit(denom, to, amount)
	return nil
}

func (b *InMemoryBank) Mint(denom, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("mint %d %s: %w", amount, denom, ErrInvalidAmount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.credit(denom, to, amount)
	return nil
}

func (b *InMemoryBank) Burn(denom, from string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("burn %d %s: %w", amount, denom, ErrInvalidAmount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[from][denom] < amount {
		return fmt.Errorf("burn %d %s from %s: %w", amount, denom, from, ErrInsufficientFunds)
	}

	b.balances[from][denom] -= amount
	return nil
}

func (b *InMemoryBank) credit(denom, account string, amount int64) {
	if b.balances[account] == nil {
		b.balances[account] = make(map[string]int64)
	}
	b.balances[account][denom] += amount
}
