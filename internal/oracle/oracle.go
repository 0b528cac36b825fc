package oracle

import (
	stdmath "math"
	"sync"

	fpmath "MintLedger/internal/math"
)

// PriceSource supplies raw quotes for non-base assets.
// ok == false (or a zero price) means "no data"; callers must treat a
// zero price as unavailable rather than free.
type PriceSource interface {
	QueryPrice(asset string) (price int64, lastUpdated int64, ok bool)
}

type quote struct {
	price     int64
	updatedAt int64
}

// Store is an in-memory PriceSource. It is fed by the NATS price
// subscriber and by the admin price endpoint.
type Store struct {
	mu     sync.RWMutex
	quotes map[string]quote
}

func NewStore() *Store {
	return &Store{quotes: make(map[string]quote)}
}

// SetPrice records a quote. Older timestamps never overwrite newer ones,
// so replayed or out-of-order feed messages are harmless.
func (s *Store) SetPrice(asset string, price int64, updatedAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.quotes[asset]; ok && cur.updatedAt > updatedAt {
		return
	}
	s.quotes[asset] = quote{price: price, updatedAt: updatedAt}
}

func (s *Store) QueryPrice(asset string) (int64, int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[asset]
	if !ok {
		return 0, 0, false
	}
	return q.price, q.updatedAt, true
}

// Assets returns every asset with a recorded quote.
func (s *Store) Assets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.quotes))
	for asset := range s.quotes {
		out = append(out, asset)
	}
	return out
}

// Client answers price queries for the mint engine. The base denom is
// special-cased: it is always worth exactly one unit of itself and is
// never stale. Every other asset delegates to the source; a missing
// asset reports price zero.
type Client struct {
	source    PriceSource
	baseDenom string
}

func NewClient(source PriceSource, baseDenom string) *Client {
	return &Client{source: source, baseDenom: baseDenom}
}

func (c *Client) BaseDenom() string {
	return c.baseDenom
}

// Price returns (value, lastUpdated) for an asset. A zero value means
// the price is unavailable.
func (c *Client) Price(asset string) (int64, int64) {
	if asset == c.baseDenom {
		return fpmath.Scale, stdmath.MaxInt64
	}

	price, updatedAt, ok := c.source.QueryPrice(asset)
	if !ok {
		return 0, 0
	}
	return price, updatedAt
}
