package ledger

// Book is the indexed collection of open positions plus the
// owner-scoped lookup index. Indices are assigned from a monotonic
// counter starting at 1 and are never reused.
//
// Book is not internally synchronized: the engine serializes all
// mutating operations behind its own lock.
type Book struct {
	nextIndex uint64
	positions map[uint64]Position
	live      []uint64       // live indices, order not stable across removals
	liveSlot  map[uint64]int // index -> slot in live
	byPair    map[PairKey]uint64
}

func NewBook() *Book {
	return &Book{
		nextIndex: 1,
		positions: make(map[uint64]Position),
		liveSlot:  make(map[uint64]int),
		byPair:    make(map[PairKey]uint64),
	}
}

// NextIndex returns the index the next Insert will assign.
func (b *Book) NextIndex() uint64 {
	return b.nextIndex
}

// Len returns the number of open positions.
func (b *Book) Len() int {
	return len(b.live)
}

// Insert stores a new position under a freshly assigned index and
// records it in the owner/pair secondary index (overwriting any stale
// entry for the same pair).
func (b *Book) Insert(p Position) uint64 {
	idx := b.nextIndex
	b.nextIndex++

	p.Index = idx
	b.positions[idx] = p

	if _, tracked := b.liveSlot[idx]; !tracked {
		b.liveSlot[idx] = len(b.live)
		b.live = append(b.live, idx)
	}

	b.byPair[p.pairKey()] = idx
	return idx
}

// Get returns the position at idx; ok is false if absent.
func (b *Book) Get(idx uint64) (Position, bool) {
	p, ok := b.positions[idx]
	return p, ok
}

// Save overwrites a stored position in place. The live-index set is
// unchanged for already-present indices.
func (b *Book) Save(p Position) {
	b.positions[p.Index] = p
}

// Remove deletes the position at idx using swap-with-last on the live
// index slice, and clears the secondary index entry if it still points
// at idx. Removing an absent index is a no-op.
func (b *Book) Remove(idx uint64) {
	p, ok := b.positions[idx]
	if !ok {
		return
	}

	delete(b.positions, idx)

	slot, tracked := b.liveSlot[idx]
	if tracked {
		last := len(b.live) - 1
		moved := b.live[last]
		b.live[slot] = moved
		b.liveSlot[moved] = slot
		b.live = b.live[:last]
		delete(b.liveSlot, idx)
	}

	// Only clear the pair entry when it still points here; a newer
	// position for the same pair may have overwritten it.
	if b.byPair[p.pairKey()] == idx {
		delete(b.byPair, p.pairKey())
	}
}

// LookupPair returns the position index recorded for an
// (owner, collateral, asset) triple.
func (b *Book) LookupPair(owner, collateralToken, assetToken string) (uint64, bool) {
	idx, ok := b.byPair[PairKey{Owner: owner, CollateralToken: collateralToken, AssetToken: assetToken}]
	return idx, ok
}

// QueryAll returns every open position owned by owner.
func (b *Book) QueryAll(owner string) []Position {
	return b.Query(owner, "")
}

// Query returns open positions filtered by owner and, when assetFilter
// is nonempty, by asset token. An empty owner is a wildcard and is only
// meaningful together with an asset filter.
func (b *Book) Query(owner, assetFilter string) []Position {
	var out []Position
	for _, idx := range b.live {
		p := b.positions[idx]
		if owner != "" && p.Owner != owner {
			continue
		}
		if assetFilter != "" && p.AssetToken != assetFilter {
			continue
		}
		out = append(out, p)
	}
	return out
}

// QueryInvalid returns positions in assetToken that the injected
// solvency predicate marks unsafe. The caller is responsible for
// short-circuiting when the asset price is unavailable.
func (b *Book) QueryInvalid(assetToken string, unsafe func(Position) bool) []Position {
	var out []Position
	for _, idx := range b.live {
		p := b.positions[idx]
		if p.AssetToken != assetToken {
			continue
		}
		if unsafe(p) {
			out = append(out, p)
		}
	}
	return out
}
