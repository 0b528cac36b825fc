package ledger_test

import (
	"testing"

	"MintLedger/internal/ledger"
)

func newPosition(owner, collateral, asset string, collateralAmt, assetAmt int64) ledger.Position {
	return ledger.Position{
		Owner:            owner,
		CollateralToken:  collateral,
		CollateralAmount: collateralAmt,
		AssetToken:       asset,
		AssetAmount:      assetAmt,
	}
}

func TestInsert_AssignsMonotonicIndices(t *testing.T) {
	b := ledger.NewBook()

	idx1 := b.Insert(newPosition("alice", "uusd", "mAAPL", 1000, 100))
	idx2 := b.Insert(newPosition("bob", "uusd", "mAAPL", 2000, 200))

	if idx1 != 1 || idx2 != 2 {
		t.Errorf("indices = %d, %d, want 1, 2", idx1, idx2)
	}
	if b.NextIndex() != 3 {
		t.Errorf("next index = %d, want 3", b.NextIndex())
	}

	p, ok := b.Get(idx1)
	if !ok {
		t.Fatal("position 1 should exist")
	}
	if p.Index != 1 || p.Owner != "alice" || p.CollateralAmount != 1000 {
		t.Errorf("unexpected position: %+v", p)
	}
}

func TestGet_Absent(t *testing.T) {
	b := ledger.NewBook()
	if _, ok := b.Get(42); ok {
		t.Error("absent index should not resolve")
	}
}

func TestSave_OverwritesInPlace(t *testing.T) {
	b := ledger.NewBook()
	idx := b.Insert(newPosition("alice", "uusd", "mAAPL", 1000, 100))

	p, _ := b.Get(idx)
	p.CollateralAmount = 5000
	b.Save(p)

	got, _ := b.Get(idx)
	if got.CollateralAmount != 5000 {
		t.Errorf("collateral = %d, want 5000", got.CollateralAmount)
	}
	if b.Len() != 1 {
		t.Errorf("len = %d, want 1", b.Len())
	}
}

func TestRemove_SwapWithLast(t *testing.T) {
	b := ledger.NewBook()
	idx1 := b.Insert(newPosition("alice", "uusd", "mAAPL", 1, 1))
	idx2 := b.Insert(newPosition("bob", "uusd", "mAAPL", 2, 2))
	idx3 := b.Insert(newPosition("carol", "uusd", "mAAPL", 3, 3))

	b.Remove(idx2)

	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
	if _, ok := b.Get(idx2); ok {
		t.Error("removed position should be gone")
	}
	// Remaining positions still enumerable.
	all := b.Query("", "mAAPL")
	seen := map[uint64]bool{}
	for _, p := range all {
		seen[p.Index] = true
	}
	if !seen[idx1] || !seen[idx3] || seen[idx2] {
		t.Errorf("enumeration after remove: %v", seen)
	}

	// Removing again is a no-op.
	b.Remove(idx2)
	if b.Len() != 2 {
		t.Errorf("len after double remove = %d, want 2", b.Len())
	}
}

func TestQuery_OwnerAndAssetFilters(t *testing.T) {
	b := ledger.NewBook()
	b.Insert(newPosition("alice", "uusd", "mAAPL", 1, 1))
	b.Insert(newPosition("alice", "uusd", "mTSLA", 2, 2))
	b.Insert(newPosition("bob", "uusd", "mAAPL", 3, 3))

	if got := len(b.QueryAll("alice")); got != 2 {
		t.Errorf("alice positions = %d, want 2", got)
	}
	if got := len(b.Query("alice", "mTSLA")); got != 1 {
		t.Errorf("alice mTSLA positions = %d, want 1", got)
	}
	// Wildcard owner with asset filter.
	if got := len(b.Query("", "mAAPL")); got != 2 {
		t.Errorf("mAAPL positions = %d, want 2", got)
	}
	if got := len(b.QueryAll("carol")); got != 0 {
		t.Errorf("carol positions = %d, want 0", got)
	}
}

func TestQueryInvalid_UsesPredicate(t *testing.T) {
	b := ledger.NewBook()
	b.Insert(newPosition("alice", "uusd", "mAAPL", 100, 100))
	b.Insert(newPosition("bob", "uusd", "mAAPL", 10_000, 100))
	b.Insert(newPosition("carol", "uusd", "mTSLA", 1, 100))

	unsafe := b.QueryInvalid("mAAPL", func(p ledger.Position) bool {
		return p.CollateralAmount < 1_000
	})
	if len(unsafe) != 1 || unsafe[0].Owner != "alice" {
		t.Errorf("unsafe = %+v, want alice only", unsafe)
	}
}

func TestPairIndex_OverwrittenOnInsert(t *testing.T) {
	b := ledger.NewBook()
	idx1 := b.Insert(newPosition("alice", "uusd", "mAAPL", 1, 1))
	idx2 := b.Insert(newPosition("alice", "uusd", "mAAPL", 2, 2))

	got, ok := b.LookupPair("alice", "uusd", "mAAPL")
	if !ok || got != idx2 {
		t.Errorf("pair lookup = %d (%v), want %d", got, ok, idx2)
	}

	// Removing the older position must not clobber the newer entry.
	b.Remove(idx1)
	got, ok = b.LookupPair("alice", "uusd", "mAAPL")
	if !ok || got != idx2 {
		t.Errorf("pair lookup after stale remove = %d (%v), want %d", got, ok, idx2)
	}

	// Removing the current holder clears the entry.
	b.Remove(idx2)
	if _, ok := b.LookupPair("alice", "uusd", "mAAPL"); ok {
		t.Error("pair entry should be cleared with its position")
	}
}
