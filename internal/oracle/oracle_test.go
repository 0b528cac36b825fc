package oracle_test

import (
	stdmath "math"
	"testing"

	fpmath "MintLedger/internal/math"
	"MintLedger/internal/oracle"
)

func TestClient_BaseDenomIsUnitAndFresh(t *testing.T) {
	store := oracle.NewStore()
	client := oracle.NewClient(store, "uusd")

	price, updated := client.Price("uusd")
	if price != fpmath.Scale {
		t.Errorf("base price = %d, want %d", price, fpmath.Scale)
	}
	if updated != stdmath.MaxInt64 {
		t.Errorf("base last updated = %d, want MaxInt64", updated)
	}
}

func TestClient_MissingAssetReportsZero(t *testing.T) {
	client := oracle.NewClient(oracle.NewStore(), "uusd")

	price, updated := client.Price("mAAPL")
	if price != 0 || updated != 0 {
		t.Errorf("missing asset = (%d, %d), want (0, 0)", price, updated)
	}
}

func TestClient_DelegatesToStore(t *testing.T) {
	store := oracle.NewStore()
	client := oracle.NewClient(store, "uusd")

	store.SetPrice("mAAPL", 10_000_000, 1_000)

	price, updated := client.Price("mAAPL")
	if price != 10_000_000 || updated != 1_000 {
		t.Errorf("price = (%d, %d), want (10_000_000, 1_000)", price, updated)
	}
}

func TestStore_OlderQuoteNeverOverwrites(t *testing.T) {
	store := oracle.NewStore()

	store.SetPrice("mAAPL", 10_000_000, 2_000)
	store.SetPrice("mAAPL", 9_000_000, 1_500) // replayed, older

	price, updated, ok := store.QueryPrice("mAAPL")
	if !ok || price != 10_000_000 || updated != 2_000 {
		t.Errorf("quote = (%d, %d, %v), want newest kept", price, updated, ok)
	}
}

func TestStore_Assets(t *testing.T) {
	store := oracle.NewStore()
	store.SetPrice("mAAPL", 1, 1)
	store.SetPrice("mTSLA", 2, 1)

	assets := store.Assets()
	if len(assets) != 2 {
		t.Errorf("assets = %v, want 2 entries", assets)
	}
}
