package state

import (
	"math/big"
	"testing"

	"marketd/native/custody"
	"marketd/native/ledger"
	"marketd/native/market"
	"marketd/storage"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func newTestAddress(b byte) [20]byte {
	var addr [20]byte
	addr[19] = b
	return addr
}

func TestBalanceRoundTrip(t *testing.T) {
	manager := setupManager(t)
	owner := newTestAddress(0x01)
	if _, ok := manager.BalanceGet(owner); ok {
		t.Fatalf("expected no balance row")
	}
	balance := &ledger.Balance{
		Owner: owner,
		Quantities: []ledger.Quantity{
			{Symbol: "USD", Amount: big.NewInt(12345)},
			{Symbol: "GEM", Amount: big.NewInt(7)},
		},
	}
	if err := manager.BalancePut(balance); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := manager.BalanceGet(owner)
	if !ok {
		t.Fatalf("expected balance row")
	}
	if len(loaded.Quantities) != 2 || loaded.Quantities[0].Symbol != "USD" {
		t.Fatalf("unexpected row: %#v", loaded)
	}
	if loaded.Quantities[0].Amount.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("amount = %s, want 12345", loaded.Quantities[0].Amount)
	}
	if err := manager.BalanceDelete(owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := manager.BalanceGet(owner); ok {
		t.Fatalf("expected row deleted")
	}
}

func TestSaleRoundTrip(t *testing.T) {
	manager := setupManager(t)
	sale := &market.Sale{
		ID:                    3,
		Seller:                newTestAddress(0x02),
		AssetIDs:              []uint64{5, 9},
		BundleHash:            [32]byte{0xAB},
		Price:                 big.NewInt(10000),
		Symbol:                "USD",
		PairID:                "USD_GEM",
		OriginMarketplace:     "main",
		Collection:            "pixels",
		CollectionBeneficiary: newTestAddress(0x03),
		CollectionFeeBps:      200,
		Escrowed:              true,
		HoldID:                7,
		CreatedAt:             1700000000,
	}
	if err := manager.SalePut(sale); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := manager.SaleGet(sale.ID)
	if !ok {
		t.Fatalf("expected sale")
	}
	if loaded.Seller != sale.Seller || loaded.PairID != "USD_GEM" || !loaded.Escrowed || loaded.HoldID != 7 {
		t.Fatalf("unexpected sale: %#v", loaded)
	}
	if loaded.Price.Cmp(sale.Price) != 0 || loaded.CreatedAt != sale.CreatedAt {
		t.Fatalf("unexpected sale: %#v", loaded)
	}
	if len(loaded.AssetIDs) != 2 || loaded.AssetIDs[1] != 9 {
		t.Fatalf("unexpected asset ids: %v", loaded.AssetIDs)
	}
	if err := manager.SaleDelete(sale.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := manager.SaleGet(sale.ID); ok {
		t.Fatalf("expected sale deleted")
	}
}

func TestAuctionRoundTrip(t *testing.T) {
	manager := setupManager(t)
	auction := &market.Auction{
		ID:                    4,
		Seller:                newTestAddress(0x04),
		AssetIDs:              []uint64{1},
		BundleHash:            [32]byte{0xCD},
		Symbol:                "USD",
		CurrentBid:            big.NewInt(1100),
		Bidder:                newTestAddress(0x05),
		HasBid:                true,
		EndTime:               1700003600,
		OriginMarketplace:     "main",
		CompletionMarketplace: "partner",
		Collection:            "pixels",
		CollectionBeneficiary: newTestAddress(0x06),
		CollectionFeeBps:      150,
		EscrowReceived:        true,
		ClaimedBySeller:       true,
		CreatedAt:             1700000000,
	}
	if err := manager.AuctionPut(auction); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := manager.AuctionGet(auction.ID)
	if !ok {
		t.Fatalf("expected auction")
	}
	if !loaded.HasBid || loaded.Bidder != auction.Bidder || loaded.CurrentBid.Cmp(big.NewInt(1100)) != 0 {
		t.Fatalf("unexpected auction: %#v", loaded)
	}
	if !loaded.ClaimedBySeller || loaded.ClaimedByBuyer {
		t.Fatalf("claim flags lost: %#v", loaded)
	}
	if loaded.EndTime != auction.EndTime || loaded.CompletionMarketplace != "partner" {
		t.Fatalf("unexpected auction: %#v", loaded)
	}
}

func TestBuyOfferRoundTrip(t *testing.T) {
	manager := setupManager(t)
	offer := &market.BuyOffer{
		ID:                2,
		Proposer:          newTestAddress(0x07),
		Recipient:         newTestAddress(0x08),
		AssetIDs:          []uint64{3, 4},
		BundleHash:        [32]byte{0xEF},
		Price:             big.NewInt(777),
		Symbol:            "GEM",
		Note:              "take it",
		OriginMarketplace: "main",
		CreatedAt:         1700000000,
	}
	if err := manager.BuyOfferPut(offer); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := manager.BuyOfferGet(offer.ID)
	if !ok {
		t.Fatalf("expected offer")
	}
	if loaded.Note != "take it" || loaded.Price.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("unexpected offer: %#v", loaded)
	}
}

func TestBundleIndex(t *testing.T) {
	manager := setupManager(t)
	seller := newTestAddress(0x09)
	hash := [32]byte{0x11}

	ids, err := manager.BundleIndexGet(market.KindSale, seller, hash)
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty index, got %v", ids)
	}
	if err := manager.BundleIndexAdd(market.KindSale, seller, hash, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := manager.BundleIndexAdd(market.KindSale, seller, hash, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Partitions by kind: the auction index stays empty.
	ids, err = manager.BundleIndexGet(market.KindAuction, seller, hash)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty auction index, got %v (%v)", ids, err)
	}
	ids, err = manager.BundleIndexGet(market.KindSale, seller, hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected [1 2], got %v", ids)
	}
	if err := manager.BundleIndexRemove(market.KindSale, seller, hash, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, _ = manager.BundleIndexGet(market.KindSale, seller, hash)
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("expected [2], got %v", ids)
	}
	if err := manager.BundleIndexRemove(market.KindSale, seller, hash, 2); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	ids, _ = manager.BundleIndexGet(market.KindSale, seller, hash)
	if len(ids) != 0 {
		t.Fatalf("expected empty index after removals, got %v", ids)
	}
}

func TestCustodyRoundTrips(t *testing.T) {
	manager := setupManager(t)
	asset := &custody.Asset{ID: 1, Owner: newTestAddress(0x0A), Collection: "pixels", Transferable: true, HeldBy: 3}
	if err := manager.AssetPut(asset); err != nil {
		t.Fatalf("asset put: %v", err)
	}
	loadedAsset, ok := manager.AssetGet(1)
	if !ok || loadedAsset.Collection != "pixels" || !loadedAsset.Transferable || loadedAsset.HeldBy != 3 {
		t.Fatalf("unexpected asset: %#v", loadedAsset)
	}

	hold := &custody.Hold{ID: 3, From: newTestAddress(0x0A), AssetIDs: []uint64{1}, BundleHash: [32]byte{0x22}, Active: true}
	if err := manager.HoldPut(hold); err != nil {
		t.Fatalf("hold put: %v", err)
	}
	loadedHold, ok := manager.HoldGet(3)
	if !ok || !loadedHold.Active || len(loadedHold.AssetIDs) != 1 {
		t.Fatalf("unexpected hold: %#v", loadedHold)
	}

	collection := &custody.Collection{Name: "pixels", Author: newTestAddress(0x0B), FeeBps: 250}
	if err := manager.CollectionPut(collection); err != nil {
		t.Fatalf("collection put: %v", err)
	}
	loadedCollection, ok := manager.CollectionGet("pixels")
	if !ok || loadedCollection.Author != collection.Author || loadedCollection.FeeBps != 250 {
		t.Fatalf("unexpected collection: %#v", loadedCollection)
	}

	if _, ok, err := manager.HoldIndexGet(hold.From, hold.BundleHash); err != nil || ok {
		t.Fatalf("expected empty hold index")
	}
	if err := manager.HoldIndexPut(hold.From, hold.BundleHash, 3); err != nil {
		t.Fatalf("hold index put: %v", err)
	}
	id, ok, err := manager.HoldIndexGet(hold.From, hold.BundleHash)
	if err != nil || !ok || id != 3 {
		t.Fatalf("expected hold index 3, got %d (%v, %v)", id, ok, err)
	}
}

func TestCounterRoundTrip(t *testing.T) {
	manager := setupManager(t)
	if _, ok, err := manager.CounterGet("sale"); err != nil || ok {
		t.Fatalf("expected missing counter")
	}
	if err := manager.CounterPut("sale", 9); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, ok, err := manager.CounterGet("sale")
	if err != nil || !ok || value != 9 {
		t.Fatalf("expected 9, got %d (%v, %v)", value, ok, err)
	}
}
