package state

import (
	"math/big"

	"marketd/native/custody"
	"marketd/native/ledger"
	"marketd/native/market"
)

// Stored shapes keep every field RLP-encodable: timestamps are widened to
// uint64 and big.Int amounts are always non-nil.

type storedQuantity struct {
	Symbol string
	Amount *big.Int
}

type storedBalance struct {
	Owner      [20]byte
	Quantities []storedQuantity
}

func newStoredBalance(b *ledger.Balance) *storedBalance {
	stored := &storedBalance{Owner: b.Owner, Quantities: make([]storedQuantity, len(b.Quantities))}
	for i, q := range b.Quantities {
		stored.Quantities[i] = storedQuantity{Symbol: q.Symbol, Amount: nonNil(q.Amount)}
	}
	return stored
}

func (s *storedBalance) toBalance() *ledger.Balance {
	balance := &ledger.Balance{Owner: s.Owner, Quantities: make([]ledger.Quantity, len(s.Quantities))}
	for i, q := range s.Quantities {
		balance.Quantities[i] = ledger.Quantity{Symbol: q.Symbol, Amount: nonNil(q.Amount)}
	}
	return balance
}

type storedSale struct {
	ID                    uint64
	Seller                [20]byte
	AssetIDs              []uint64
	BundleHash            [32]byte
	Price                 *big.Int
	Symbol                string
	PairID                string
	OriginMarketplace     string
	Collection            string
	CollectionBeneficiary [20]byte
	CollectionFeeBps      uint32
	Escrowed              bool
	HoldID                uint64
	CreatedAt             uint64
}

func newStoredSale(s *market.Sale) *storedSale {
	return &storedSale{
		ID:                    s.ID,
		Seller:                s.Seller,
		AssetIDs:              s.AssetIDs,
		BundleHash:            s.BundleHash,
		Price:                 nonNil(s.Price),
		Symbol:                s.Symbol,
		PairID:                s.PairID,
		OriginMarketplace:     s.OriginMarketplace,
		Collection:            s.Collection,
		CollectionBeneficiary: s.CollectionBeneficiary,
		CollectionFeeBps:      s.CollectionFeeBps,
		Escrowed:              s.Escrowed,
		HoldID:                s.HoldID,
		CreatedAt:             uint64(s.CreatedAt),
	}
}

func (s *storedSale) toSale() *market.Sale {
	return &market.Sale{
		ID:                    s.ID,
		Seller:                s.Seller,
		AssetIDs:              s.AssetIDs,
		BundleHash:            s.BundleHash,
		Price:                 nonNil(s.Price),
		Symbol:                s.Symbol,
		PairID:                s.PairID,
		OriginMarketplace:     s.OriginMarketplace,
		Collection:            s.Collection,
		CollectionBeneficiary: s.CollectionBeneficiary,
		CollectionFeeBps:      s.CollectionFeeBps,
		Escrowed:              s.Escrowed,
		HoldID:                s.HoldID,
		CreatedAt:             int64(s.CreatedAt),
	}
}

type storedAuction struct {
	ID                    uint64
	Seller                [20]byte
	AssetIDs              []uint64
	BundleHash            [32]byte
	Symbol                string
	CurrentBid            *big.Int
	Bidder                [20]byte
	HasBid                bool
	EndTime               uint64
	OriginMarketplace     string
	CompletionMarketplace string
	Collection            string
	CollectionBeneficiary [20]byte
	CollectionFeeBps      uint32
	EscrowReceived        bool
	ClaimedBySeller       bool
	ClaimedByBuyer        bool
	CreatedAt             uint64
}

func newStoredAuction(a *market.Auction) *storedAuction {
	return &storedAuction{
		ID:                    a.ID,
		Seller:                a.Seller,
		AssetIDs:              a.AssetIDs,
		BundleHash:            a.BundleHash,
		Symbol:                a.Symbol,
		CurrentBid:            nonNil(a.CurrentBid),
		Bidder:                a.Bidder,
		HasBid:                a.HasBid,
		EndTime:               uint64(a.EndTime),
		OriginMarketplace:     a.OriginMarketplace,
		CompletionMarketplace: a.CompletionMarketplace,
		Collection:            a.Collection,
		CollectionBeneficiary: a.CollectionBeneficiary,
		CollectionFeeBps:      a.CollectionFeeBps,
		EscrowReceived:        a.EscrowReceived,
		ClaimedBySeller:       a.ClaimedBySeller,
		ClaimedByBuyer:        a.ClaimedByBuyer,
		CreatedAt:             uint64(a.CreatedAt),
	}
}

func (a *storedAuction) toAuction() *market.Auction {
	return &market.Auction{
		ID:                    a.ID,
		Seller:                a.Seller,
		AssetIDs:              a.AssetIDs,
		BundleHash:            a.BundleHash,
		Symbol:                a.Symbol,
		CurrentBid:            nonNil(a.CurrentBid),
		Bidder:                a.Bidder,
		HasBid:                a.HasBid,
		EndTime:               int64(a.EndTime),
		OriginMarketplace:     a.OriginMarketplace,
		CompletionMarketplace: a.CompletionMarketplace,
		Collection:            a.Collection,
		CollectionBeneficiary: a.CollectionBeneficiary,
		CollectionFeeBps:      a.CollectionFeeBps,
		EscrowReceived:        a.EscrowReceived,
		ClaimedBySeller:       a.ClaimedBySeller,
		ClaimedByBuyer:        a.ClaimedByBuyer,
		CreatedAt:             int64(a.CreatedAt),
	}
}

type storedBuyOffer struct {
	ID                uint64
	Proposer          [20]byte
	Recipient         [20]byte
	AssetIDs          []uint64
	BundleHash        [32]byte
	Price             *big.Int
	Symbol            string
	Note              string
	OriginMarketplace string
	CreatedAt         uint64
}

func newStoredBuyOffer(o *market.BuyOffer) *storedBuyOffer {
	return &storedBuyOffer{
		ID:                o.ID,
		Proposer:          o.Proposer,
		Recipient:         o.Recipient,
		AssetIDs:          o.AssetIDs,
		BundleHash:        o.BundleHash,
		Price:             nonNil(o.Price),
		Symbol:            o.Symbol,
		Note:              o.Note,
		OriginMarketplace: o.OriginMarketplace,
		CreatedAt:         uint64(o.CreatedAt),
	}
}

func (o *storedBuyOffer) toBuyOffer() *market.BuyOffer {
	return &market.BuyOffer{
		ID:                o.ID,
		Proposer:          o.Proposer,
		Recipient:         o.Recipient,
		AssetIDs:          o.AssetIDs,
		BundleHash:        o.BundleHash,
		Price:             nonNil(o.Price),
		Symbol:            o.Symbol,
		Note:              o.Note,
		OriginMarketplace: o.OriginMarketplace,
		CreatedAt:         int64(o.CreatedAt),
	}
}

type storedAsset struct {
	ID           uint64
	Owner        [20]byte
	Collection   string
	Transferable bool
	HeldBy       uint64
}

func newStoredAsset(a *custody.Asset) *storedAsset {
	return &storedAsset{
		ID:           a.ID,
		Owner:        a.Owner,
		Collection:   a.Collection,
		Transferable: a.Transferable,
		HeldBy:       a.HeldBy,
	}
}

func (a *storedAsset) toAsset() *custody.Asset {
	return &custody.Asset{
		ID:           a.ID,
		Owner:        a.Owner,
		Collection:   a.Collection,
		Transferable: a.Transferable,
		HeldBy:       a.HeldBy,
	}
}

type storedHold struct {
	ID         uint64
	From       [20]byte
	AssetIDs   []uint64
	BundleHash [32]byte
	Active     bool
}

func newStoredHold(h *custody.Hold) *storedHold {
	return &storedHold{
		ID:         h.ID,
		From:       h.From,
		AssetIDs:   h.AssetIDs,
		BundleHash: h.BundleHash,
		Active:     h.Active,
	}
}

func (h *storedHold) toHold() *custody.Hold {
	return &custody.Hold{
		ID:         h.ID,
		From:       h.From,
		AssetIDs:   h.AssetIDs,
		BundleHash: h.BundleHash,
		Active:     h.Active,
	}
}

type storedCollection struct {
	Name   string
	Author [20]byte
	FeeBps uint32
}

func newStoredCollection(c *custody.Collection) *storedCollection {
	return &storedCollection{Name: c.Name, Author: c.Author, FeeBps: c.FeeBps}
}

func (c *storedCollection) toCollection() *custody.Collection {
	return &custody.Collection{Name: c.Name, Author: c.Author, FeeBps: c.FeeBps}
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
