package market

import (
	"fmt"
	"math/big"

	"marketd/native/bundle"
	"marketd/native/fees"
	"marketd/native/ledger"
	"marketd/native/params"
)

// AnnounceAuction creates an ascending-bid listing in the Announced state.
// Bidding opens once the seller's bundle transfer reaches custody. The
// duration must fall within the configured bounds.
func (e *Engine) AnnounceAuction(p params.Market, seller [20]byte, assetIDs []uint64, startingBid *big.Int, symbol string, duration int64, originMarketplace string) (*Auction, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	hash, err := bundle.Hash(assetIDs)
	if err != nil {
		return nil, err
	}
	normalized := params.NormalizeSymbol(symbol)
	if !p.SupportsSymbol(normalized) {
		return nil, fmt.Errorf("%w: %s", params.ErrUnsupportedCurrency, normalized)
	}
	if startingBid == nil || startingBid.Sign() <= 0 {
		return nil, fmt.Errorf("market: starting bid must be positive")
	}
	if duration < p.MinAuctionDuration || duration > p.MaxAuctionDuration {
		return nil, fmt.Errorf("%w: %ds not in [%d, %d]", ErrDurationOutOfRange, duration, p.MinAuctionDuration, p.MaxAuctionDuration)
	}
	origin, err := p.ResolveMarketplace(originMarketplace)
	if err != nil {
		return nil, err
	}
	if !e.custody.OwnsAndTransferable(seller, assetIDs) {
		return nil, fmt.Errorf("%w: seller does not own a transferable bundle", ErrUnauthorized)
	}
	if err := e.requireNoOpenListing(KindAuction, seller, hash, assetIDs); err != nil {
		return nil, err
	}
	snapshot, err := e.captureCollection(p, assetIDs)
	if err != nil {
		return nil, err
	}
	id, err := e.counters.Next(KindAuction)
	if err != nil {
		return nil, err
	}
	now := e.now()
	auction := &Auction{
		ID:                    id,
		Seller:                seller,
		AssetIDs:              append([]uint64{}, assetIDs...),
		BundleHash:            hash,
		Symbol:                normalized,
		CurrentBid:            clonePrice(startingBid),
		EndTime:               now + duration,
		OriginMarketplace:     origin,
		Collection:            snapshot.Collection,
		CollectionBeneficiary: snapshot.Beneficiary,
		CollectionFeeBps:      snapshot.FeeBps,
		CreatedAt:             now,
	}
	if err := e.state.AuctionPut(auction); err != nil {
		return nil, err
	}
	if err := e.state.BundleIndexAdd(KindAuction, seller, hash, id); err != nil {
		return nil, err
	}
	e.emit(newAuctionEvent(EventTypeAuctionAnnounced, auction))
	return auction.Clone(), nil
}

// HandleAuctionEscrow processes the bundle-received event from custody and
// opens bidding. A late arrival for an already expired auction is rejected
// rather than silently activated.
func (e *Engine) HandleAuctionEscrow(seller [20]byte, assetIDs []uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	auction, err := e.findAuctionByBundle(seller, assetIDs)
	if err != nil {
		return err
	}
	if auction.EscrowReceived {
		return fmt.Errorf("%w: auction %d already active", ErrInvalidState, auction.ID)
	}
	if e.now() >= auction.EndTime {
		return fmt.Errorf("%w: auction %d already ended", ErrInvalidState, auction.ID)
	}
	auction.EscrowReceived = true
	if err := e.state.AuctionPut(auction); err != nil {
		return err
	}
	e.emit(newAuctionEvent(EventTypeAuctionActivated, auction))
	return nil
}

// minNextBid returns the smallest acceptable bid given the current state.
// Subsequent bids must exceed the previous bid by the configured relative
// minimum; the threshold itself is accepted.
func minNextBid(a *Auction, minIncreaseBps uint32) *big.Int {
	if !a.HasBid {
		return clonePrice(a.CurrentBid)
	}
	increase := new(big.Int).Mul(a.CurrentBid, big.NewInt(int64(minIncreaseBps)))
	increase.Div(increase, big.NewInt(fees.BpsDenominator))
	return new(big.Int).Add(a.CurrentBid, increase)
}

// Bid places a bid on an active auction, refunding the previous bidder before
// recording the new one. The end-time only ever moves forward: it is extended
// to now+resetWindow whenever that lies beyond the current end.
func (e *Engine) Bid(p params.Market, bidder [20]byte, auctionID uint64, amount *big.Int, symbol, completionMarketplace string) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	auction, ok := e.state.AuctionGet(auctionID)
	if !ok {
		return fmt.Errorf("%w: auction %d", ErrNotFound, auctionID)
	}
	if bidder == auction.Seller {
		return fmt.Errorf("%w: cannot bid on own auction", ErrSelfTrade)
	}
	if !auction.EscrowReceived {
		return fmt.Errorf("%w: auction %d not active yet", ErrInvalidState, auction.ID)
	}
	now := e.now()
	if now >= auction.EndTime {
		return fmt.Errorf("%w: auction %d already ended", ErrInvalidState, auction.ID)
	}
	if params.NormalizeSymbol(symbol) != auction.Symbol {
		return fmt.Errorf("%w: auction %d bids in %s", ErrCurrencyMismatch, auction.ID, auction.Symbol)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("market: bid must be positive")
	}
	if amount.Cmp(minNextBid(auction, p.MinBidIncreaseBps)) < 0 {
		return fmt.Errorf("%w: auction %d", ErrBelowMinimumIncrease, auction.ID)
	}
	completion, err := p.ResolveMarketplace(completionMarketplace)
	if err != nil {
		return err
	}
	// Front-load the funds check so the outbid refund and the new debit
	// commit together or not at all. A bidder raising their own standing bid
	// gets it refunded first, so only the difference must be covered.
	required := amount
	if auction.HasBid && auction.Bidder == bidder {
		required = new(big.Int).Sub(amount, auction.CurrentBid)
	}
	if e.ledger.BalanceOf(bidder, auction.Symbol).Cmp(required) < 0 {
		return fmt.Errorf("%w: bid of %s %s", ledger.ErrInsufficientFunds, amount, auction.Symbol)
	}
	if auction.HasBid {
		if err := e.ledger.Credit(auction.Bidder, auction.Symbol, auction.CurrentBid, "Auction outbid refund"); err != nil {
			return err
		}
	}
	if err := e.ledger.Debit(bidder, auction.Symbol, amount, "Auction bid"); err != nil {
		return err
	}
	auction.CurrentBid = clonePrice(amount)
	auction.Bidder = bidder
	auction.HasBid = true
	auction.CompletionMarketplace = completion
	if extended := now + p.AntiSnipeWindow; extended > auction.EndTime {
		auction.EndTime = extended
	}
	if err := e.state.AuctionPut(auction); err != nil {
		return err
	}
	e.emit(newAuctionBidEvent(auction))
	return nil
}

// ClaimAuctionBuyer transfers the bundle to the winning bidder after the
// auction ends. Each side claims independently, in either order; the record is
// deleted once both flags are set.
func (e *Engine) ClaimAuctionBuyer(caller [20]byte, auctionID uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	auction, err := e.loadEndedAuction(auctionID)
	if err != nil {
		return err
	}
	if caller != auction.Bidder {
		return fmt.Errorf("%w: only the highest bidder may claim", ErrUnauthorized)
	}
	if auction.ClaimedByBuyer {
		return fmt.Errorf("%w: auction %d already claimed by buyer", ErrInvalidState, auction.ID)
	}
	if err := e.custody.FinalizeTransfer(auction.Bidder, auction.AssetIDs, "You won an auction"); err != nil {
		return err
	}
	auction.ClaimedByBuyer = true
	if auction.ClaimedBySeller {
		if err := e.deleteAuction(auction); err != nil {
			return err
		}
	} else {
		if err := e.state.AuctionPut(auction); err != nil {
			return err
		}
	}
	e.emit(newAuctionEvent(EventTypeAuctionClaimedBuyer, auction))
	return nil
}

// ClaimAuctionSeller pays out the winning bid to the seller and the fee
// beneficiaries after the auction ends.
func (e *Engine) ClaimAuctionSeller(p params.Market, caller [20]byte, auctionID uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	auction, err := e.loadEndedAuction(auctionID)
	if err != nil {
		return err
	}
	if caller != auction.Seller {
		return fmt.Errorf("%w: only the seller may claim the proceeds", ErrUnauthorized)
	}
	if auction.ClaimedBySeller {
		return fmt.Errorf("%w: auction %d already claimed by seller", ErrInvalidState, auction.ID)
	}
	origin, ok := p.MarketplaceByID(auction.OriginMarketplace)
	if !ok {
		return fmt.Errorf("%w: %s", params.ErrUnknownMarketplace, auction.OriginMarketplace)
	}
	completion, ok := p.MarketplaceByID(auction.CompletionMarketplace)
	if !ok {
		return fmt.Errorf("%w: %s", params.ErrUnknownMarketplace, auction.CompletionMarketplace)
	}
	if _, err := fees.Apply(e.ledger, fees.Payout{
		Gross:                 auction.CurrentBid,
		Symbol:                auction.Symbol,
		Seller:                auction.Seller,
		OriginBeneficiary:     origin.FeeAccount,
		CompletionBeneficiary: completion.FeeAccount,
		CollectionBeneficiary: auction.CollectionBeneficiary,
		CollectionBps:         auction.CollectionFeeBps,
		MakerFeeBps:           p.MakerFeeBps,
		TakerFeeBps:           p.TakerFeeBps,
	}); err != nil {
		return err
	}
	auction.ClaimedBySeller = true
	if auction.ClaimedByBuyer {
		if err := e.deleteAuction(auction); err != nil {
			return err
		}
	} else {
		if err := e.state.AuctionPut(auction); err != nil {
			return err
		}
	}
	e.emit(newAuctionEvent(EventTypeAuctionClaimedSeller, auction))
	return nil
}

// CancelAuction withdraws an auction that has not attracted a bid. Before
// escrow arrives the record is simply removed; once the bundle is held the
// seller gets it back. Auctions with a bid always run to completion.
func (e *Engine) CancelAuction(caller [20]byte, auctionID uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	auction, ok := e.state.AuctionGet(auctionID)
	if !ok {
		return fmt.Errorf("%w: auction %d", ErrNotFound, auctionID)
	}
	if caller != auction.Seller {
		return fmt.Errorf("%w: only the seller may cancel an auction", ErrUnauthorized)
	}
	if auction.HasBid {
		return fmt.Errorf("%w: auctions with a bid cannot be cancelled", ErrInvalidState)
	}
	if auction.EscrowReceived {
		if err := e.custody.FinalizeTransfer(auction.Seller, auction.AssetIDs, "Cancelled Auction"); err != nil {
			return err
		}
	}
	if err := e.deleteAuction(auction); err != nil {
		return err
	}
	e.emit(newAuctionEvent(EventTypeAuctionCancelled, auction))
	return nil
}

// GetAuction returns a copy of the auction record.
func (e *Engine) GetAuction(auctionID uint64) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	auction, ok := e.state.AuctionGet(auctionID)
	if !ok {
		return nil, fmt.Errorf("%w: auction %d", ErrNotFound, auctionID)
	}
	return auction.Clone(), nil
}

// FindAuctionByBundle resolves a seller's open auction for the asset-id set.
func (e *Engine) FindAuctionByBundle(seller [20]byte, assetIDs []uint64) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	auction, err := e.findAuctionByBundle(seller, assetIDs)
	if err != nil {
		return nil, err
	}
	return auction.Clone(), nil
}

func (e *Engine) findAuctionByBundle(seller [20]byte, assetIDs []uint64) (*Auction, error) {
	hash, err := bundle.Hash(assetIDs)
	if err != nil {
		return nil, err
	}
	ids, err := e.state.BundleIndexGet(KindAuction, seller, hash)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		auction, ok := e.state.AuctionGet(id)
		if !ok {
			continue
		}
		if bundle.Equal(auction.AssetIDs, assetIDs) {
			return auction, nil
		}
	}
	return nil, fmt.Errorf("%w: no auction by this seller for the bundle", ErrNotFound)
}

func (e *Engine) loadEndedAuction(auctionID uint64) (*Auction, error) {
	auction, ok := e.state.AuctionGet(auctionID)
	if !ok {
		return nil, fmt.Errorf("%w: auction %d", ErrNotFound, auctionID)
	}
	if !auction.EscrowReceived {
		return nil, fmt.Errorf("%w: auction %d never became active", ErrInvalidState, auction.ID)
	}
	if e.now() <= auction.EndTime {
		return nil, fmt.Errorf("%w: auction %d has not ended", ErrInvalidState, auction.ID)
	}
	if !auction.HasBid {
		return nil, fmt.Errorf("%w: auction %d has no bids", ErrInvalidState, auction.ID)
	}
	return auction, nil
}

func (e *Engine) deleteAuction(auction *Auction) error {
	if err := e.state.BundleIndexRemove(KindAuction, auction.Seller, auction.BundleHash, auction.ID); err != nil {
		return err
	}
	return e.state.AuctionDelete(auction.ID)
}
