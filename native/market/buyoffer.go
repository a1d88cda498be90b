package market

import (
	"fmt"
	"math/big"

	"marketd/native/bundle"
	"marketd/native/fees"
	"marketd/native/params"
)

// CreateBuyOffer opens a reverse listing: the proposer names a bundle held by
// the recipient and escrows the offered price in the balance ledger up front.
// The asymmetry against sales and auctions is intentional, here the buyer is
// the escrowing party.
func (e *Engine) CreateBuyOffer(p params.Market, proposer, recipient [20]byte, assetIDs []uint64, price *big.Int, symbol, note, originMarketplace string) (*BuyOffer, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	if proposer == recipient {
		return nil, fmt.Errorf("%w: cannot offer to yourself", ErrSelfTrade)
	}
	hash, err := bundle.Hash(assetIDs)
	if err != nil {
		return nil, err
	}
	normalized := params.NormalizeSymbol(symbol)
	if !p.SupportsSymbol(normalized) {
		return nil, fmt.Errorf("%w: %s", params.ErrUnsupportedCurrency, normalized)
	}
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("market: offer price must be positive")
	}
	origin, err := p.ResolveMarketplace(originMarketplace)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Debit(proposer, normalized, price, "Buy Offer"); err != nil {
		return nil, err
	}
	id, err := e.counters.Next(KindBuyOffer)
	if err != nil {
		return nil, err
	}
	offer := &BuyOffer{
		ID:                id,
		Proposer:          proposer,
		Recipient:         recipient,
		AssetIDs:          append([]uint64{}, assetIDs...),
		BundleHash:        hash,
		Price:             clonePrice(price),
		Symbol:            normalized,
		Note:              note,
		OriginMarketplace: origin,
		CreatedAt:         e.now(),
	}
	if err := e.state.BuyOfferPut(offer); err != nil {
		return nil, err
	}
	e.emit(newBuyOfferEvent(EventTypeBuyOfferCreated, offer))
	return offer.Clone(), nil
}

// CancelBuyOffer lets the proposer withdraw an open offer; the escrowed price
// returns to their ledger balance.
func (e *Engine) CancelBuyOffer(caller [20]byte, offerID uint64) error {
	return e.closeBuyOffer(caller, offerID, true)
}

// DeclineBuyOffer lets the recipient reject an open offer; the escrowed price
// returns to the proposer's ledger balance.
func (e *Engine) DeclineBuyOffer(caller [20]byte, offerID uint64) error {
	return e.closeBuyOffer(caller, offerID, false)
}

func (e *Engine) closeBuyOffer(caller [20]byte, offerID uint64, byProposer bool) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	offer, ok := e.state.BuyOfferGet(offerID)
	if !ok {
		return fmt.Errorf("%w: buy offer %d", ErrNotFound, offerID)
	}
	eventType := EventTypeBuyOfferDeclined
	reason := "Declined Buy Offer"
	if byProposer {
		eventType = EventTypeBuyOfferCancelled
		reason = "Cancelled Buy Offer"
		if caller != offer.Proposer {
			return fmt.Errorf("%w: only the proposer may cancel", ErrUnauthorized)
		}
	} else if caller != offer.Recipient {
		return fmt.Errorf("%w: only the recipient may decline", ErrUnauthorized)
	}
	if err := e.ledger.Credit(offer.Proposer, offer.Symbol, offer.Price, reason); err != nil {
		return err
	}
	if err := e.state.BuyOfferDelete(offer.ID); err != nil {
		return err
	}
	e.emit(newBuyOfferEvent(eventType, offer))
	return nil
}

// AcceptBuyOffer settles an offer. The recipient must have independently
// escrowed the exact bundle for this trade; custody's most recent escrow from
// the recipient is matched against the offer's asset-id set. The payout treats
// the recipient as the seller.
func (e *Engine) AcceptBuyOffer(p params.Market, caller [20]byte, offerID uint64, completionMarketplace string) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	offer, ok := e.state.BuyOfferGet(offerID)
	if !ok {
		return fmt.Errorf("%w: buy offer %d", ErrNotFound, offerID)
	}
	if caller != offer.Recipient {
		return fmt.Errorf("%w: only the recipient may accept", ErrUnauthorized)
	}
	if _, held := e.custody.LatestEscrowFrom(offer.Recipient, offer.AssetIDs); !held {
		return fmt.Errorf("%w: bundle not escrowed for this offer", ErrInvalidState)
	}
	completion, err := p.ResolveMarketplace(completionMarketplace)
	if err != nil {
		return err
	}
	origin, ok := p.MarketplaceByID(offer.OriginMarketplace)
	if !ok {
		return fmt.Errorf("%w: %s", params.ErrUnknownMarketplace, offer.OriginMarketplace)
	}
	taker, ok := p.MarketplaceByID(completion)
	if !ok {
		return fmt.Errorf("%w: %s", params.ErrUnknownMarketplace, completion)
	}
	collection, err := e.collections.BundleCollection(offer.AssetIDs)
	if err != nil {
		return err
	}
	author, err := e.collections.Author(collection)
	if err != nil {
		return err
	}
	collectionBps, err := e.collections.FeeBps(collection)
	if err != nil {
		return err
	}
	// Buy offers carry no creation-time fee snapshot, the live rate is
	// clamped to the platform maximum instead.
	if collectionBps > p.MaxCollectionFeeBps {
		collectionBps = p.MaxCollectionFeeBps
	}
	if _, err := fees.Apply(e.ledger, fees.Payout{
		Gross:                 offer.Price,
		Symbol:                offer.Symbol,
		Seller:                offer.Recipient,
		OriginBeneficiary:     origin.FeeAccount,
		CompletionBeneficiary: taker.FeeAccount,
		CollectionBeneficiary: author,
		CollectionBps:         collectionBps,
		MakerFeeBps:           p.MakerFeeBps,
		TakerFeeBps:           p.TakerFeeBps,
	}); err != nil {
		return err
	}
	if err := e.custody.FinalizeTransfer(offer.Proposer, offer.AssetIDs, "Buy offer accepted"); err != nil {
		return err
	}
	if err := e.state.BuyOfferDelete(offer.ID); err != nil {
		return err
	}
	e.emit(newBuyOfferEvent(EventTypeBuyOfferAccepted, offer))
	return nil
}

// GetBuyOffer returns a copy of the offer record.
func (e *Engine) GetBuyOffer(offerID uint64) (*BuyOffer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offer, ok := e.state.BuyOfferGet(offerID)
	if !ok {
		return nil, fmt.Errorf("%w: buy offer %d", ErrNotFound, offerID)
	}
	return offer.Clone(), nil
}
