package market

import (
	"fmt"
	"math/big"

	"marketd/native/bundle"
	"marketd/native/fees"
	"marketd/native/params"
)

// AnnounceSale creates a fixed-price listing in the Announced state. The sale
// only becomes purchasable once the seller's escrow offer arrives. Listings
// with a pairID are denominated in the pair's display currency and settle via
// the price conversion adapter at purchase time.
func (e *Engine) AnnounceSale(p params.Market, seller [20]byte, assetIDs []uint64, price *big.Int, symbol, pairID, originMarketplace string) (*Sale, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	hash, err := bundle.Hash(assetIDs)
	if err != nil {
		return nil, err
	}
	displaySymbol := params.NormalizeSymbol(symbol)
	if pairID != "" {
		pair, ok := p.PairByID(pairID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", params.ErrUnsupportedPair, pairID)
		}
		if displaySymbol == "" {
			displaySymbol = pair.ListingSymbol
		}
		if displaySymbol != pair.ListingSymbol {
			return nil, fmt.Errorf("%w: pair %s lists in %s", ErrCurrencyMismatch, pair.ID, pair.ListingSymbol)
		}
		pairID = pair.ID
	} else if !p.SupportsSymbol(displaySymbol) {
		return nil, fmt.Errorf("%w: %s", params.ErrUnsupportedCurrency, displaySymbol)
	}
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("market: sale price must be positive")
	}
	origin, err := p.ResolveMarketplace(originMarketplace)
	if err != nil {
		return nil, err
	}
	if !e.custody.OwnsAndTransferable(seller, assetIDs) {
		return nil, fmt.Errorf("%w: seller does not own a transferable bundle", ErrUnauthorized)
	}
	if err := e.requireNoOpenListing(KindSale, seller, hash, assetIDs); err != nil {
		return nil, err
	}
	snapshot, err := e.captureCollection(p, assetIDs)
	if err != nil {
		return nil, err
	}
	id, err := e.counters.Next(KindSale)
	if err != nil {
		return nil, err
	}
	sale := &Sale{
		ID:                    id,
		Seller:                seller,
		AssetIDs:              append([]uint64{}, assetIDs...),
		BundleHash:            hash,
		Price:                 clonePrice(price),
		Symbol:                displaySymbol,
		PairID:                pairID,
		OriginMarketplace:     origin,
		Collection:            snapshot.Collection,
		CollectionBeneficiary: snapshot.Beneficiary,
		CollectionFeeBps:      snapshot.FeeBps,
		CreatedAt:             e.now(),
	}
	if err := e.state.SalePut(sale); err != nil {
		return nil, err
	}
	if err := e.state.BundleIndexAdd(KindSale, seller, hash, id); err != nil {
		return nil, err
	}
	e.emit(newSaleEvent(EventTypeSaleAnnounced, sale))
	return sale.Clone(), nil
}

// HandleSaleEscrow processes an escrow-offer event from the custody oracle,
// resolving the open sale by (seller, bundle hash). The escrow marker
// transitions unset to set exactly once; re-arrival is rejected.
func (e *Engine) HandleSaleEscrow(holdID uint64, seller [20]byte, assetIDs []uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	sale, err := e.findSaleByBundle(seller, assetIDs)
	if err != nil {
		return err
	}
	if sale.Escrowed {
		return fmt.Errorf("%w: sale %d already escrowed", ErrInvalidState, sale.ID)
	}
	sale.Escrowed = true
	sale.HoldID = holdID
	if err := e.state.SalePut(sale); err != nil {
		return err
	}
	e.emit(newSaleEvent(EventTypeSaleEscrowed, sale))
	return nil
}

// PurchaseSale settles a sale for the buyer. The intended price binds the
// buyer to the listed price; for converted listings the intended median binds
// them to a pre-computable settlement amount. The conversion is recomputed
// here, never cached.
func (e *Engine) PurchaseSale(p params.Market, buyer [20]byte, saleID uint64, intendedPrice *big.Int, intendedMedian uint64, completionMarketplace string) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	sale, ok := e.state.SaleGet(saleID)
	if !ok {
		return fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
	}
	if buyer == sale.Seller {
		return fmt.Errorf("%w: cannot purchase own sale", ErrSelfTrade)
	}
	if !sale.Escrowed {
		return fmt.Errorf("%w: sale %d not escrowed yet", ErrInvalidState, sale.ID)
	}
	if !e.custody.HoldActive(sale.HoldID) {
		return fmt.Errorf("%w: escrow hold for sale %d was withdrawn", ErrInvalidState, sale.ID)
	}
	if intendedPrice == nil || sale.Price.Cmp(intendedPrice) != 0 {
		return fmt.Errorf("%w: sale %d", ErrPriceMismatch, sale.ID)
	}
	completion, err := p.ResolveMarketplace(completionMarketplace)
	if err != nil {
		return err
	}
	settleAmount := clonePrice(sale.Price)
	settleSymbol := sale.Symbol
	if sale.PairID != "" {
		if e.pricing == nil {
			return errNilPricing
		}
		settleAmount, settleSymbol, err = e.pricing.Settle(p, sale.PairID, sale.Price, intendedMedian)
		if err != nil {
			return err
		}
	}
	origin, ok := p.MarketplaceByID(sale.OriginMarketplace)
	if !ok {
		return fmt.Errorf("%w: %s", params.ErrUnknownMarketplace, sale.OriginMarketplace)
	}
	taker, ok := p.MarketplaceByID(completion)
	if !ok {
		return fmt.Errorf("%w: %s", params.ErrUnknownMarketplace, completion)
	}
	if err := e.ledger.Debit(buyer, settleSymbol, settleAmount, "Purchased Sale"); err != nil {
		return err
	}
	if _, err := fees.Apply(e.ledger, fees.Payout{
		Gross:                 settleAmount,
		Symbol:                settleSymbol,
		Seller:                sale.Seller,
		OriginBeneficiary:     origin.FeeAccount,
		CompletionBeneficiary: taker.FeeAccount,
		CollectionBeneficiary: sale.CollectionBeneficiary,
		CollectionBps:         sale.CollectionFeeBps,
		MakerFeeBps:           p.MakerFeeBps,
		TakerFeeBps:           p.TakerFeeBps,
	}); err != nil {
		return err
	}
	if err := e.custody.FinalizeTransfer(buyer, sale.AssetIDs, "You purchased this bundle"); err != nil {
		return err
	}
	if err := e.deleteSale(sale); err != nil {
		return err
	}
	e.emit(newSalePurchasedEvent(sale, buyer, settleSymbol, settleAmount))
	return nil
}

// CancelSale removes a sale. The originator may always cancel; anyone may
// cancel a listing detected invalid (dead escrow hold, or bundle no longer
// owned by the seller) so a stuck record cannot squat on the lookup index.
func (e *Engine) CancelSale(caller [20]byte, saleID uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	sale, ok := e.state.SaleGet(saleID)
	if !ok {
		return fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
	}
	if caller != sale.Seller && e.saleValid(sale) {
		return fmt.Errorf("%w: only the seller may cancel a valid sale", ErrUnauthorized)
	}
	if sale.Escrowed && e.custody.HoldActive(sale.HoldID) {
		if err := e.custody.CancelHold(sale.HoldID); err != nil {
			return err
		}
	}
	if err := e.deleteSale(sale); err != nil {
		return err
	}
	e.emit(newSaleEvent(EventTypeSaleCancelled, sale))
	return nil
}

// GetSale returns a copy of the sale record.
func (e *Engine) GetSale(saleID uint64) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	sale, ok := e.state.SaleGet(saleID)
	if !ok {
		return nil, fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
	}
	return sale.Clone(), nil
}

// FindSaleByBundle resolves a seller's open sale for the given asset-id set.
func (e *Engine) FindSaleByBundle(seller [20]byte, assetIDs []uint64) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	sale, err := e.findSaleByBundle(seller, assetIDs)
	if err != nil {
		return nil, err
	}
	return sale.Clone(), nil
}

func (e *Engine) findSaleByBundle(seller [20]byte, assetIDs []uint64) (*Sale, error) {
	hash, err := bundle.Hash(assetIDs)
	if err != nil {
		return nil, err
	}
	ids, err := e.state.BundleIndexGet(KindSale, seller, hash)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		sale, ok := e.state.SaleGet(id)
		if !ok {
			continue
		}
		if bundle.Equal(sale.AssetIDs, assetIDs) {
			return sale, nil
		}
	}
	return nil, fmt.Errorf("%w: no sale by this seller for the bundle", ErrNotFound)
}

func (e *Engine) saleValid(sale *Sale) bool {
	if sale.Escrowed {
		return e.custody.HoldActive(sale.HoldID)
	}
	return e.custody.OwnsAndTransferable(sale.Seller, sale.AssetIDs)
}

func (e *Engine) deleteSale(sale *Sale) error {
	if err := e.state.BundleIndexRemove(KindSale, sale.Seller, sale.BundleHash, sale.ID); err != nil {
		return err
	}
	return e.state.SaleDelete(sale.ID)
}
