package market

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"marketd/core/events"
	"marketd/core/types"
)

const (
	EventTypeSaleAnnounced        = "market.sale.announced"
	EventTypeSaleEscrowed         = "market.sale.escrowed"
	EventTypeSalePurchased        = "market.sale.purchased"
	EventTypeSaleCancelled        = "market.sale.cancelled"
	EventTypeAuctionAnnounced     = "market.auction.announced"
	EventTypeAuctionActivated     = "market.auction.activated"
	EventTypeAuctionBid           = "market.auction.bid"
	EventTypeAuctionClaimedBuyer  = "market.auction.claimed_buyer"
	EventTypeAuctionClaimedSeller = "market.auction.claimed_seller"
	EventTypeAuctionCancelled     = "market.auction.cancelled"
	EventTypeBuyOfferCreated      = "market.buyoffer.created"
	EventTypeBuyOfferAccepted     = "market.buyoffer.accepted"
	EventTypeBuyOfferDeclined     = "market.buyoffer.declined"
	EventTypeBuyOfferCancelled    = "market.buyoffer.cancelled"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

func addrString(a [20]byte) string {
	return "0x" + hex.EncodeToString(a[:])
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func assetIDsString(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func newSaleEvent(eventType string, s *Sale) events.Event {
	return marketEvent{evt: types.New(eventType, map[string]string{
		"id":         strconv.FormatUint(s.ID, 10),
		"seller":     addrString(s.Seller),
		"assets":     assetIDsString(s.AssetIDs),
		"bundleHash": hex.EncodeToString(s.BundleHash[:]),
		"price":      amountString(s.Price),
		"symbol":     s.Symbol,
		"pair":       s.PairID,
		"origin":     s.OriginMarketplace,
	})}
}

func newSalePurchasedEvent(s *Sale, buyer [20]byte, settleSymbol string, settleAmount *big.Int) events.Event {
	evt := newSaleEvent(EventTypeSalePurchased, s).(marketEvent)
	evt.evt.Attributes["buyer"] = addrString(buyer)
	evt.evt.Attributes["settleSymbol"] = settleSymbol
	evt.evt.Attributes["settleAmount"] = amountString(settleAmount)
	return evt
}

func newAuctionEvent(eventType string, a *Auction) events.Event {
	return marketEvent{evt: types.New(eventType, map[string]string{
		"id":         strconv.FormatUint(a.ID, 10),
		"seller":     addrString(a.Seller),
		"assets":     assetIDsString(a.AssetIDs),
		"bundleHash": hex.EncodeToString(a.BundleHash[:]),
		"currentBid": amountString(a.CurrentBid),
		"symbol":     a.Symbol,
		"endTime":    strconv.FormatInt(a.EndTime, 10),
		"origin":     a.OriginMarketplace,
	})}
}

func newAuctionBidEvent(a *Auction) events.Event {
	evt := newAuctionEvent(EventTypeAuctionBid, a).(marketEvent)
	evt.evt.Attributes["bidder"] = addrString(a.Bidder)
	evt.evt.Attributes["completion"] = a.CompletionMarketplace
	return evt
}

func newBuyOfferEvent(eventType string, o *BuyOffer) events.Event {
	return marketEvent{evt: types.New(eventType, map[string]string{
		"id":        strconv.FormatUint(o.ID, 10),
		"proposer":  addrString(o.Proposer),
		"recipient": addrString(o.Recipient),
		"assets":    assetIDsString(o.AssetIDs),
		"price":     amountString(o.Price),
		"symbol":    o.Symbol,
		"note":      o.Note,
	})}
}
