package pricing

import (
	"errors"
	"fmt"
	"math/big"

	"marketd/native/params"
)

var (
	errNilFeed = errors.New("pricing: feed not configured")
	// ErrStaleQuote indicates no oracle observation carries the named median.
	ErrStaleQuote = errors.New("pricing: no observation with intended median")
	// ErrUnsupportedPair aliases the params sentinel for callers matching on
	// this package.
	ErrUnsupportedPair = params.ErrUnsupportedPair
)

// Feed is the read-only price-feed collaborator. Observations are published
// externally; the adapter only verifies that the caller-named median exists in
// the recent window and resolves the pair's quoted precision.
type Feed interface {
	HasObservation(pairID string, median uint64) bool
	PairPrecision(pairID string) (uint8, error)
}

// Convert translates a listing amount denominated in the display currency into
// the settlement currency using the oracle median. All math is integer-only
// with a single truncating division at the end, so the result is the floor of
// the exact rational value.
//
// Non-inverted pairs quote display-per-settlement:
//
//	settle = listing / median * 10^(precision + settleScale - listScale)
//
// Inverted pairs quote settlement-per-display:
//
//	settle = listing * median * 10^(-precision + settleScale - listScale)
func Convert(listing *big.Int, listScale, settleScale uint8, median uint64, precision uint8, inverted bool) (*big.Int, error) {
	if listing == nil || listing.Sign() < 0 {
		return nil, fmt.Errorf("pricing: listing amount must be non-negative")
	}
	if median == 0 {
		return nil, fmt.Errorf("pricing: zero oracle median")
	}
	medianInt := new(big.Int).SetUint64(median)
	var numerator, denominator *big.Int
	if inverted {
		exp := int(settleScale) - int(listScale) - int(precision)
		numerator = new(big.Int).Mul(listing, medianInt)
		if exp >= 0 {
			numerator.Mul(numerator, pow10(exp))
			denominator = big.NewInt(1)
		} else {
			denominator = pow10(-exp)
		}
	} else {
		exp := int(precision) + int(settleScale) - int(listScale)
		numerator = new(big.Int).Set(listing)
		denominator = new(big.Int).Set(medianInt)
		if exp >= 0 {
			numerator.Mul(numerator, pow10(exp))
		} else {
			denominator.Mul(denominator, pow10(-exp))
		}
	}
	return numerator.Div(numerator, denominator), nil
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// Adapter binds the conversion math to a price feed.
type Adapter struct {
	feed Feed
}

// NewAdapter constructs an adapter over the supplied feed.
func NewAdapter(feed Feed) *Adapter {
	return &Adapter{feed: feed}
}

// Settle converts a listing price into the settlement currency of its pair.
// The caller names the oracle median it observed; if no observation with
// exactly that median exists the purchase is rejected with ErrStaleQuote
// rather than silently using a fresher price. The conversion is recomputed on
// every call, never cached.
func (a *Adapter) Settle(p params.Market, pairID string, listing *big.Int, median uint64) (*big.Int, string, error) {
	if a == nil || a.feed == nil {
		return nil, "", errNilFeed
	}
	pair, ok := p.PairByID(pairID)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedPair, pairID)
	}
	listingCurrency, ok := p.Currency(pair.ListingSymbol)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", params.ErrUnsupportedCurrency, pair.ListingSymbol)
	}
	settleCurrency, ok := p.Currency(pair.SettlementSymbol)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", params.ErrUnsupportedCurrency, pair.SettlementSymbol)
	}
	if !a.feed.HasObservation(pair.ID, median) {
		return nil, "", fmt.Errorf("%w: pair %s median %d", ErrStaleQuote, pair.ID, median)
	}
	precision, err := a.feed.PairPrecision(pair.ID)
	if err != nil {
		return nil, "", err
	}
	amount, err := Convert(listing, listingCurrency.Decimals, settleCurrency.Decimals, median, precision, pair.Inverted)
	if err != nil {
		return nil, "", err
	}
	return amount, settleCurrency.Symbol, nil
}
