package params

import (
	"errors"
	"strings"
)

var (
	// ErrUnsupportedCurrency indicates a currency symbol outside the configured set.
	ErrUnsupportedCurrency = errors.New("params: unsupported currency")
	// ErrUnsupportedPair indicates a price pair outside the configured set.
	ErrUnsupportedPair = errors.New("params: unsupported pair")
	// ErrUnknownMarketplace indicates a marketplace id that has not been registered.
	ErrUnknownMarketplace = errors.New("params: unknown marketplace")
)

// Currency describes a supported settlement token and its fixed-point scale.
type Currency struct {
	Symbol   string
	Decimals uint8
}

// Pair describes a supported price-conversion pair. Listings denominated in
// ListingSymbol settle in SettlementSymbol using the oracle median for the
// pair. Inverted pairs quote settlement-per-listing instead of
// listing-per-settlement.
type Pair struct {
	ID               string
	ListingSymbol    string
	SettlementSymbol string
	Inverted         bool
}

// Marketplace maps a registered marketplace id to its fee beneficiary.
type Marketplace struct {
	ID         string
	FeeAccount [20]byte
}

// Market is the immutable configuration snapshot passed into every engine
// transition. Core logic never reads ambient configuration state.
type Market struct {
	Currencies          []Currency
	Pairs               []Pair
	Marketplaces        []Marketplace
	MakerFeeBps         uint32
	TakerFeeBps         uint32
	MaxCollectionFeeBps uint32
	MinAuctionDuration  int64
	MaxAuctionDuration  int64
	MinBidIncreaseBps   uint32
	AntiSnipeWindow     int64
	DefaultMarketplace  string
}

// NormalizeSymbol canonicalises currency symbols for consistent lookups.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Currency resolves the supported currency with the given symbol.
func (m Market) Currency(symbol string) (Currency, bool) {
	normalized := NormalizeSymbol(symbol)
	for _, c := range m.Currencies {
		if c.Symbol == normalized {
			return c, true
		}
	}
	return Currency{}, false
}

// SupportsSymbol reports whether the symbol belongs to a supported currency.
func (m Market) SupportsSymbol(symbol string) bool {
	_, ok := m.Currency(symbol)
	return ok
}

// PairByID resolves a supported pair by its identifier.
func (m Market) PairByID(id string) (Pair, bool) {
	trimmed := strings.TrimSpace(id)
	for _, p := range m.Pairs {
		if p.ID == trimmed {
			return p, true
		}
	}
	return Pair{}, false
}

// MarketplaceByID resolves a registered marketplace. The empty id resolves to
// the configured default marketplace.
func (m Market) MarketplaceByID(id string) (Marketplace, bool) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		trimmed = m.DefaultMarketplace
	}
	for _, mp := range m.Marketplaces {
		if mp.ID == trimmed {
			return mp, true
		}
	}
	return Marketplace{}, false
}

// ResolveMarketplace returns the canonical marketplace id for the supplied
// value, substituting the default for the empty string.
func (m Market) ResolveMarketplace(id string) (string, error) {
	mp, ok := m.MarketplaceByID(id)
	if !ok {
		return "", ErrUnknownMarketplace
	}
	return mp.ID, nil
}
