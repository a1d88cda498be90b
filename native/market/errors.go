package market

import (
	"errors"

	"marketd/native/params"
)

var (
	errNilState       = errors.New("market engine: state not configured")
	errNilLedger      = errors.New("market engine: ledger not configured")
	errNilCounters    = errors.New("market engine: counter allocator not configured")
	errNilCustody     = errors.New("market engine: custody oracle not configured")
	errNilCollections = errors.New("market engine: collection oracle not configured")
	errNilPricing     = errors.New("market engine: pricing adapter not configured")

	// ErrNotFound indicates an unknown listing id or bundle.
	ErrNotFound = errors.New("market: listing not found")
	// ErrUnauthorized indicates the caller lacks the capability for the
	// attempted transition.
	ErrUnauthorized = errors.New("market: unauthorized caller")
	// ErrInvalidState indicates a transition attempted from a state that does
	// not permit it.
	ErrInvalidState = errors.New("market: transition not allowed in current state")
	// ErrDuplicateListing indicates the seller already has an open listing of
	// this type for the same bundle. New listings are flatly rejected rather
	// than replacing the previous one.
	ErrDuplicateListing = errors.New("market: bundle already listed by this account")
	// ErrSelfTrade indicates an attempt to trade against one's own listing.
	ErrSelfTrade = errors.New("market: cannot trade against own listing")
	// ErrPriceMismatch indicates the intended price does not match the listing.
	ErrPriceMismatch = errors.New("market: intended price does not match listing")
	// ErrCurrencyMismatch indicates a bid or price in the wrong currency.
	ErrCurrencyMismatch = errors.New("market: currency does not match listing")
	// ErrBelowMinimumIncrease indicates a bid under the configured relative
	// minimum over the previous bid.
	ErrBelowMinimumIncrease = errors.New("market: bid below minimum relative increase")
	// ErrDurationOutOfRange indicates an auction duration outside the
	// configured bounds.
	ErrDurationOutOfRange = errors.New("market: auction duration out of range")
	// ErrCollectionFeeTooHigh indicates the collection fee exceeds the
	// platform-wide maximum at capture time.
	ErrCollectionFeeTooHigh = errors.New("market: collection fee above platform maximum")

	// ErrUnsupportedCurrency aliases the params sentinel for callers matching
	// on this package.
	ErrUnsupportedCurrency = params.ErrUnsupportedCurrency
)
