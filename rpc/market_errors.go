package rpc

import (
	"errors"
	"net/http"

	"marketd/native/custody"
	"marketd/native/ledger"
	"marketd/native/market"
	"marketd/native/params"
	"marketd/native/pricing"
)

const (
	codeMarketInvalidParams = -32021
	codeMarketNotFound      = -32022
	codeMarketForbidden     = -32023
	codeMarketConflict      = -32024
	codeMarketInternal      = -32025
)

func writeMarketError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeMarketInternal
	message := "internal_error"
	switch {
	case errors.Is(err, market.ErrNotFound),
		errors.Is(err, custody.ErrAssetNotFound),
		errors.Is(err, custody.ErrHoldNotFound),
		errors.Is(err, custody.ErrUnknownCollection):
		status = http.StatusNotFound
		code = codeMarketNotFound
		message = "not_found"
	case errors.Is(err, market.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeMarketForbidden
		message = "forbidden"
	case errors.Is(err, market.ErrDuplicateListing),
		errors.Is(err, market.ErrInvalidState),
		errors.Is(err, market.ErrSelfTrade),
		errors.Is(err, market.ErrPriceMismatch),
		errors.Is(err, market.ErrBelowMinimumIncrease),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, pricing.ErrStaleQuote),
		errors.Is(err, custody.ErrNotOwner),
		errors.Is(err, custody.ErrAssetHeld):
		status = http.StatusConflict
		code = codeMarketConflict
		message = "conflict"
	case errors.Is(err, market.ErrCurrencyMismatch),
		errors.Is(err, market.ErrDurationOutOfRange),
		errors.Is(err, market.ErrCollectionFeeTooHigh),
		errors.Is(err, params.ErrUnsupportedCurrency),
		errors.Is(err, params.ErrUnsupportedPair),
		errors.Is(err, params.ErrUnknownMarketplace):
		status = http.StatusBadRequest
		code = codeMarketInvalidParams
		message = "invalid_params"
	}
	writeError(w, status, id, code, message, err.Error())
}
