package ledger

import (
	"encoding/hex"
	"math/big"

	"marketd/core/events"
	"marketd/core/types"
)

const (
	EventTypeBalanceCredited = "ledger.credited"
	EventTypeBalanceDebited  = "ledger.debited"
)

type ledgerEvent struct {
	evt *types.Event
}

func (e ledgerEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e ledgerEvent) Event() *types.Event { return e.evt }

// NewCreditedEvent returns the canonical payload logged for every balance
// increase, mirroring the external balance-change log feed.
func NewCreditedEvent(owner [20]byte, symbol string, amount *big.Int, reason string) events.Event {
	return newBalanceEvent(EventTypeBalanceCredited, owner, symbol, amount, reason)
}

// NewDebitedEvent returns the canonical payload logged for every balance
// decrease.
func NewDebitedEvent(owner [20]byte, symbol string, amount *big.Int, reason string) events.Event {
	return newBalanceEvent(EventTypeBalanceDebited, owner, symbol, amount, reason)
}

func newBalanceEvent(eventType string, owner [20]byte, symbol string, amount *big.Int, reason string) events.Event {
	amt := "0"
	if amount != nil {
		amt = amount.String()
	}
	return ledgerEvent{evt: types.New(eventType, map[string]string{
		"owner":  "0x" + hex.EncodeToString(owner[:]),
		"symbol": symbol,
		"amount": amt,
		"reason": reason,
	})}
}
