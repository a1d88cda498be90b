package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"marketd/core/events"
	"marketd/native/params"
)

var (
	errNilState = errors.New("ledger engine: state not configured")
	// ErrNotFound indicates the account has no balance row at all.
	ErrNotFound = errors.New("ledger: balance not found")
	// ErrInsufficientFunds indicates the account cannot cover a debit.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
)

// Quantity is a fixed-point amount of a single currency. The currency's
// configured decimals define the scale.
type Quantity struct {
	Symbol string
	Amount *big.Int
}

// Balance is the per-account balance row. A row never carries a zero-amount
// entry; an account without entries has no row.
type Balance struct {
	Owner      [20]byte
	Quantities []Quantity
}

// Clone returns a deep copy so callers can mutate the copy safely.
func (b *Balance) Clone() *Balance {
	if b == nil {
		return nil
	}
	clone := &Balance{Owner: b.Owner, Quantities: make([]Quantity, len(b.Quantities))}
	for i, q := range b.Quantities {
		clone.Quantities[i] = Quantity{Symbol: q.Symbol, Amount: cloneBigInt(q.Amount)}
	}
	return clone
}

// State is the narrow persistence surface required by the ledger engine.
type State interface {
	BalanceGet(owner [20]byte) (*Balance, bool)
	BalancePut(*Balance) error
	BalanceDelete(owner [20]byte) error
}

// Engine applies balance mutations for every other marketplace component.
// Credits and debits are atomic with respect to a single listing transition;
// the caller guarantees single-writer ordering.
type Engine struct {
	state   State
	emitter events.Emitter
}

// NewEngine creates a ledger engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Credit adds the quantity to the owner's balance, creating the row or the
// currency entry as needed. Zero amounts are a no-op. Credit never fails for
// a well-formed quantity.
func (e *Engine) Credit(owner [20]byte, symbol string, amount *big.Int, reason string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("ledger: negative credit amount")
	}
	normalized := params.NormalizeSymbol(symbol)
	balance, ok := e.state.BalanceGet(owner)
	if !ok {
		balance = &Balance{Owner: owner}
	}
	found := false
	for i := range balance.Quantities {
		if balance.Quantities[i].Symbol == normalized {
			balance.Quantities[i].Amount = new(big.Int).Add(balance.Quantities[i].Amount, amt)
			found = true
			break
		}
	}
	if !found {
		balance.Quantities = append(balance.Quantities, Quantity{Symbol: normalized, Amount: amt})
	}
	if err := e.state.BalancePut(balance); err != nil {
		return err
	}
	e.emit(NewCreditedEvent(owner, normalized, amt, reason))
	return nil
}

// Debit subtracts the quantity from the owner's balance. It fails with
// ErrInsufficientFunds when the row is missing, the currency entry is missing,
// or the entry is smaller than the amount. Entries reaching zero are removed
// and the row is deleted once the last entry goes.
func (e *Engine) Debit(owner [20]byte, symbol string, amount *big.Int, reason string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("ledger: negative debit amount")
	}
	normalized := params.NormalizeSymbol(symbol)
	balance, ok := e.state.BalanceGet(owner)
	if !ok {
		return fmt.Errorf("%w: no balance row", ErrInsufficientFunds)
	}
	found := false
	for i := range balance.Quantities {
		entry := &balance.Quantities[i]
		if entry.Symbol != normalized {
			continue
		}
		found = true
		if entry.Amount.Cmp(amt) < 0 {
			return fmt.Errorf("%w: %s balance too low", ErrInsufficientFunds, normalized)
		}
		entry.Amount = new(big.Int).Sub(entry.Amount, amt)
		if entry.Amount.Sign() == 0 {
			balance.Quantities = append(balance.Quantities[:i], balance.Quantities[i+1:]...)
		}
		break
	}
	if !found {
		return fmt.Errorf("%w: no %s entry", ErrInsufficientFunds, normalized)
	}
	if len(balance.Quantities) == 0 {
		if err := e.state.BalanceDelete(owner); err != nil {
			return err
		}
	} else {
		if err := e.state.BalancePut(balance); err != nil {
			return err
		}
	}
	e.emit(NewDebitedEvent(owner, normalized, amt, reason))
	return nil
}

// Deposit credits externally received funds after validating the currency
// against the configuration snapshot.
func (e *Engine) Deposit(p params.Market, owner [20]byte, symbol string, amount *big.Int) error {
	if !p.SupportsSymbol(symbol) {
		return fmt.Errorf("%w: %s", params.ErrUnsupportedCurrency, symbol)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("ledger: deposit amount must be positive")
	}
	return e.Credit(owner, symbol, amount, "Deposit")
}

// Withdraw debits the owner's balance for transfer back out of the engine's
// custody. The currency must be supported so the outbound transfer has a
// known token contract.
func (e *Engine) Withdraw(p params.Market, owner [20]byte, symbol string, amount *big.Int) error {
	if !p.SupportsSymbol(symbol) {
		return fmt.Errorf("%w: %s", params.ErrUnsupportedCurrency, symbol)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("ledger: withdrawal amount must be positive")
	}
	return e.Debit(owner, symbol, amount, "Withdrawal")
}

// BalanceOf returns the owner's balance for a single currency. Missing rows
// and entries report zero.
func (e *Engine) BalanceOf(owner [20]byte, symbol string) *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	normalized := params.NormalizeSymbol(symbol)
	balance, ok := e.state.BalanceGet(owner)
	if !ok {
		return big.NewInt(0)
	}
	for _, q := range balance.Quantities {
		if q.Symbol == normalized {
			return cloneBigInt(q.Amount)
		}
	}
	return big.NewInt(0)
}

// Balances returns a copy of the owner's full balance row.
func (e *Engine) Balances(owner [20]byte) (*Balance, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	balance, ok := e.state.BalanceGet(owner)
	if !ok {
		return nil, ErrNotFound
	}
	return balance.Clone(), nil
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}
