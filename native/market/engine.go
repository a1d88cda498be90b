package market

import (
	"fmt"
	"math/big"
	"time"

	"marketd/core/events"
	"marketd/native/bundle"
	"marketd/native/counter"
	"marketd/native/ledger"
	"marketd/native/params"
	"marketd/native/pricing"
)

// Engine hosts the three listing registries. All transitions are synchronous
// and single-writer: validation happens before any mutation, so a rejected
// transition leaves no observable trace.
type Engine struct {
	state       State
	ledger      *ledger.Engine
	pricing     *pricing.Adapter
	counters    *counter.Allocator
	custody     CustodyOracle
	collections CollectionOracle
	emitter     events.Emitter
	nowFn       func() int64
}

// NewEngine constructs a market engine bound to the supplied ledger, pricing
// adapter and counter allocator.
func NewEngine(l *ledger.Engine, p *pricing.Adapter, c *counter.Allocator) *Engine {
	return &Engine{
		ledger:   l,
		pricing:  p,
		counters: c,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend.
func (e *Engine) SetState(state State) { e.state = state }

// SetCustody configures the custody oracle.
func (e *Engine) SetCustody(c CustodyOracle) { e.custody = c }

// SetCollections configures the collection oracle.
func (e *Engine) SetCollections(c CollectionOracle) { e.collections = c }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) checkWired() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.ledger == nil:
		return errNilLedger
	case e.counters == nil:
		return errNilCounters
	case e.custody == nil:
		return errNilCustody
	case e.collections == nil:
		return errNilCollections
	}
	return nil
}

// collectionSnapshot captures the collection beneficiary and fee rate for a
// bundle at listing-creation time. Later changes to the live collection fee
// never affect open listings.
type collectionSnapshot struct {
	Collection  string
	Beneficiary [20]byte
	FeeBps      uint32
}

func (e *Engine) captureCollection(p params.Market, assetIDs []uint64) (collectionSnapshot, error) {
	collection, err := e.collections.BundleCollection(assetIDs)
	if err != nil {
		return collectionSnapshot{}, err
	}
	author, err := e.collections.Author(collection)
	if err != nil {
		return collectionSnapshot{}, err
	}
	feeBps, err := e.collections.FeeBps(collection)
	if err != nil {
		return collectionSnapshot{}, err
	}
	if feeBps > p.MaxCollectionFeeBps {
		return collectionSnapshot{}, fmt.Errorf("%w: %d bps", ErrCollectionFeeTooHigh, feeBps)
	}
	return collectionSnapshot{Collection: collection, Beneficiary: author, FeeBps: feeBps}, nil
}

// requireNoOpenListing rejects a bundle the seller already has an open listing
// of this kind for. The hash lookup is re-checked against the full id list.
func (e *Engine) requireNoOpenListing(kind string, seller [20]byte, hash [32]byte, assetIDs []uint64) error {
	ids, err := e.state.BundleIndexGet(kind, seller, hash)
	if err != nil {
		return err
	}
	for _, id := range ids {
		var listed []uint64
		switch kind {
		case KindSale:
			sale, ok := e.state.SaleGet(id)
			if !ok {
				continue
			}
			listed = sale.AssetIDs
		case KindAuction:
			auction, ok := e.state.AuctionGet(id)
			if !ok {
				continue
			}
			listed = auction.AssetIDs
		default:
			continue
		}
		if bundle.Equal(listed, assetIDs) {
			return fmt.Errorf("%w: %s %d", ErrDuplicateListing, kind, id)
		}
	}
	return nil
}

func clonePrice(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
