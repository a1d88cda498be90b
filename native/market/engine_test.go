package market

import (
	"fmt"
	"testing"

	"marketd/core/events"
	"marketd/native/bundle"
	"marketd/native/counter"
	"marketd/native/ledger"
	"marketd/native/params"
	"marketd/native/pricing"
)

type bundleIndexKey struct {
	kind   string
	seller [20]byte
	hash   [32]byte
}

// mockState backs the market engine, the ledger and the counter allocator in
// one in-memory store.
type mockState struct {
	sales       map[uint64]*Sale
	auctions    map[uint64]*Auction
	buyOffers   map[uint64]*BuyOffer
	bundleIndex map[bundleIndexKey][]uint64
	balances    map[[20]byte]*ledger.Balance
	counters    map[string]uint64
}

func newMockState() *mockState {
	return &mockState{
		sales:       make(map[uint64]*Sale),
		auctions:    make(map[uint64]*Auction),
		buyOffers:   make(map[uint64]*BuyOffer),
		bundleIndex: make(map[bundleIndexKey][]uint64),
		balances:    make(map[[20]byte]*ledger.Balance),
		counters:    make(map[string]uint64),
	}
}

func (m *mockState) SaleGet(id uint64) (*Sale, bool) {
	sale, ok := m.sales[id]
	if !ok {
		return nil, false
	}
	return sale.Clone(), true
}

func (m *mockState) SalePut(sale *Sale) error {
	m.sales[sale.ID] = sale.Clone()
	return nil
}

func (m *mockState) SaleDelete(id uint64) error {
	delete(m.sales, id)
	return nil
}

func (m *mockState) AuctionGet(id uint64) (*Auction, bool) {
	auction, ok := m.auctions[id]
	if !ok {
		return nil, false
	}
	return auction.Clone(), true
}

func (m *mockState) AuctionPut(auction *Auction) error {
	m.auctions[auction.ID] = auction.Clone()
	return nil
}

func (m *mockState) AuctionDelete(id uint64) error {
	delete(m.auctions, id)
	return nil
}

func (m *mockState) BuyOfferGet(id uint64) (*BuyOffer, bool) {
	offer, ok := m.buyOffers[id]
	if !ok {
		return nil, false
	}
	return offer.Clone(), true
}

func (m *mockState) BuyOfferPut(offer *BuyOffer) error {
	m.buyOffers[offer.ID] = offer.Clone()
	return nil
}

func (m *mockState) BuyOfferDelete(id uint64) error {
	delete(m.buyOffers, id)
	return nil
}

func (m *mockState) BundleIndexGet(kind string, seller [20]byte, hash [32]byte) ([]uint64, error) {
	return append([]uint64{}, m.bundleIndex[bundleIndexKey{kind, seller, hash}]...), nil
}

func (m *mockState) BundleIndexAdd(kind string, seller [20]byte, hash [32]byte, id uint64) error {
	key := bundleIndexKey{kind, seller, hash}
	m.bundleIndex[key] = append(m.bundleIndex[key], id)
	return nil
}

func (m *mockState) BundleIndexRemove(kind string, seller [20]byte, hash [32]byte, id uint64) error {
	key := bundleIndexKey{kind, seller, hash}
	ids := m.bundleIndex[key]
	for i, existing := range ids {
		if existing == id {
			m.bundleIndex[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockState) BalanceGet(owner [20]byte) (*ledger.Balance, bool) {
	balance, ok := m.balances[owner]
	if !ok {
		return nil, false
	}
	return balance.Clone(), true
}

func (m *mockState) BalancePut(balance *ledger.Balance) error {
	m.balances[balance.Owner] = balance.Clone()
	return nil
}

func (m *mockState) BalanceDelete(owner [20]byte) error {
	delete(m.balances, owner)
	return nil
}

func (m *mockState) CounterGet(namespace string) (uint64, bool, error) {
	value, ok := m.counters[namespace]
	return value, ok, nil
}

func (m *mockState) CounterPut(namespace string, value uint64) error {
	m.counters[namespace] = value
	return nil
}

type transferCall struct {
	to       [20]byte
	assetIDs []uint64
	note     string
}

type escrowRecord struct {
	from     [20]byte
	assetIDs []uint64
	id       uint64
	active   bool
}

// mockCustody tracks asset ownership per id plus recorded transfer and
// cancel calls.
type mockCustody struct {
	ownedBy     map[uint64][20]byte
	locked      map[uint64]bool
	activeHolds map[uint64]bool
	escrows     []escrowRecord
	transfers   []transferCall
	cancelled   []uint64
}

func newMockCustody() *mockCustody {
	return &mockCustody{
		ownedBy:     make(map[uint64][20]byte),
		locked:      make(map[uint64]bool),
		activeHolds: make(map[uint64]bool),
	}
}

func (m *mockCustody) own(owner [20]byte, assetIDs ...uint64) {
	for _, id := range assetIDs {
		m.ownedBy[id] = owner
	}
}

func (m *mockCustody) hold(id uint64, from [20]byte, assetIDs []uint64) {
	m.activeHolds[id] = true
	m.escrows = append(m.escrows, escrowRecord{from: from, assetIDs: assetIDs, id: id, active: true})
	for _, assetID := range assetIDs {
		m.locked[assetID] = true
	}
}

func (m *mockCustody) OwnsAndTransferable(owner [20]byte, assetIDs []uint64) bool {
	if len(assetIDs) == 0 {
		return false
	}
	for _, id := range assetIDs {
		if m.ownedBy[id] != owner || m.locked[id] {
			return false
		}
	}
	return true
}

func (m *mockCustody) HoldActive(holdID uint64) bool {
	return m.activeHolds[holdID]
}

func (m *mockCustody) FinalizeTransfer(to [20]byte, assetIDs []uint64, note string) error {
	for _, id := range assetIDs {
		m.ownedBy[id] = to
		m.locked[id] = false
	}
	m.transfers = append(m.transfers, transferCall{to: to, assetIDs: append([]uint64{}, assetIDs...), note: note})
	return nil
}

func (m *mockCustody) CancelHold(holdID uint64) error {
	if !m.activeHolds[holdID] {
		return fmt.Errorf("mock custody: hold %d not active", holdID)
	}
	m.activeHolds[holdID] = false
	for i := range m.escrows {
		if m.escrows[i].id == holdID {
			m.escrows[i].active = false
			for _, assetID := range m.escrows[i].assetIDs {
				m.locked[assetID] = false
			}
		}
	}
	m.cancelled = append(m.cancelled, holdID)
	return nil
}

func (m *mockCustody) LatestEscrowFrom(sender [20]byte, assetIDs []uint64) (uint64, bool) {
	for i := len(m.escrows) - 1; i >= 0; i-- {
		record := m.escrows[i]
		if record.active && record.from == sender && bundle.Equal(record.assetIDs, assetIDs) {
			return record.id, true
		}
	}
	return 0, false
}

// mockCollections answers every bundle with a single configured collection.
type mockCollections struct {
	collection string
	author     [20]byte
	feeBps     uint32
	err        error
}

func (m *mockCollections) BundleCollection([]uint64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.collection, nil
}

func (m *mockCollections) Author(string) ([20]byte, error) {
	if m.err != nil {
		return [20]byte{}, m.err
	}
	return m.author, nil
}

func (m *mockCollections) FeeBps(string) (uint32, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.feeBps, nil
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func eventSeen(emitter *capturingEmitter, eventType string) bool {
	for _, evt := range emitter.events {
		if evt.EventType() == eventType {
			return true
		}
	}
	return false
}

func newTestAddress(b byte) [20]byte {
	var addr [20]byte
	addr[19] = b
	return addr
}

func testPolicy() params.Market {
	return params.Market{
		Currencies: []params.Currency{
			{Symbol: "USD", Decimals: 2},
			{Symbol: "GEM", Decimals: 4},
		},
		Pairs: []params.Pair{
			{ID: "USD_GEM", ListingSymbol: "USD", SettlementSymbol: "GEM"},
		},
		Marketplaces: []params.Marketplace{
			{ID: "main", FeeAccount: newTestAddress(0xA1)},
			{ID: "partner", FeeAccount: newTestAddress(0xA2)},
		},
		MakerFeeBps:         100,
		TakerFeeBps:         100,
		MaxCollectionFeeBps: 1500,
		MinAuctionDuration:  60,
		MaxAuctionDuration:  86400,
		MinBidIncreaseBps:   1000,
		AntiSnipeWindow:     120,
		DefaultMarketplace:  "main",
	}
}

type marketEnv struct {
	engine      *Engine
	ledger      *ledger.Engine
	state       *mockState
	custody     *mockCustody
	collections *mockCollections
	feed        *pricing.TableFeed
	emitter     *capturingEmitter
	now         *int64
}

func setupMarket(t *testing.T) *marketEnv {
	t.Helper()
	state := newMockState()
	ledgerEngine := ledger.NewEngine()
	ledgerEngine.SetState(state)
	feed := pricing.NewTableFeed()
	feed.RegisterPair("USD_GEM", 2)
	custody := newMockCustody()
	collections := &mockCollections{collection: "pixels", author: newTestAddress(0xCC), feeBps: 200}
	emitter := &capturingEmitter{}
	engine := NewEngine(ledgerEngine, pricing.NewAdapter(feed), counter.NewAllocator(state))
	engine.SetState(state)
	engine.SetCustody(custody)
	engine.SetCollections(collections)
	engine.SetEmitter(emitter)
	now := new(int64)
	*now = 1000
	engine.SetNowFunc(func() int64 { return *now })
	return &marketEnv{
		engine:      engine,
		ledger:      ledgerEngine,
		state:       state,
		custody:     custody,
		collections: collections,
		feed:        feed,
		emitter:     emitter,
		now:         now,
	}
}
