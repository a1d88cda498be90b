package state

import (
	"errors"

	"github.com/ethereum/go-ethereum/rlp"

	"marketd/native/custody"
	"marketd/native/ledger"
	"marketd/native/market"
	"marketd/storage"
)

// Manager persists marketplace records in the underlying key-value store and
// implements the narrow state interfaces consumed by the engines. All records
// are RLP encoded.
type Manager struct {
	db storage.Database
}

// NewManager constructs a manager over the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

// --- ledger.State ---

// BalanceGet loads a balance row. Decode failures report a missing row; the
// store is trusted not to hold foreign data under the balance prefix.
func (m *Manager) BalanceGet(owner [20]byte) (*ledger.Balance, bool) {
	var stored storedBalance
	ok, err := m.get(balanceKey(owner), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toBalance(), true
}

// BalancePut stores a balance row.
func (m *Manager) BalancePut(b *ledger.Balance) error {
	return m.put(balanceKey(b.Owner), newStoredBalance(b))
}

// BalanceDelete removes a balance row entirely.
func (m *Manager) BalanceDelete(owner [20]byte) error {
	return m.db.Delete(balanceKey(owner))
}

// --- market.State ---

func (m *Manager) SaleGet(id uint64) (*market.Sale, bool) {
	var stored storedSale
	ok, err := m.get(listingKey(salePrefix, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toSale(), true
}

func (m *Manager) SalePut(s *market.Sale) error {
	return m.put(listingKey(salePrefix, s.ID), newStoredSale(s))
}

func (m *Manager) SaleDelete(id uint64) error {
	return m.db.Delete(listingKey(salePrefix, id))
}

func (m *Manager) AuctionGet(id uint64) (*market.Auction, bool) {
	var stored storedAuction
	ok, err := m.get(listingKey(auctionPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toAuction(), true
}

func (m *Manager) AuctionPut(a *market.Auction) error {
	return m.put(listingKey(auctionPrefix, a.ID), newStoredAuction(a))
}

func (m *Manager) AuctionDelete(id uint64) error {
	return m.db.Delete(listingKey(auctionPrefix, id))
}

func (m *Manager) BuyOfferGet(id uint64) (*market.BuyOffer, bool) {
	var stored storedBuyOffer
	ok, err := m.get(listingKey(buyOfferPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toBuyOffer(), true
}

func (m *Manager) BuyOfferPut(o *market.BuyOffer) error {
	return m.put(listingKey(buyOfferPrefix, o.ID), newStoredBuyOffer(o))
}

func (m *Manager) BuyOfferDelete(id uint64) error {
	return m.db.Delete(listingKey(buyOfferPrefix, id))
}

// BundleIndexGet returns the open listing ids recorded under the bundle hash,
// in insertion order.
func (m *Manager) BundleIndexGet(kind string, seller [20]byte, hash [32]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.get(bundleIndexKey(kind, seller, hash), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// BundleIndexAdd appends a listing id to the bundle index entry.
func (m *Manager) BundleIndexAdd(kind string, seller [20]byte, hash [32]byte, id uint64) error {
	key := bundleIndexKey(kind, seller, hash)
	var ids []uint64
	if _, err := m.get(key, &ids); err != nil {
		return err
	}
	return m.put(key, append(ids, id))
}

// BundleIndexRemove drops a listing id from the bundle index entry, deleting
// the entry once it empties.
func (m *Manager) BundleIndexRemove(kind string, seller [20]byte, hash [32]byte, id uint64) error {
	key := bundleIndexKey(kind, seller, hash)
	var ids []uint64
	if _, err := m.get(key, &ids); err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		return m.db.Delete(key)
	}
	return m.put(key, kept)
}

// --- custody.State ---

func (m *Manager) AssetGet(id uint64) (*custody.Asset, bool) {
	var stored storedAsset
	ok, err := m.get(listingKey(assetPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toAsset(), true
}

func (m *Manager) AssetPut(a *custody.Asset) error {
	return m.put(listingKey(assetPrefix, a.ID), newStoredAsset(a))
}

func (m *Manager) HoldGet(id uint64) (*custody.Hold, bool) {
	var stored storedHold
	ok, err := m.get(listingKey(holdPrefix, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toHold(), true
}

func (m *Manager) HoldPut(h *custody.Hold) error {
	return m.put(listingKey(holdPrefix, h.ID), newStoredHold(h))
}

func (m *Manager) CollectionGet(name string) (*custody.Collection, bool) {
	var stored storedCollection
	ok, err := m.get(collectionKey(name), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return stored.toCollection(), true
}

func (m *Manager) CollectionPut(c *custody.Collection) error {
	return m.put(collectionKey(c.Name), newStoredCollection(c))
}

// HoldIndexGet returns the latest hold id a sender placed on the bundle hash.
func (m *Manager) HoldIndexGet(from [20]byte, hash [32]byte) (uint64, bool, error) {
	var id uint64
	ok, err := m.get(holdIndexKey(from, hash), &id)
	if err != nil {
		return 0, false, err
	}
	return id, ok, nil
}

func (m *Manager) HoldIndexPut(from [20]byte, hash [32]byte, id uint64) error {
	return m.put(holdIndexKey(from, hash), id)
}

// --- counter.State ---

func (m *Manager) CounterGet(namespace string) (uint64, bool, error) {
	var value uint64
	ok, err := m.get(counterKey(namespace), &value)
	if err != nil {
		return 0, false, err
	}
	return value, ok, nil
}

func (m *Manager) CounterPut(namespace string, value uint64) error {
	return m.put(counterKey(namespace), value)
}
