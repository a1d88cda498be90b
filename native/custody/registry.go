package custody

import (
	"errors"
	"fmt"

	"marketd/core/events"
	"marketd/native/bundle"
	"marketd/native/counter"
)

var (
	errNilState    = errors.New("custody registry: state not configured")
	errNilCounters = errors.New("custody registry: counter allocator not configured")

	// ErrAssetNotFound indicates an unknown asset id.
	ErrAssetNotFound = errors.New("custody: asset not found")
	// ErrHoldNotFound indicates an unknown or inactive hold.
	ErrHoldNotFound = errors.New("custody: hold not found")
	// ErrNotOwner indicates the caller does not own every asset in the bundle.
	ErrNotOwner = errors.New("custody: caller does not own asset")
	// ErrAssetHeld indicates an asset is already locked under an active hold.
	ErrAssetHeld = errors.New("custody: asset locked under active hold")
	// ErrUnknownCollection indicates a mint into an unregistered collection.
	ErrUnknownCollection = errors.New("custody: collection not registered")
	// ErrDuplicateCollection indicates a collection name already in use.
	ErrDuplicateCollection = errors.New("custody: collection already registered")
)

// Asset is a single indivisible item. HeldBy is the active hold id locking the
// asset, zero when the asset is free.
type Asset struct {
	ID           uint64
	Owner        [20]byte
	Collection   string
	Transferable bool
	HeldBy       uint64
}

func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Hold locks a bundle pending a marketplace transition. The bundle hash keys
// the latest-hold index consulted by offer acceptance.
type Hold struct {
	ID         uint64
	From       [20]byte
	AssetIDs   []uint64
	BundleHash [32]byte
	Active     bool
}

func (h *Hold) Clone() *Hold {
	if h == nil {
		return nil
	}
	clone := *h
	clone.AssetIDs = append([]uint64{}, h.AssetIDs...)
	return &clone
}

// Collection groups assets under an author who earns the collection fee.
type Collection struct {
	Name   string
	Author [20]byte
	FeeBps uint32
}

func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// State is the persistence surface required by the registry.
type State interface {
	AssetGet(id uint64) (*Asset, bool)
	AssetPut(*Asset) error
	HoldGet(id uint64) (*Hold, bool)
	HoldPut(*Hold) error
	CollectionGet(name string) (*Collection, bool)
	CollectionPut(*Collection) error
	HoldIndexGet(from [20]byte, hash [32]byte) (uint64, bool, error)
	HoldIndexPut(from [20]byte, hash [32]byte, id uint64) error
}

// Registry tracks asset custody in-process. It satisfies both oracle surfaces
// the marketplace engine consumes.
type Registry struct {
	state    State
	counters *counter.Allocator
	emitter  events.Emitter
}

func NewRegistry(counters *counter.Allocator) *Registry {
	return &Registry{counters: counters, emitter: events.NoopEmitter{}}
}

func (r *Registry) SetState(state State) { r.state = state }

func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	r.emitter = emitter
}

func (r *Registry) checkWired() error {
	if r.state == nil {
		return errNilState
	}
	if r.counters == nil {
		return errNilCounters
	}
	return nil
}

// RegisterCollection records a collection with its author and fee share.
func (r *Registry) RegisterCollection(name string, author [20]byte, feeBps uint32) (*Collection, error) {
	if err := r.checkWired(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("custody: collection name required")
	}
	if _, ok := r.state.CollectionGet(name); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCollection, name)
	}
	collection := &Collection{Name: name, Author: author, FeeBps: feeBps}
	if err := r.state.CollectionPut(collection); err != nil {
		return nil, err
	}
	return collection.Clone(), nil
}

// MintAsset creates a new transferable asset owned by owner.
func (r *Registry) MintAsset(owner [20]byte, collection string) (*Asset, error) {
	if err := r.checkWired(); err != nil {
		return nil, err
	}
	if _, ok := r.state.CollectionGet(collection); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	id, err := r.counters.Next("asset")
	if err != nil {
		return nil, err
	}
	asset := &Asset{ID: id, Owner: owner, Collection: collection, Transferable: true}
	if err := r.state.AssetPut(asset); err != nil {
		return nil, err
	}
	r.emitter.Emit(newAssetMintedEvent(asset))
	return asset.Clone(), nil
}

// GetAsset returns the asset by id.
func (r *Registry) GetAsset(id uint64) (*Asset, error) {
	if err := r.checkWired(); err != nil {
		return nil, err
	}
	asset, ok := r.state.AssetGet(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrAssetNotFound, id)
	}
	return asset.Clone(), nil
}

// CreateHold locks the bundle under a new hold. Every asset must be owned by
// from, transferable, and free of other holds.
func (r *Registry) CreateHold(from [20]byte, assetIDs []uint64) (uint64, error) {
	if err := r.checkWired(); err != nil {
		return 0, err
	}
	canonical, err := bundle.Canonicalize(assetIDs)
	if err != nil {
		return 0, err
	}
	assets := make([]*Asset, 0, len(canonical))
	for _, assetID := range canonical {
		asset, ok := r.state.AssetGet(assetID)
		if !ok {
			return 0, fmt.Errorf("%w: %d", ErrAssetNotFound, assetID)
		}
		if asset.Owner != from || !asset.Transferable {
			return 0, fmt.Errorf("%w: %d", ErrNotOwner, assetID)
		}
		if asset.HeldBy != 0 {
			return 0, fmt.Errorf("%w: %d", ErrAssetHeld, assetID)
		}
		assets = append(assets, asset)
	}
	hash, err := bundle.Hash(canonical)
	if err != nil {
		return 0, err
	}
	id, err := r.counters.Next("hold")
	if err != nil {
		return 0, err
	}
	hold := &Hold{ID: id, From: from, AssetIDs: canonical, BundleHash: hash, Active: true}
	if err := r.state.HoldPut(hold); err != nil {
		return 0, err
	}
	for _, asset := range assets {
		asset.HeldBy = id
		if err := r.state.AssetPut(asset); err != nil {
			return 0, err
		}
	}
	if err := r.state.HoldIndexPut(from, hash, id); err != nil {
		return 0, err
	}
	r.emitter.Emit(newHoldEvent(EventTypeHoldCreated, hold))
	return id, nil
}

// OwnsAndTransferable reports whether owner holds every asset in the bundle,
// free of locks.
func (r *Registry) OwnsAndTransferable(owner [20]byte, assetIDs []uint64) bool {
	if r.checkWired() != nil {
		return false
	}
	for _, assetID := range assetIDs {
		asset, ok := r.state.AssetGet(assetID)
		if !ok || asset.Owner != owner || !asset.Transferable || asset.HeldBy != 0 {
			return false
		}
	}
	return len(assetIDs) > 0
}

// HoldActive reports whether the hold exists and is still live.
func (r *Registry) HoldActive(holdID uint64) bool {
	if r.checkWired() != nil {
		return false
	}
	hold, ok := r.state.HoldGet(holdID)
	return ok && hold.Active
}

// FinalizeTransfer hands the bundle to its new owner, releasing the covering
// hold. The note travels on the emitted event only.
func (r *Registry) FinalizeTransfer(to [20]byte, assetIDs []uint64, note string) error {
	if err := r.checkWired(); err != nil {
		return err
	}
	var released *Hold
	for _, assetID := range assetIDs {
		asset, ok := r.state.AssetGet(assetID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrAssetNotFound, assetID)
		}
		if asset.HeldBy != 0 && released == nil {
			hold, ok := r.state.HoldGet(asset.HeldBy)
			if ok && hold.Active {
				released = hold
			}
		}
		asset.Owner = to
		asset.HeldBy = 0
		if err := r.state.AssetPut(asset); err != nil {
			return err
		}
	}
	if released != nil {
		released.Active = false
		if err := r.state.HoldPut(released); err != nil {
			return err
		}
	}
	r.emitter.Emit(newTransferEvent(to, assetIDs, note))
	return nil
}

// CancelHold releases the hold and returns its assets to the holder.
func (r *Registry) CancelHold(holdID uint64) error {
	if err := r.checkWired(); err != nil {
		return err
	}
	hold, ok := r.state.HoldGet(holdID)
	if !ok || !hold.Active {
		return fmt.Errorf("%w: %d", ErrHoldNotFound, holdID)
	}
	return r.release(hold)
}

// ReleaseHold lets the holder withdraw a pending hold they placed themselves,
// for example when the matching listing was cancelled before its escrow
// notification arrived.
func (r *Registry) ReleaseHold(caller [20]byte, holdID uint64) error {
	if err := r.checkWired(); err != nil {
		return err
	}
	hold, ok := r.state.HoldGet(holdID)
	if !ok || !hold.Active {
		return fmt.Errorf("%w: %d", ErrHoldNotFound, holdID)
	}
	if hold.From != caller {
		return fmt.Errorf("%w: hold %d", ErrNotOwner, holdID)
	}
	return r.release(hold)
}

func (r *Registry) release(hold *Hold) error {
	for _, assetID := range hold.AssetIDs {
		asset, ok := r.state.AssetGet(assetID)
		if !ok {
			continue
		}
		if asset.HeldBy == hold.ID {
			asset.HeldBy = 0
			if err := r.state.AssetPut(asset); err != nil {
				return err
			}
		}
	}
	hold.Active = false
	if err := r.state.HoldPut(hold); err != nil {
		return err
	}
	r.emitter.Emit(newHoldEvent(EventTypeHoldCancelled, hold))
	return nil
}

// LatestEscrowFrom returns the most recent active hold the sender placed on
// exactly this bundle.
func (r *Registry) LatestEscrowFrom(sender [20]byte, assetIDs []uint64) (uint64, bool) {
	if r.checkWired() != nil {
		return 0, false
	}
	canonical, err := bundle.Canonicalize(assetIDs)
	if err != nil {
		return 0, false
	}
	hash, err := bundle.Hash(canonical)
	if err != nil {
		return 0, false
	}
	id, ok, err := r.state.HoldIndexGet(sender, hash)
	if err != nil || !ok {
		return 0, false
	}
	hold, ok := r.state.HoldGet(id)
	if !ok || !hold.Active || !bundle.Equal(hold.AssetIDs, canonical) {
		return 0, false
	}
	return id, true
}

// BundleCollection resolves the single collection a bundle belongs to.
// Mixed-collection bundles are rejected.
func (r *Registry) BundleCollection(assetIDs []uint64) (string, error) {
	if err := r.checkWired(); err != nil {
		return "", err
	}
	collection := ""
	for _, assetID := range assetIDs {
		asset, ok := r.state.AssetGet(assetID)
		if !ok {
			return "", fmt.Errorf("%w: %d", ErrAssetNotFound, assetID)
		}
		if collection == "" {
			collection = asset.Collection
			continue
		}
		if asset.Collection != collection {
			return "", fmt.Errorf("custody: bundle spans collections %s and %s", collection, asset.Collection)
		}
	}
	if collection == "" {
		return "", fmt.Errorf("custody: empty bundle")
	}
	return collection, nil
}

// Author returns the collection author address.
func (r *Registry) Author(collection string) ([20]byte, error) {
	var zero [20]byte
	if err := r.checkWired(); err != nil {
		return zero, err
	}
	record, ok := r.state.CollectionGet(collection)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return record.Author, nil
}

// FeeBps returns the collection fee share in basis points.
func (r *Registry) FeeBps(collection string) (uint32, error) {
	if err := r.checkWired(); err != nil {
		return 0, err
	}
	record, ok := r.state.CollectionGet(collection)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return record.FeeBps, nil
}
