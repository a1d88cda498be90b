package market

// CustodyOracle is the read-only/event-driven collaborator that owns asset
// custody. The engine never stores ownership; it consults the oracle at the
// moment of each transition and directs it to finalize transfers.
type CustodyOracle interface {
	// OwnsAndTransferable reports whether the owner holds every asset in the
	// bundle and all of them are currently transferable.
	OwnsAndTransferable(owner [20]byte, assetIDs []uint64) bool
	// HoldActive reports whether a pending escrow hold is still live.
	HoldActive(holdID uint64) bool
	// FinalizeTransfer directs custody to complete the transfer of the bundle
	// to the recipient.
	FinalizeTransfer(to [20]byte, assetIDs []uint64, note string) error
	// CancelHold releases a pending escrow hold back to its owner.
	CancelHold(holdID uint64) error
	// LatestEscrowFrom resolves the most recent escrow placed by the sender
	// for exactly this asset-id set, as required by buy-offer acceptance.
	LatestEscrowFrom(sender [20]byte, assetIDs []uint64) (uint64, bool)
}

// CollectionOracle resolves collection metadata for fee capture. Bundles that
// span multiple collections are rejected at announcement.
type CollectionOracle interface {
	BundleCollection(assetIDs []uint64) (string, error)
	Author(collection string) ([20]byte, error)
	FeeBps(collection string) (uint32, error)
}
