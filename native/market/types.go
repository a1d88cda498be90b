package market

import "math/big"

// Listing kinds double as counter namespaces and bundle-index partitions.
const (
	KindSale     = "sale"
	KindAuction  = "auction"
	KindBuyOffer = "buyoffer"
)

// Sale is a fixed-price listing. A sale with PairID set is denominated in the
// pair's display currency and settles in the pair's settlement currency via
// the price conversion adapter; otherwise Price is charged directly in Symbol.
// The collection fee snapshot is captured at announcement and immutable for
// the lifetime of the listing.
type Sale struct {
	ID                    uint64
	Seller                [20]byte
	AssetIDs              []uint64
	BundleHash            [32]byte
	Price                 *big.Int
	Symbol                string
	PairID                string
	OriginMarketplace     string
	Collection            string
	CollectionBeneficiary [20]byte
	CollectionFeeBps      uint32
	Escrowed              bool
	HoldID                uint64
	CreatedAt             int64
}

// Clone returns a deep copy so callers can safely mutate the copy.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	clone.AssetIDs = append([]uint64{}, s.AssetIDs...)
	if s.Price != nil {
		clone.Price = new(big.Int).Set(s.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Auction is a timed ascending-bid listing. CurrentBid starts at the seller's
// starting bid with HasBid unset; once a bid lands the auction can only run to
// completion through the two claim flags.
type Auction struct {
	ID                    uint64
	Seller                [20]byte
	AssetIDs              []uint64
	BundleHash            [32]byte
	Symbol                string
	CurrentBid            *big.Int
	Bidder                [20]byte
	HasBid                bool
	EndTime               int64
	OriginMarketplace     string
	CompletionMarketplace string
	Collection            string
	CollectionBeneficiary [20]byte
	CollectionFeeBps      uint32
	EscrowReceived        bool
	ClaimedBySeller       bool
	ClaimedByBuyer        bool
	CreatedAt             int64
}

// Clone returns a deep copy so callers can safely mutate the copy.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	clone.AssetIDs = append([]uint64{}, a.AssetIDs...)
	if a.CurrentBid != nil {
		clone.CurrentBid = new(big.Int).Set(a.CurrentBid)
	} else {
		clone.CurrentBid = big.NewInt(0)
	}
	return &clone
}

// BuyOffer is a reverse listing: the proposer escrows the price in the balance
// ledger at creation and the recipient settles by escrowing the bundle and
// accepting. There is no escrow marker; the recipient's custody action is
// matched at acceptance time.
type BuyOffer struct {
	ID                uint64
	Proposer          [20]byte
	Recipient         [20]byte
	AssetIDs          []uint64
	BundleHash        [32]byte
	Price             *big.Int
	Symbol            string
	Note              string
	OriginMarketplace string
	CreatedAt         int64
}

// Clone returns a deep copy so callers can safely mutate the copy.
func (o *BuyOffer) Clone() *BuyOffer {
	if o == nil {
		return nil
	}
	clone := *o
	clone.AssetIDs = append([]uint64{}, o.AssetIDs...)
	if o.Price != nil {
		clone.Price = new(big.Int).Set(o.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// State is the persistence surface required by the three registries. The
// bundle index maps (kind, seller, hash) to the ordered set of open listing
// ids; the hash is an index accelerator, callers re-check full id equality.
type State interface {
	SaleGet(id uint64) (*Sale, bool)
	SalePut(*Sale) error
	SaleDelete(id uint64) error
	AuctionGet(id uint64) (*Auction, bool)
	AuctionPut(*Auction) error
	AuctionDelete(id uint64) error
	BuyOfferGet(id uint64) (*BuyOffer, bool)
	BuyOfferPut(*BuyOffer) error
	BuyOfferDelete(id uint64) error
	BundleIndexGet(kind string, seller [20]byte, hash [32]byte) ([]uint64, error)
	BundleIndexAdd(kind string, seller [20]byte, hash [32]byte, id uint64) error
	BundleIndexRemove(kind string, seller [20]byte, hash [32]byte, id uint64) error
}
