package fees

import (
	"errors"
	"math/big"

	"marketd/native/ledger"
)

var errNilLedger = errors.New("fees: ledger not configured")

// BpsDenominator is the basis-point denominator used for all fee math.
const BpsDenominator = 10_000

// Split captures the four-way division of a gross settlement amount. The three
// fee cuts are floor(bps*gross/10000) computed in a fixed order; the seller
// absorbs the truncation remainder so the cuts always sum to the gross amount.
type Split struct {
	OriginCut     *big.Int
	CompletionCut *big.Int
	CollectionCut *big.Int
	SellerCut     *big.Int
}

// Cut returns floor(bps*gross/10000).
func Cut(gross *big.Int, bps uint32) *big.Int {
	if gross == nil || gross.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	cut := new(big.Int).Mul(gross, big.NewInt(int64(bps)))
	return cut.Div(cut, big.NewInt(BpsDenominator))
}

// ComputeSplit derives the four cuts for a gross amount. Validation of the fee
// rates against platform bounds happens at listing creation; this function has
// no failure path.
func ComputeSplit(gross *big.Int, originBps, completionBps, collectionBps uint32) Split {
	total := big.NewInt(0)
	if gross != nil {
		total = new(big.Int).Set(gross)
	}
	split := Split{
		OriginCut:     Cut(total, originBps),
		CompletionCut: Cut(total, completionBps),
		CollectionCut: Cut(total, collectionBps),
	}
	seller := new(big.Int).Set(total)
	seller.Sub(seller, split.OriginCut)
	seller.Sub(seller, split.CompletionCut)
	seller.Sub(seller, split.CollectionCut)
	split.SellerCut = seller
	return split
}

// Payout describes a settlement to distribute through the balance ledger.
type Payout struct {
	Gross                 *big.Int
	Symbol                string
	Seller                [20]byte
	OriginBeneficiary     [20]byte
	CompletionBeneficiary [20]byte
	CollectionBeneficiary [20]byte
	CollectionBps         uint32
	MakerFeeBps           uint32
	TakerFeeBps           uint32
}

// Apply computes the split and credits each beneficiary via the ledger.
// Zero-amount cuts are safe no-ops inside the ledger.
func Apply(l *ledger.Engine, p Payout) (Split, error) {
	if l == nil {
		return Split{}, errNilLedger
	}
	split := ComputeSplit(p.Gross, p.MakerFeeBps, p.TakerFeeBps, p.CollectionBps)
	if err := l.Credit(p.OriginBeneficiary, p.Symbol, split.OriginCut, "Origin Marketplace Fee"); err != nil {
		return Split{}, err
	}
	if err := l.Credit(p.CompletionBeneficiary, p.Symbol, split.CompletionCut, "Completion Marketplace Fee"); err != nil {
		return Split{}, err
	}
	if err := l.Credit(p.CollectionBeneficiary, p.Symbol, split.CollectionCut, "Collection Market Fee"); err != nil {
		return Split{}, err
	}
	if err := l.Credit(p.Seller, p.Symbol, split.SellerCut, "Asset Sale"); err != nil {
		return Split{}, err
	}
	return split, nil
}
