package market

import (
	"errors"
	"math/big"
	"testing"

	"marketd/native/ledger"
	"marketd/native/params"
)

func announceActiveAuction(t *testing.T, env *marketEnv, seller [20]byte, assetIDs []uint64, startingBid int64, duration int64) *Auction {
	t.Helper()
	env.custody.own(seller, assetIDs...)
	auction, err := env.engine.AnnounceAuction(testPolicy(), seller, assetIDs, big.NewInt(startingBid), "USD", duration, "")
	if err != nil {
		t.Fatalf("announce auction: %v", err)
	}
	if err := env.engine.HandleAuctionEscrow(seller, assetIDs); err != nil {
		t.Fatalf("handle auction escrow: %v", err)
	}
	return auction
}

func fund(t *testing.T, env *marketEnv, owner [20]byte, symbol string, amount int64) {
	t.Helper()
	if err := env.ledger.Deposit(testPolicy(), owner, symbol, big.NewInt(amount)); err != nil {
		t.Fatalf("fund %x: %v", owner[19], err)
	}
}

func TestAnnounceAuctionValidation(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x01)
	assetIDs := []uint64{11}
	env.custody.own(seller, assetIDs...)

	if _, err := env.engine.AnnounceAuction(policy, seller, assetIDs, big.NewInt(100), "USD", policy.MinAuctionDuration-1, ""); !errors.Is(err, ErrDurationOutOfRange) {
		t.Fatalf("expected duration out of range, got %v", err)
	}
	if _, err := env.engine.AnnounceAuction(policy, seller, assetIDs, big.NewInt(100), "USD", policy.MaxAuctionDuration+1, ""); !errors.Is(err, ErrDurationOutOfRange) {
		t.Fatalf("expected duration out of range, got %v", err)
	}
	if _, err := env.engine.AnnounceAuction(policy, seller, assetIDs, big.NewInt(100), "DOGE", 3600, ""); !errors.Is(err, params.ErrUnsupportedCurrency) {
		t.Fatalf("expected unsupported currency, got %v", err)
	}
	if _, err := env.engine.AnnounceAuction(policy, seller, assetIDs, big.NewInt(100), "USD", 3600, ""); err != nil {
		t.Fatalf("announce auction: %v", err)
	}
	if _, err := env.engine.AnnounceAuction(policy, seller, assetIDs, big.NewInt(100), "USD", 3600, ""); !errors.Is(err, ErrDuplicateListing) {
		t.Fatalf("expected duplicate listing, got %v", err)
	}
}

func TestAuctionEscrowActivation(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x02)
	bidder := newTestAddress(0x03)
	assetIDs := []uint64{21}
	env.custody.own(seller, assetIDs...)
	auction, err := env.engine.AnnounceAuction(policy, seller, assetIDs, big.NewInt(1000), "USD", 3600, "")
	if err != nil {
		t.Fatalf("announce auction: %v", err)
	}
	fund(t, env, bidder, "USD", 1000)

	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1000), "USD", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected bid rejected before escrow, got %v", err)
	}

	// A late escrow arrival for an expired auction must not activate it.
	*env.now = auction.EndTime
	if err := env.engine.HandleAuctionEscrow(seller, assetIDs); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected late escrow rejected, got %v", err)
	}
	*env.now = 1000
	if err := env.engine.HandleAuctionEscrow(seller, assetIDs); err != nil {
		t.Fatalf("handle auction escrow: %v", err)
	}
	if err := env.engine.HandleAuctionEscrow(seller, assetIDs); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected duplicate escrow rejected, got %v", err)
	}
}

func TestAuctionBidLadder(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x04)
	first := newTestAddress(0x05)
	second := newTestAddress(0x06)
	broke := newTestAddress(0x07)
	assetIDs := []uint64{41}
	auction := announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	fund(t, env, first, "USD", 1000)
	fund(t, env, second, "USD", 1100)

	if err := env.engine.Bid(policy, seller, auction.ID, big.NewInt(1000), "USD", ""); !errors.Is(err, ErrSelfTrade) {
		t.Fatalf("expected self trade, got %v", err)
	}
	if err := env.engine.Bid(policy, first, auction.ID, big.NewInt(1000), "GEM", ""); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if err := env.engine.Bid(policy, first, auction.ID, big.NewInt(999), "USD", ""); !errors.Is(err, ErrBelowMinimumIncrease) {
		t.Fatalf("expected below minimum for opening bid, got %v", err)
	}
	// The starting bid itself is an acceptable opening bid.
	if err := env.engine.Bid(policy, first, auction.ID, big.NewInt(1000), "USD", ""); err != nil {
		t.Fatalf("opening bid: %v", err)
	}
	if got := env.ledger.BalanceOf(first, "USD"); got.Sign() != 0 {
		t.Fatalf("first bidder not debited, balance %s", got)
	}

	// Subsequent bids must clear a 10% relative increase.
	if err := env.engine.Bid(policy, second, auction.ID, big.NewInt(1050), "USD", ""); !errors.Is(err, ErrBelowMinimumIncrease) {
		t.Fatalf("expected below minimum increase, got %v", err)
	}
	if err := env.engine.Bid(policy, second, auction.ID, big.NewInt(1100), "USD", "partner"); err != nil {
		t.Fatalf("second bid: %v", err)
	}
	if got := env.ledger.BalanceOf(first, "USD"); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("outbid refund = %s, want 1000", got)
	}
	if got := env.ledger.BalanceOf(second, "USD"); got.Sign() != 0 {
		t.Fatalf("second bidder not debited, balance %s", got)
	}

	// An unfunded bid leaves the standing bid untouched.
	if err := env.engine.Bid(policy, broke, auction.ID, big.NewInt(1300), "USD", ""); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	stored, _ := env.state.AuctionGet(auction.ID)
	if stored.Bidder != second || stored.CurrentBid.Cmp(big.NewInt(1100)) != 0 {
		t.Fatalf("standing bid disturbed: %#v", stored)
	}
	if stored.CompletionMarketplace != "partner" {
		t.Fatalf("expected completion marketplace partner, got %s", stored.CompletionMarketplace)
	}
	if !eventSeen(env.emitter, EventTypeAuctionBid) {
		t.Fatalf("expected bid event")
	}
}

func TestAuctionSelfRaise(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x13)
	bidder := newTestAddress(0x14)
	assetIDs := []uint64{181}
	auction := announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	fund(t, env, bidder, "USD", 1210)

	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1000), "USD", ""); err != nil {
		t.Fatalf("opening bid: %v", err)
	}
	// The standing bid is refunded first, so raising only needs the
	// difference: 210 on hand covers a raise from 1000 to 1210.
	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1210), "USD", ""); err != nil {
		t.Fatalf("self raise: %v", err)
	}
	if got := env.ledger.BalanceOf(bidder, "USD"); got.Sign() != 0 {
		t.Fatalf("expected raise to consume the difference, balance %s", got)
	}
	stored, _ := env.state.AuctionGet(auction.ID)
	if stored.Bidder != bidder || stored.CurrentBid.Cmp(big.NewInt(1210)) != 0 {
		t.Fatalf("standing bid not raised: %#v", stored)
	}

	// A raise beyond the difference on hand still fails atomically.
	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1400), "USD", ""); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	stored, _ = env.state.AuctionGet(auction.ID)
	if stored.CurrentBid.Cmp(big.NewInt(1210)) != 0 {
		t.Fatalf("failed raise disturbed the standing bid: %#v", stored)
	}
}

func TestAuctionAntiSnipe(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x08)
	bidder := newTestAddress(0x09)
	assetIDs := []uint64{81}
	auction := announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	fund(t, env, bidder, "USD", 1000)

	// End is 4600; a bid at 4550 pushes it to 4670.
	*env.now = 4550
	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1000), "USD", ""); err != nil {
		t.Fatalf("bid: %v", err)
	}
	stored, _ := env.state.AuctionGet(auction.ID)
	if stored.EndTime != 4670 {
		t.Fatalf("expected end time 4670, got %d", stored.EndTime)
	}

	*env.now = 4671
	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(2000), "USD", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected bid after end rejected, got %v", err)
	}
}

func TestAuctionClaims(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x0A)
	bidder := newTestAddress(0x0B)
	assetIDs := []uint64{101, 102}
	auction := announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	fund(t, env, bidder, "USD", 1100)
	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1100), "USD", "partner"); err != nil {
		t.Fatalf("bid: %v", err)
	}

	if err := env.engine.ClaimAuctionBuyer(bidder, auction.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected claim before end rejected, got %v", err)
	}
	stored, _ := env.state.AuctionGet(auction.ID)
	*env.now = stored.EndTime + 1

	if err := env.engine.ClaimAuctionBuyer(seller, auction.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected only the bidder to claim, got %v", err)
	}
	if err := env.engine.ClaimAuctionBuyer(bidder, auction.ID); err != nil {
		t.Fatalf("buyer claim: %v", err)
	}
	if len(env.custody.transfers) != 1 || env.custody.transfers[0].to != bidder {
		t.Fatalf("expected bundle transferred to bidder, got %#v", env.custody.transfers)
	}
	if err := env.engine.ClaimAuctionBuyer(bidder, auction.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected double buyer claim rejected, got %v", err)
	}

	if err := env.engine.ClaimAuctionSeller(policy, bidder, auction.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected only the seller to claim proceeds, got %v", err)
	}
	if err := env.engine.ClaimAuctionSeller(policy, seller, auction.ID); err != nil {
		t.Fatalf("seller claim: %v", err)
	}
	// 1100 gross: 11 origin, 11 completion, 22 collection, 1056 seller.
	if got := env.ledger.BalanceOf(seller, "USD"); got.Cmp(big.NewInt(1056)) != 0 {
		t.Fatalf("seller proceeds = %s, want 1056", got)
	}
	if got := env.ledger.BalanceOf(newTestAddress(0xA2), "USD"); got.Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("completion fee = %s, want 11", got)
	}
	if got := env.ledger.BalanceOf(newTestAddress(0xCC), "USD"); got.Cmp(big.NewInt(22)) != 0 {
		t.Fatalf("collection fee = %s, want 22", got)
	}
	if _, ok := env.state.AuctionGet(auction.ID); ok {
		t.Fatalf("expected auction deleted after both claims")
	}
}

func TestAuctionSellerClaimsFirst(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x0C)
	bidder := newTestAddress(0x0D)
	assetIDs := []uint64{121}
	auction := announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	fund(t, env, bidder, "USD", 1000)
	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1000), "USD", ""); err != nil {
		t.Fatalf("bid: %v", err)
	}
	stored, _ := env.state.AuctionGet(auction.ID)
	*env.now = stored.EndTime + 1

	if err := env.engine.ClaimAuctionSeller(policy, seller, auction.ID); err != nil {
		t.Fatalf("seller claim: %v", err)
	}
	if err := env.engine.ClaimAuctionSeller(policy, seller, auction.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected double seller claim rejected, got %v", err)
	}
	if _, ok := env.state.AuctionGet(auction.ID); !ok {
		t.Fatalf("auction must survive until the buyer claims")
	}
	if err := env.engine.ClaimAuctionBuyer(bidder, auction.ID); err != nil {
		t.Fatalf("buyer claim: %v", err)
	}
	if _, ok := env.state.AuctionGet(auction.ID); ok {
		t.Fatalf("expected auction deleted after both claims")
	}
}

func TestAuctionClaimWithoutBids(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x0E)
	assetIDs := []uint64{141}
	auction := announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	*env.now = auction.EndTime + 1
	if err := env.engine.ClaimAuctionSeller(policy, seller, auction.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected claim without bids rejected, got %v", err)
	}
}

func TestCancelAuction(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x0F)
	bidder := newTestAddress(0x10)
	assetIDs := []uint64{151}

	// Before escrow the record is simply removed.
	env.custody.own(seller, assetIDs...)
	auction, err := env.engine.AnnounceAuction(policy, seller, assetIDs, big.NewInt(1000), "USD", 3600, "")
	if err != nil {
		t.Fatalf("announce auction: %v", err)
	}
	if err := env.engine.CancelAuction(bidder, auction.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected only the seller to cancel, got %v", err)
	}
	if err := env.engine.CancelAuction(seller, auction.ID); err != nil {
		t.Fatalf("cancel before escrow: %v", err)
	}
	if len(env.custody.transfers) != 0 {
		t.Fatalf("cancel before escrow must not move assets")
	}

	// After escrow the bundle returns to the seller.
	auction = announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	if err := env.engine.CancelAuction(seller, auction.ID); err != nil {
		t.Fatalf("cancel after escrow: %v", err)
	}
	if len(env.custody.transfers) != 1 || env.custody.transfers[0].to != seller {
		t.Fatalf("expected bundle returned to seller, got %#v", env.custody.transfers)
	}
	if !eventSeen(env.emitter, EventTypeAuctionCancelled) {
		t.Fatalf("expected cancelled event")
	}
}

func TestCancelAuctionWithBid(t *testing.T) {
	env := setupMarket(t)
	policy := testPolicy()
	seller := newTestAddress(0x11)
	bidder := newTestAddress(0x12)
	assetIDs := []uint64{171}
	auction := announceActiveAuction(t, env, seller, assetIDs, 1000, 3600)
	fund(t, env, bidder, "USD", 1000)
	if err := env.engine.Bid(policy, bidder, auction.ID, big.NewInt(1000), "USD", ""); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := env.engine.CancelAuction(seller, auction.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected cancel with bid rejected, got %v", err)
	}
}
