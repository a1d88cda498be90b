package pricing

import (
	"errors"
	"math/big"
	"testing"

	"marketd/native/params"
)

func TestConvertNonInverted(t *testing.T) {
	// Listing $3.00 at a median of 1.50 USD per settlement unit yields
	// 2.0000 units in a four-decimal settlement currency.
	got, err := Convert(big.NewInt(300), 2, 4, 150, 2, false)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Cmp(big.NewInt(20000)) != 0 {
		t.Fatalf("expected 20000, got %s", got)
	}
}

func TestConvertNonInvertedFloors(t *testing.T) {
	got, err := Convert(big.NewInt(100), 2, 2, 300, 2, false)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	// 100 * 10^2 / 300 = 33.33 floors to 33.
	if got.Cmp(big.NewInt(33)) != 0 {
		t.Fatalf("expected 33, got %s", got)
	}
}

func TestConvertInverted(t *testing.T) {
	got, err := Convert(big.NewInt(300), 2, 4, 200, 2, true)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Cmp(big.NewInt(60000)) != 0 {
		t.Fatalf("expected 60000, got %s", got)
	}
}

func TestConvertInvertedNegativeExponent(t *testing.T) {
	got, err := Convert(big.NewInt(10000), 4, 2, 123, 2, true)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Cmp(big.NewInt(123)) != 0 {
		t.Fatalf("expected 123, got %s", got)
	}
}

func TestConvertRejectsBadInput(t *testing.T) {
	if _, err := Convert(big.NewInt(100), 2, 2, 0, 2, false); err == nil {
		t.Fatalf("expected error for zero median")
	}
	if _, err := Convert(big.NewInt(-1), 2, 2, 100, 2, false); err == nil {
		t.Fatalf("expected error for negative listing")
	}
	if _, err := Convert(nil, 2, 2, 100, 2, false); err == nil {
		t.Fatalf("expected error for nil listing")
	}
}

func TestTableFeedObserve(t *testing.T) {
	feed := NewTableFeed()
	if err := feed.Observe("USD_GEM", 100); !errors.Is(err, ErrUnsupportedPair) {
		t.Fatalf("expected unsupported pair, got %v", err)
	}
	feed.RegisterPair("USD_GEM", 2)
	if err := feed.Observe("USD_GEM", 0); err == nil {
		t.Fatalf("expected error for zero median")
	}
	if err := feed.Observe("USD_GEM", 150); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !feed.HasObservation("USD_GEM", 150) {
		t.Fatalf("expected observation present")
	}
	if feed.HasObservation("USD_GEM", 151) {
		t.Fatalf("unexpected observation for unseen median")
	}
	precision, err := feed.PairPrecision("USD_GEM")
	if err != nil || precision != 2 {
		t.Fatalf("expected precision 2, got %d (%v)", precision, err)
	}
	if _, err := feed.PairPrecision("EUR_GEM"); !errors.Is(err, ErrUnsupportedPair) {
		t.Fatalf("expected unsupported pair, got %v", err)
	}
}

func TestTableFeedWindowEviction(t *testing.T) {
	feed := NewTableFeed()
	feed.RegisterPair("USD_GEM", 2)
	for median := uint64(1); median <= observationWindow+1; median++ {
		if err := feed.Observe("USD_GEM", median); err != nil {
			t.Fatalf("observe %d: %v", median, err)
		}
	}
	if feed.HasObservation("USD_GEM", 1) {
		t.Fatalf("oldest observation should have rotated out")
	}
	if !feed.HasObservation("USD_GEM", 2) {
		t.Fatalf("second observation should still be in the window")
	}
	if !feed.HasObservation("USD_GEM", observationWindow+1) {
		t.Fatalf("latest observation missing")
	}
}

func settlePolicy() params.Market {
	return params.Market{
		Currencies: []params.Currency{
			{Symbol: "USD", Decimals: 2},
			{Symbol: "GEM", Decimals: 4},
		},
		Pairs: []params.Pair{
			{ID: "USD_GEM", ListingSymbol: "USD", SettlementSymbol: "GEM"},
		},
	}
}

func TestAdapterSettle(t *testing.T) {
	feed := NewTableFeed()
	feed.RegisterPair("USD_GEM", 2)
	if err := feed.Observe("USD_GEM", 150); err != nil {
		t.Fatalf("observe: %v", err)
	}
	adapter := NewAdapter(feed)
	policy := settlePolicy()

	amount, symbol, err := adapter.Settle(policy, "USD_GEM", big.NewInt(300), 150)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if symbol != "GEM" {
		t.Fatalf("expected GEM settlement, got %s", symbol)
	}
	if amount.Cmp(big.NewInt(20000)) != 0 {
		t.Fatalf("expected 20000, got %s", amount)
	}
}

func TestAdapterSettleRejections(t *testing.T) {
	feed := NewTableFeed()
	feed.RegisterPair("USD_GEM", 2)
	if err := feed.Observe("USD_GEM", 150); err != nil {
		t.Fatalf("observe: %v", err)
	}
	adapter := NewAdapter(feed)
	policy := settlePolicy()

	if _, _, err := adapter.Settle(policy, "EUR_GEM", big.NewInt(300), 150); !errors.Is(err, ErrUnsupportedPair) {
		t.Fatalf("expected unsupported pair, got %v", err)
	}
	if _, _, err := adapter.Settle(policy, "USD_GEM", big.NewInt(300), 149); !errors.Is(err, ErrStaleQuote) {
		t.Fatalf("expected stale quote, got %v", err)
	}
}
