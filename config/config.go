package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"marketd/native/params"
)

// Config is the on-disk daemon configuration. Snapshot converts the market
// sections into the immutable params value handed to the engines.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	LogPath       string `toml:"LogPath"`
	Env           string `toml:"Env"`

	Fees         FeesConfig          `toml:"fees"`
	Auctions     AuctionsConfig      `toml:"auctions"`
	Currencies   []CurrencyConfig    `toml:"currency"`
	Pairs        []PairConfig        `toml:"pair"`
	Marketplaces []MarketplaceConfig `toml:"marketplace"`

	DefaultMarketplace string `toml:"DefaultMarketplace"`
}

type FeesConfig struct {
	MakerFeeBps         uint32 `toml:"MakerFeeBps"`
	TakerFeeBps         uint32 `toml:"TakerFeeBps"`
	MaxCollectionFeeBps uint32 `toml:"MaxCollectionFeeBps"`
}

type AuctionsConfig struct {
	MinDurationSeconds     int64  `toml:"MinDurationSeconds"`
	MaxDurationSeconds     int64  `toml:"MaxDurationSeconds"`
	MinBidIncreaseBps      uint32 `toml:"MinBidIncreaseBps"`
	AntiSnipeWindowSeconds int64  `toml:"AntiSnipeWindowSeconds"`
}

type CurrencyConfig struct {
	Symbol   string `toml:"Symbol"`
	Decimals uint8  `toml:"Decimals"`
}

type PairConfig struct {
	ID               string `toml:"ID"`
	ListingSymbol    string `toml:"ListingSymbol"`
	SettlementSymbol string `toml:"SettlementSymbol"`
	Inverted         bool   `toml:"Inverted"`
	QuotePrecision   uint8  `toml:"QuotePrecision"`
}

type MarketplaceConfig struct {
	ID         string `toml:"ID"`
	FeeAccount string `toml:"FeeAccount"`
}

// Load reads and validates the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./marketd-data"
	}
	if strings.TrimSpace(c.DefaultMarketplace) == "" {
		c.DefaultMarketplace = "default"
	}
	if c.Fees.MakerFeeBps == 0 && c.Fees.TakerFeeBps == 0 && c.Fees.MaxCollectionFeeBps == 0 {
		c.Fees = FeesConfig{MakerFeeBps: 100, TakerFeeBps: 100, MaxCollectionFeeBps: 1500}
	}
	if c.Auctions.MaxDurationSeconds == 0 {
		c.Auctions = AuctionsConfig{
			MinDurationSeconds:     120,
			MaxDurationSeconds:     2_592_000, // 30 days
			MinBidIncreaseBps:      1000,
			AntiSnipeWindowSeconds: 120,
		}
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Fees.MakerFeeBps+c.Fees.TakerFeeBps+c.Fees.MaxCollectionFeeBps >= 10_000 {
		return fmt.Errorf("config: combined fee bps must stay below 10000")
	}
	if c.Auctions.MinDurationSeconds <= 0 || c.Auctions.MaxDurationSeconds < c.Auctions.MinDurationSeconds {
		return fmt.Errorf("config: invalid auction duration bounds")
	}
	if c.Auctions.AntiSnipeWindowSeconds < 0 {
		return fmt.Errorf("config: anti-snipe window must be non-negative")
	}
	if len(c.Currencies) == 0 {
		return fmt.Errorf("config: at least one supported currency is required")
	}
	seen := map[string]bool{}
	for _, cur := range c.Currencies {
		symbol := params.NormalizeSymbol(cur.Symbol)
		if symbol == "" {
			return fmt.Errorf("config: currency with empty symbol")
		}
		if seen[symbol] {
			return fmt.Errorf("config: duplicate currency %s", symbol)
		}
		seen[symbol] = true
	}
	for _, pair := range c.Pairs {
		if strings.TrimSpace(pair.ID) == "" {
			return fmt.Errorf("config: pair with empty id")
		}
		if !seen[params.NormalizeSymbol(pair.ListingSymbol)] {
			return fmt.Errorf("config: pair %s lists unknown currency %s", pair.ID, pair.ListingSymbol)
		}
		if !seen[params.NormalizeSymbol(pair.SettlementSymbol)] {
			return fmt.Errorf("config: pair %s settles unknown currency %s", pair.ID, pair.SettlementSymbol)
		}
	}
	foundDefault := false
	for _, mp := range c.Marketplaces {
		if strings.TrimSpace(mp.ID) == "" {
			return fmt.Errorf("config: marketplace with empty id")
		}
		if _, err := parseAddress(mp.FeeAccount); err != nil {
			return fmt.Errorf("config: marketplace %s: %v", mp.ID, err)
		}
		if mp.ID == c.DefaultMarketplace {
			foundDefault = true
		}
	}
	if !foundDefault {
		return fmt.Errorf("config: default marketplace %q is not registered", c.DefaultMarketplace)
	}
	return nil
}

// Snapshot converts the configuration into the immutable market params value.
func (c *Config) Snapshot() (params.Market, error) {
	snapshot := params.Market{
		MakerFeeBps:         c.Fees.MakerFeeBps,
		TakerFeeBps:         c.Fees.TakerFeeBps,
		MaxCollectionFeeBps: c.Fees.MaxCollectionFeeBps,
		MinAuctionDuration:  c.Auctions.MinDurationSeconds,
		MaxAuctionDuration:  c.Auctions.MaxDurationSeconds,
		MinBidIncreaseBps:   c.Auctions.MinBidIncreaseBps,
		AntiSnipeWindow:     c.Auctions.AntiSnipeWindowSeconds,
		DefaultMarketplace:  c.DefaultMarketplace,
	}
	for _, cur := range c.Currencies {
		snapshot.Currencies = append(snapshot.Currencies, params.Currency{
			Symbol:   params.NormalizeSymbol(cur.Symbol),
			Decimals: cur.Decimals,
		})
	}
	for _, pair := range c.Pairs {
		snapshot.Pairs = append(snapshot.Pairs, params.Pair{
			ID:               strings.TrimSpace(pair.ID),
			ListingSymbol:    params.NormalizeSymbol(pair.ListingSymbol),
			SettlementSymbol: params.NormalizeSymbol(pair.SettlementSymbol),
			Inverted:         pair.Inverted,
		})
	}
	for _, mp := range c.Marketplaces {
		account, err := parseAddress(mp.FeeAccount)
		if err != nil {
			return params.Market{}, fmt.Errorf("config: marketplace %s: %v", mp.ID, err)
		}
		snapshot.Marketplaces = append(snapshot.Marketplaces, params.Marketplace{
			ID:         strings.TrimSpace(mp.ID),
			FeeAccount: account,
		})
	}
	return snapshot, nil
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid fee account: %v", err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid fee account length %d", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
