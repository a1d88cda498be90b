package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"marketd/native/market"
)

type announceAuctionParams struct {
	Seller      string   `json:"seller"`
	AssetIDs    []uint64 `json:"assetIds"`
	StartingBid string   `json:"startingBid"`
	Symbol      string   `json:"symbol"`
	Duration    int64    `json:"duration"`
	Marketplace string   `json:"marketplace,omitempty"`
}

type notifyAuctionEscrowParams struct {
	Seller   string   `json:"seller"`
	AssetIDs []uint64 `json:"assetIds"`
}

type bidParams struct {
	Bidder      string `json:"bidder"`
	AuctionID   uint64 `json:"auctionId"`
	Amount      string `json:"amount"`
	Symbol      string `json:"symbol"`
	Marketplace string `json:"marketplace,omitempty"`
}

type auctionActorParams struct {
	Caller    string `json:"caller"`
	AuctionID uint64 `json:"auctionId"`
}

type auctionIDParams struct {
	AuctionID uint64 `json:"auctionId"`
}

type auctionIDResult struct {
	AuctionID string `json:"auctionId"`
}

type auctionJSON struct {
	ID                    string   `json:"id"`
	Seller                string   `json:"seller"`
	AssetIDs              []uint64 `json:"assetIds"`
	BundleHash            string   `json:"bundleHash"`
	Symbol                string   `json:"symbol"`
	CurrentBid            string   `json:"currentBid"`
	Bidder                string   `json:"bidder,omitempty"`
	HasBid                bool     `json:"hasBid"`
	EndTime               int64    `json:"endTime"`
	Marketplace           string   `json:"marketplace"`
	CompletionMarketplace string   `json:"completionMarketplace,omitempty"`
	Collection            string   `json:"collection,omitempty"`
	CollectionBeneficiary string   `json:"collectionBeneficiary,omitempty"`
	CollectionFeeBps      uint32   `json:"collectionFeeBps"`
	EscrowReceived        bool     `json:"escrowReceived"`
	ClaimedBySeller       bool     `json:"claimedBySeller"`
	ClaimedByBuyer        bool     `json:"claimedByBuyer"`
	CreatedAt             int64    `json:"createdAt"`
}

func (s *Server) handleAnnounceAuction(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p announceAuctionParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseHexAddress(p.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	startingBid, err := parsePositiveBigInt(p.StartingBid)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	auction, err := s.market.AnnounceAuction(s.policy, seller, p.AssetIDs, startingBid, p.Symbol, p.Duration, p.Marketplace)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, auctionIDResult{AuctionID: strconv.FormatUint(auction.ID, 10)})
}

func (s *Server) handleNotifyAuctionEscrow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p notifyAuctionEscrowParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseHexAddress(p.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.HandleAuctionEscrow(seller, p.AssetIDs); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBid(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p bidParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseHexAddress(p.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.Bid(s.policy, bidder, p.AuctionID, amount, p.Symbol, p.Marketplace); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleClaimAuctionBuyer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, auctionID, ok := decodeAuctionActor(w, req)
	if !ok {
		return
	}
	if err := s.market.ClaimAuctionBuyer(caller, auctionID); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleClaimAuctionSeller(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, auctionID, ok := decodeAuctionActor(w, req)
	if !ok {
		return
	}
	if err := s.market.ClaimAuctionSeller(s.policy, caller, auctionID); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleCancelAuction(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, auctionID, ok := decodeAuctionActor(w, req)
	if !ok {
		return
	}
	if err := s.market.CancelAuction(caller, auctionID); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetAuction(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p auctionIDParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	auction, err := s.market.GetAuction(p.AuctionID)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAuctionJSON(auction))
}

func (s *Server) handleFindAuctionByBundle(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p bundleLookupParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseHexAddress(p.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	auction, err := s.market.FindAuctionByBundle(seller, p.AssetIDs)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAuctionJSON(auction))
}

func decodeAuctionActor(w http.ResponseWriter, req *RPCRequest) ([20]byte, uint64, bool) {
	var zero [20]byte
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return zero, 0, false
	}
	var p auctionActorParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return zero, 0, false
	}
	caller, err := parseHexAddress(p.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return zero, 0, false
	}
	return caller, p.AuctionID, true
}

func formatAuctionJSON(auction *market.Auction) auctionJSON {
	result := auctionJSON{
		ID:                    strconv.FormatUint(auction.ID, 10),
		Seller:                formatAddress(auction.Seller),
		AssetIDs:              auction.AssetIDs,
		BundleHash:            formatHash(auction.BundleHash),
		Symbol:                auction.Symbol,
		CurrentBid:            formatAmount(auction.CurrentBid),
		HasBid:                auction.HasBid,
		EndTime:               auction.EndTime,
		Marketplace:           auction.OriginMarketplace,
		CompletionMarketplace: auction.CompletionMarketplace,
		Collection:            auction.Collection,
		CollectionFeeBps:      auction.CollectionFeeBps,
		EscrowReceived:        auction.EscrowReceived,
		ClaimedBySeller:       auction.ClaimedBySeller,
		ClaimedByBuyer:        auction.ClaimedByBuyer,
		CreatedAt:             auction.CreatedAt,
	}
	if auction.HasBid {
		result.Bidder = formatAddress(auction.Bidder)
	}
	if auction.CollectionBeneficiary != ([20]byte{}) {
		result.CollectionBeneficiary = formatAddress(auction.CollectionBeneficiary)
	}
	return result
}
