package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"marketd/native/market"
)

type createBuyOfferParams struct {
	Proposer    string   `json:"proposer"`
	Recipient   string   `json:"recipient"`
	AssetIDs    []uint64 `json:"assetIds"`
	Price       string   `json:"price"`
	Symbol      string   `json:"symbol"`
	Note        string   `json:"note,omitempty"`
	Marketplace string   `json:"marketplace,omitempty"`
}

type buyOfferActorParams struct {
	Caller  string `json:"caller"`
	OfferID uint64 `json:"offerId"`
}

type acceptBuyOfferParams struct {
	Caller      string `json:"caller"`
	OfferID     uint64 `json:"offerId"`
	Marketplace string `json:"marketplace,omitempty"`
}

type buyOfferIDParams struct {
	OfferID uint64 `json:"offerId"`
}

type buyOfferIDResult struct {
	OfferID string `json:"offerId"`
}

type buyOfferJSON struct {
	ID          string   `json:"id"`
	Proposer    string   `json:"proposer"`
	Recipient   string   `json:"recipient"`
	AssetIDs    []uint64 `json:"assetIds"`
	BundleHash  string   `json:"bundleHash"`
	Price       string   `json:"price"`
	Symbol      string   `json:"symbol"`
	Note        string   `json:"note,omitempty"`
	Marketplace string   `json:"marketplace"`
	CreatedAt   int64    `json:"createdAt"`
}

func (s *Server) handleCreateBuyOffer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p createBuyOfferParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	proposer, err := parseHexAddress(p.Proposer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := parseHexAddress(p.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(p.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	offer, err := s.market.CreateBuyOffer(s.policy, proposer, recipient, p.AssetIDs, price, p.Symbol, p.Note, p.Marketplace)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, buyOfferIDResult{OfferID: strconv.FormatUint(offer.ID, 10)})
}

func (s *Server) handleCancelBuyOffer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, offerID, ok := decodeBuyOfferActor(w, req)
	if !ok {
		return
	}
	if err := s.market.CancelBuyOffer(caller, offerID); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleDeclineBuyOffer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	caller, offerID, ok := decodeBuyOfferActor(w, req)
	if !ok {
		return
	}
	if err := s.market.DeclineBuyOffer(caller, offerID); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAcceptBuyOffer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p acceptBuyOfferParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseHexAddress(p.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.AcceptBuyOffer(s.policy, caller, p.OfferID, p.Marketplace); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetBuyOffer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p buyOfferIDParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	offer, err := s.market.GetBuyOffer(p.OfferID)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatBuyOfferJSON(offer))
}

func decodeBuyOfferActor(w http.ResponseWriter, req *RPCRequest) ([20]byte, uint64, bool) {
	var zero [20]byte
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return zero, 0, false
	}
	var p buyOfferActorParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return zero, 0, false
	}
	caller, err := parseHexAddress(p.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return zero, 0, false
	}
	return caller, p.OfferID, true
}

func formatBuyOfferJSON(offer *market.BuyOffer) buyOfferJSON {
	return buyOfferJSON{
		ID:          strconv.FormatUint(offer.ID, 10),
		Proposer:    formatAddress(offer.Proposer),
		Recipient:   formatAddress(offer.Recipient),
		AssetIDs:    offer.AssetIDs,
		BundleHash:  formatHash(offer.BundleHash),
		Price:       formatAmount(offer.Price),
		Symbol:      offer.Symbol,
		Note:        offer.Note,
		Marketplace: offer.OriginMarketplace,
		CreatedAt:   offer.CreatedAt,
	}
}
