package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"marketd/native/market"
)

type announceSaleParams struct {
	Seller      string   `json:"seller"`
	AssetIDs    []uint64 `json:"assetIds"`
	Price       string   `json:"price"`
	Symbol      string   `json:"symbol"`
	PairID      string   `json:"pairId,omitempty"`
	Marketplace string   `json:"marketplace,omitempty"`
}

type notifySaleEscrowParams struct {
	HoldID   uint64   `json:"holdId"`
	Seller   string   `json:"seller"`
	AssetIDs []uint64 `json:"assetIds"`
}

type purchaseSaleParams struct {
	Buyer          string `json:"buyer"`
	SaleID         uint64 `json:"saleId"`
	IntendedPrice  string `json:"intendedPrice"`
	IntendedMedian uint64 `json:"intendedMedian,omitempty"`
	Marketplace    string `json:"marketplace,omitempty"`
}

type saleActorParams struct {
	Caller string `json:"caller"`
	SaleID uint64 `json:"saleId"`
}

type saleIDParams struct {
	SaleID uint64 `json:"saleId"`
}

type bundleLookupParams struct {
	Seller   string   `json:"seller"`
	AssetIDs []uint64 `json:"assetIds"`
}

type saleIDResult struct {
	SaleID string `json:"saleId"`
}

type saleJSON struct {
	ID                    string   `json:"id"`
	Seller                string   `json:"seller"`
	AssetIDs              []uint64 `json:"assetIds"`
	BundleHash            string   `json:"bundleHash"`
	Price                 string   `json:"price"`
	Symbol                string   `json:"symbol"`
	PairID                string   `json:"pairId,omitempty"`
	Marketplace           string   `json:"marketplace"`
	Collection            string   `json:"collection,omitempty"`
	CollectionBeneficiary string   `json:"collectionBeneficiary,omitempty"`
	CollectionFeeBps      uint32   `json:"collectionFeeBps"`
	Escrowed              bool     `json:"escrowed"`
	CreatedAt             int64    `json:"createdAt"`
}

func (s *Server) handleAnnounceSale(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p announceSaleParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseHexAddress(p.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(p.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	sale, err := s.market.AnnounceSale(s.policy, seller, p.AssetIDs, price, p.Symbol, p.PairID, p.Marketplace)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, saleIDResult{SaleID: strconv.FormatUint(sale.ID, 10)})
}

func (s *Server) handleNotifySaleEscrow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p notifySaleEscrowParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseHexAddress(p.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.HandleSaleEscrow(p.HoldID, seller, p.AssetIDs); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePurchaseSale(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p purchaseSaleParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	buyer, err := parseHexAddress(p.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(p.IntendedPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.PurchaseSale(s.policy, buyer, p.SaleID, price, p.IntendedMedian, p.Marketplace); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleCancelSale(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p saleActorParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseHexAddress(p.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.market.CancelSale(caller, p.SaleID); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetSale(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p saleIDParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	sale, err := s.market.GetSale(p.SaleID)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatSaleJSON(sale))
}

func (s *Server) handleFindSaleByBundle(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	sale, err := s.market.FindSaleByBundle(seller, p.AssetIDs)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatSaleJSON(sale))
}

func formatSaleJSON(sale *market.Sale) saleJSON {
	result := saleJSON{
		ID:               strconv.FormatUint(sale.ID, 10),
		Seller:           formatAddress(sale.Seller),
		AssetIDs:         sale.AssetIDs,
		BundleHash:       formatHash(sale.BundleHash),
		Price:            formatAmount(sale.Price),
		Symbol:           sale.Symbol,
		PairID:           sale.PairID,
		Marketplace:      sale.OriginMarketplace,
		Collection:       sale.Collection,
		CollectionFeeBps: sale.CollectionFeeBps,
		Escrowed:         sale.Escrowed,
		CreatedAt:        sale.CreatedAt,
	}
	if sale.CollectionBeneficiary != ([20]byte{}) {
		result.CollectionBeneficiary = formatAddress(sale.CollectionBeneficiary)
	}
	return result
}
