package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"marketd/native/custody"
)

const (
	codeCustodyInvalidParams = -32031
	codeCustodyNotFound      = -32032
	codeCustodyConflict      = -32034
	codeCustodyInternal      = -32035
)

type registerCollectionParams struct {
	Name   string `json:"name"`
	Author string `json:"author"`
	FeeBps uint32 `json:"feeBps"`
}

type mintAssetParams struct {
	Owner      string `json:"owner"`
	Collection string `json:"collection"`
}

type createHoldParams struct {
	From     string   `json:"from"`
	AssetIDs []uint64 `json:"assetIds"`
}

type cancelHoldParams struct {
	From   string `json:"from"`
	HoldID uint64 `json:"holdId"`
}

type assetIDParams struct {
	AssetID uint64 `json:"assetId"`
}

type observeParams struct {
	PairID string `json:"pairId"`
	Median uint64 `json:"median"`
}

type assetJSON struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	Collection   string `json:"collection"`
	Transferable bool   `json:"transferable"`
	HeldBy       string `json:"heldBy,omitempty"`
}

type holdIDResult struct {
	HoldID string `json:"holdId"`
}

func (s *Server) handleRegisterCollection(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p registerCollectionParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	author, err := parseHexAddress(p.Author)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	if _, err := s.custody.RegisterCollection(p.Name, author, p.FeeBps); err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMintAsset(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p mintAssetParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseHexAddress(p.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := s.custody.MintAsset(owner, p.Collection)
	if err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAssetJSON(asset))
}

func (s *Server) handleCreateHold(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p createHoldParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseHexAddress(p.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	holdID, err := s.custody.CreateHold(from, p.AssetIDs)
	if err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, holdIDResult{HoldID: strconv.FormatUint(holdID, 10)})
}

func (s *Server) handleCancelHold(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p cancelHoldParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseHexAddress(p.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.custody.ReleaseHold(from, p.HoldID); err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p assetIDParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	asset, err := s.custody.GetAsset(p.AssetID)
	if err != nil {
		writeCustodyError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAssetJSON(asset))
}

func (s *Server) handleOracleObserve(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p observeParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.feed.Observe(p.PairID, p.Median); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCustodyInvalidParams, "invalid_params", err.Error())
		return
	}
	writeResult(w, req.ID, true)
}

func formatAssetJSON(asset *custody.Asset) assetJSON {
	result := assetJSON{
		ID:           strconv.FormatUint(asset.ID, 10),
		Owner:        formatAddress(asset.Owner),
		Collection:   asset.Collection,
		Transferable: asset.Transferable,
	}
	if asset.HeldBy != 0 {
		result.HeldBy = strconv.FormatUint(asset.HeldBy, 10)
	}
	return result
}

func writeCustodyError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeCustodyInternal
	message := "internal_error"
	switch {
	case errors.Is(err, custody.ErrAssetNotFound), errors.Is(err, custody.ErrHoldNotFound), errors.Is(err, custody.ErrUnknownCollection):
		status = http.StatusNotFound
		code = codeCustodyNotFound
		message = "not_found"
	case errors.Is(err, custody.ErrNotOwner), errors.Is(err, custody.ErrAssetHeld), errors.Is(err, custody.ErrDuplicateCollection):
		status = http.StatusConflict
		code = codeCustodyConflict
		message = "conflict"
	}
	writeError(w, status, id, code, message, err.Error())
}
