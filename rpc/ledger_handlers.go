package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"marketd/native/ledger"
	"marketd/native/params"
)

const (
	codeLedgerInvalidParams = -32011
	codeLedgerNotFound      = -32012
	codeLedgerConflict      = -32013
	codeLedgerInternal      = -32015
)

type ledgerMoveParams struct {
	Owner  string `json:"owner"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

type ledgerBalanceParams struct {
	Owner string `json:"owner"`
}

type balanceEntryJSON struct {
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

type balanceJSON struct {
	Owner    string             `json:"owner"`
	Balances []balanceEntryJSON `json:"balances"`
}

func (s *Server) handleLedgerDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	owner, symbol, amount, ok := s.decodeLedgerMove(w, req)
	if !ok {
		return
	}
	if err := s.ledger.Deposit(s.policy, owner, symbol, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.balanceJSON(owner))
}

func (s *Server) handleLedgerWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	owner, symbol, amount, ok := s.decodeLedgerMove(w, req)
	if !ok {
		return
	}
	if err := s.ledger.Withdraw(s.policy, owner, symbol, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.balanceJSON(owner))
}

func (s *Server) handleLedgerGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeLedgerInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var p ledgerBalanceParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeLedgerInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseHexAddress(p.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeLedgerInvalidParams, "invalid_params", err.Error())
		return
	}
	writeResult(w, req.ID, s.balanceJSON(owner))
}

func (s *Server) decodeLedgerMove(w http.ResponseWriter, req *RPCRequest) ([20]byte, string, *big.Int, bool) {
	var zero [20]byte
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeLedgerInvalidParams, "invalid_params", "exactly one parameter object expected")
		return zero, "", nil, false
	}
	var p ledgerMoveParams
	if err := json.Unmarshal(req.Params[0], &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeLedgerInvalidParams, "invalid_params", err.Error())
		return zero, "", nil, false
	}
	owner, err := parseHexAddress(p.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeLedgerInvalidParams, "invalid_params", err.Error())
		return zero, "", nil, false
	}
	amount, err := parsePositiveBigInt(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeLedgerInvalidParams, "invalid_params", err.Error())
		return zero, "", nil, false
	}
	return owner, p.Symbol, amount, true
}

func (s *Server) balanceJSON(owner [20]byte) balanceJSON {
	result := balanceJSON{Owner: formatAddress(owner), Balances: []balanceEntryJSON{}}
	balance, err := s.ledger.Balances(owner)
	if err != nil || balance == nil {
		return result
	}
	for _, entry := range balance.Quantities {
		result.Balances = append(result.Balances, balanceEntryJSON{
			Symbol: entry.Symbol,
			Amount: formatAmount(entry.Amount),
		})
	}
	return result
}

func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeLedgerInternal
	message := "internal_error"
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusConflict
		code = codeLedgerConflict
		message = "insufficient_funds"
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
		code = codeLedgerNotFound
		message = "not_found"
	case errors.Is(err, params.ErrUnsupportedCurrency):
		status = http.StatusBadRequest
		code = codeLedgerInvalidParams
		message = "unsupported_currency"
	}
	writeError(w, status, id, code, message, err.Error())
}
