package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketd/native/custody"
	"marketd/native/ledger"
	"marketd/native/market"
	"marketd/native/params"
	"marketd/native/pricing"
	"marketd/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	requestIDHeader = "X-Request-Id"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// Server exposes the ledger and marketplace engines over JSON-RPC. A single
// mutex serializes every state transition; reads go through the same lock so
// responses never observe a half-applied transition.
type Server struct {
	ledger  *ledger.Engine
	market  *market.Engine
	custody *custody.Registry
	feed    *pricing.TableFeed
	policy  params.Market
	logger  *slog.Logger

	mu sync.Mutex
}

func NewServer(l *ledger.Engine, m *market.Engine, c *custody.Registry, feed *pricing.TableFeed, policy params.Market, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ledger: l, market: m, custody: c, feed: feed, policy: policy, logger: logger}
}

// Router returns the HTTP handler tree: the JSON-RPC endpoint, a liveness
// probe, and the Prometheus scrape endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/rpc", s.handle)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

// requestID tags every request with a correlation id, minting one when the
// client did not supply its own.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	w = rec
	started := time.Now()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	defer func() {
		observability.RPCMetrics().Observe(req.Method, rec.status, time.Since(started))
		s.logger.Info("rpc request",
			"method", req.Method,
			"status", rec.status,
			"duration", time.Since(started),
			"requestId", rec.Header().Get(requestIDHeader),
		)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Method {
	case "ledger_deposit":
		s.handleLedgerDeposit(w, r, req)
	case "ledger_withdraw":
		s.handleLedgerWithdraw(w, r, req)
	case "ledger_getBalance":
		s.handleLedgerGetBalance(w, r, req)
	case "market_announceSale":
		s.handleAnnounceSale(w, r, req)
	case "market_notifySaleEscrow":
		s.handleNotifySaleEscrow(w, r, req)
	case "market_purchaseSale":
		s.handlePurchaseSale(w, r, req)
	case "market_cancelSale":
		s.handleCancelSale(w, r, req)
	case "market_getSale":
		s.handleGetSale(w, r, req)
	case "market_findSaleByBundle":
		s.handleFindSaleByBundle(w, r, req)
	case "market_announceAuction":
		s.handleAnnounceAuction(w, r, req)
	case "market_notifyAuctionEscrow":
		s.handleNotifyAuctionEscrow(w, r, req)
	case "market_bid":
		s.handleBid(w, r, req)
	case "market_claimAuctionBuyer":
		s.handleClaimAuctionBuyer(w, r, req)
	case "market_claimAuctionSeller":
		s.handleClaimAuctionSeller(w, r, req)
	case "market_cancelAuction":
		s.handleCancelAuction(w, r, req)
	case "market_getAuction":
		s.handleGetAuction(w, r, req)
	case "market_findAuctionByBundle":
		s.handleFindAuctionByBundle(w, r, req)
	case "market_createBuyOffer":
		s.handleCreateBuyOffer(w, r, req)
	case "market_cancelBuyOffer":
		s.handleCancelBuyOffer(w, r, req)
	case "market_declineBuyOffer":
		s.handleDeclineBuyOffer(w, r, req)
	case "market_acceptBuyOffer":
		s.handleAcceptBuyOffer(w, r, req)
	case "market_getBuyOffer":
		s.handleGetBuyOffer(w, r, req)
	case "custody_registerCollection":
		s.handleRegisterCollection(w, r, req)
	case "custody_mintAsset":
		s.handleMintAsset(w, r, req)
	case "custody_createHold":
		s.handleCreateHold(w, r, req)
	case "custody_cancelHold":
		s.handleCancelHold(w, r, req)
	case "custody_getAsset":
		s.handleGetAsset(w, r, req)
	case "oracle_observe":
		s.handleOracleObserve(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

func parseHexAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: expected %d bytes", value, len(addr))
	}
	copy(addr[:], raw)
	return addr, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatHash(hash [32]byte) string {
	return "0x" + hex.EncodeToString(hash[:])
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
