package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	artledger "atelier/contexts/marketplace/art-ledger"
	ledgererrors "atelier/contexts/marketplace/art-ledger/domain/errors"
	ledgerhttp "atelier/contexts/marketplace/art-ledger/transport/http"

	_ "atelier/internal/platform/httpserver/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

const maxBodyBytes = 1 << 20

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ledger artledger.Module
	srv    *http.Server
}

func New(ledger artledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ledger: ledger,
	}
	s.registerRoutes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /v1/ledger/initialize", s.handleInitializeLedger)
	s.mux.HandleFunc("GET /v1/ledger", s.handleGetLedger)
	s.mux.HandleFunc("GET /v1/ledger/listings", s.handleListListings)
	s.mux.HandleFunc("GET /v1/ledger/listings/{artist}", s.handleGetListing)
	s.mux.HandleFunc("PUT /v1/ledger/listings/{artist}", s.handleListArt)
	s.mux.HandleFunc("POST /v1/ledger/listings/{artist}/purchase", s.handleBuyArt)
	s.mux.HandleFunc("POST /v1/ledger/commission/withdraw", s.handleWithdrawCommission)
	s.mux.HandleFunc("GET /v1/ledger/transfers", s.handleListTransfers)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInitializeLedger(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.InitializeLedgerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.InitializeLedgerHandler(r.Context(), req)
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.GetLedgerHandler(r.Context())
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, ok := parseIntQuery(w, query.Get("limit"), "limit")
	if !ok {
		return
	}
	offset, ok := parseIntQuery(w, query.Get("offset"), "offset")
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.ListListingsHandler(r.Context(), limit, offset)
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.GetListingHandler(r.Context(), r.PathValue("artist"))
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListArt(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req ledgerhttp.ListArtRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.ListArtHandler(r.Context(), callerID, r.PathValue("artist"), req)
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuyArt(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req ledgerhttp.BuyArtRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.BuyArtHandler(
		r.Context(),
		callerID,
		strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		r.PathValue("artist"),
		req,
	)
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawCommission(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req ledgerhttp.WithdrawCommissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.WithdrawCommissionHandler(
		r.Context(),
		callerID,
		strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		req,
	)
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	recipient := strings.TrimSpace(query.Get("recipient"))
	if recipient == "" {
		writeLedgerError(w, http.StatusBadRequest, "missing_recipient", "recipient query parameter is required")
		return
	}
	limit, ok := parseIntQuery(w, query.Get("limit"), "limit")
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.ListTransfersHandler(r.Context(), recipient, limit)
	if err != nil {
		s.writeLedgerDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeLedgerDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrNotInitialized):
		writeLedgerError(w, http.StatusConflict, "not_initialized", err.Error())
	case errors.Is(err, ledgererrors.ErrAlreadyInitialized):
		writeLedgerError(w, http.StatusConflict, "already_initialized", err.Error())
	case errors.Is(err, ledgererrors.ErrListingNotFound):
		writeLedgerError(w, http.StatusNotFound, "listing_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrInsufficientPayment):
		writeLedgerError(w, http.StatusPaymentRequired, "insufficient_payment", err.Error())
	case errors.Is(err, ledgererrors.ErrUnauthorized):
		writeLedgerError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidCommissionRate):
		writeLedgerError(w, http.StatusBadRequest, "invalid_commission_rate", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidInput):
		writeLedgerError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, ledgererrors.ErrIdempotencyKeyConflict):
		writeLedgerError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	default:
		s.logger.Error("ledger request failed",
			"event", "http_ledger_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	callerID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if callerID == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return callerID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func parseIntQuery(w http.ResponseWriter, raw string, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		writeLedgerError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return value, true
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
