/*
handlers.go - HTTP handlers for the back-office ledger

PURPOSE:
  Exposes the integrity engine via REST. Handlers are deliberately thin:
  parse the request, hand the document to the engine, serialize the
  result. Every financial rule lives in the ledger package.

ENDPOINTS (per entity: invoices, payroll, transactions, accounts,
clients, employees):
  GET    /api/<entity>          List
  POST   /api/<entity>          Create
  GET    /api/<entity>/{id}     Get
  PUT    /api/<entity>/{id}     Update (optimistic, body carries version)
  DELETE /api/<entity>/{id}     Delete

  POST   /api/accounts/bootstrap   Idempotent default chart seeding

IDENTITY:
  Authentication happens upstream. The proxy injects the verified
  identity as X-User-Id / X-User-Role headers; handlers refuse requests
  without them and pass the actor to the engine for audit fields only.

ERROR HANDLING:
  - 400: validation errors (all violations listed), malformed bodies
  - 404: document or referenced document not found
  - 409: uniqueness violation or stale version
  - 503: sequence counter unavailable
  - 504: persistence gateway timeout

SEE ALSO:
  - dto.go:    envelope types
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/finbooks/ledger-engine/ledger"
)

// Handler holds the engine and logger shared by all routes.
type Handler struct {
	Engine *ledger.Engine
	Log    zerolog.Logger
}

func NewHandler(engine *ledger.Engine, log zerolog.Logger) *Handler {
	return &Handler{Engine: engine, Log: log}
}

// =============================================================================
// HELPERS
// =============================================================================

// actor extracts the verified identity injected by the auth proxy.
func actor(r *http.Request) (ledger.Actor, bool) {
	id := r.Header.Get("X-User-Id")
	role := r.Header.Get("X-User-Role")
	if id == "" || role == "" {
		return ledger.Actor{}, false
	}
	return ledger.Actor{ID: id, Role: role}, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func requireActor(w http.ResponseWriter, r *http.Request) (ledger.Actor, bool) {
	act, ok := actor(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing identity headers"})
	}
	return act, ok
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Violations: ve.Violations})
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrSequenceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrGatewayTimeout):
		writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.Log.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// =============================================================================
// INVOICES
// =============================================================================

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var inv ledger.Invoice
	if !decodeBody(w, r, &inv) {
		return
	}
	created, err := h.Engine.CreateInvoice(r.Context(), act, &inv)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var inv ledger.Invoice
	if !decodeBody(w, r, &inv) {
		return
	}
	updated, err := h.Engine.UpdateInvoice(r.Context(), act, chi.URLParam(r, "id"), inv.Version, &inv)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Engine.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invs, err := h.Engine.ListInvoices(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// PAYROLL
// =============================================================================

func (h *Handler) CreatePayroll(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var p ledger.PayrollRecord
	if !decodeBody(w, r, &p) {
		return
	}
	created, err := h.Engine.CreatePayroll(r.Context(), act, &p)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdatePayroll(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var p ledger.PayrollRecord
	if !decodeBody(w, r, &p) {
		return
	}
	updated, err := h.Engine.UpdatePayroll(r.Context(), act, chi.URLParam(r, "id"), p.Version, &p)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.GetPayroll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListPayrolls(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Engine.ListPayrolls(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) DeletePayroll(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeletePayroll(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var t ledger.Transaction
	if !decodeBody(w, r, &t) {
		return
	}
	created, err := h.Engine.CreateTransaction(r.Context(), act, &t)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var t ledger.Transaction
	if !decodeBody(w, r, &t) {
		return
	}
	updated, err := h.Engine.UpdateTransaction(r.Context(), act, chi.URLParam(r, "id"), t.Version, &t)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Engine.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Engine.ListTransactions(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var a ledger.Account
	if !decodeBody(w, r, &a) {
		return
	}
	created, err := h.Engine.CreateAccount(r.Context(), act, &a)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var a ledger.Account
	if !decodeBody(w, r, &a) {
		return
	}
	updated, err := h.Engine.UpdateAccount(r.Context(), act, chi.URLParam(r, "id"), a.Version, &a)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Engine.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	as, err := h.Engine.ListAccounts(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// BootstrapAccounts seeds the default chart of accounts. Safe to call
// repeatedly: the second call is a success no-op.
func (h *Handler) BootstrapAccounts(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	created, err := h.Engine.BootstrapAccounts(r.Context(), act)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	msg := "default chart of accounts created"
	if created == 0 {
		msg = "chart of accounts already present"
	}
	writeJSON(w, http.StatusOK, BootstrapResponse{Created: created, Message: msg})
}

// =============================================================================
// CLIENTS
// =============================================================================

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var c ledger.Client
	if !decodeBody(w, r, &c) {
		return
	}
	created, err := h.Engine.CreateClient(r.Context(), act, &c)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var c ledger.Client
	if !decodeBody(w, r, &c) {
		return
	}
	updated, err := h.Engine.UpdateClient(r.Context(), act, chi.URLParam(r, "id"), c.Version, &c)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Engine.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Engine.ListClients(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var emp ledger.Employee
	if !decodeBody(w, r, &emp) {
		return
	}
	created, err := h.Engine.CreateEmployee(r.Context(), act, &emp)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	act, ok := requireActor(w, r)
	if !ok {
		return
	}
	var emp ledger.Employee
	if !decodeBody(w, r, &emp) {
		return
	}
	updated, err := h.Engine.UpdateEmployee(r.Context(), act, chi.URLParam(r, "id"), emp.Version, &emp)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Engine.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := h.Engine.ListEmployees(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emps)
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteEmployee(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
