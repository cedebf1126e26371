package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/ledger-engine/api"
	"github.com/finbooks/ledger-engine/ledger"
	"github.com/finbooks/ledger-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := store.NewMemory()
	engine := ledger.NewEngine(mem, mem, ledger.Settings{InvoicePrefix: "INV"}, zerolog.Nop())
	h := api.NewHandler(engine, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(h, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "user-1")
	req.Header.Set("X-User-Role", "admin")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createTestClient(t *testing.T, srv *httptest.Server) map[string]any {
	t.Helper()
	var client map[string]any
	resp := doJSON(t, srv, http.MethodPost, "/api/clients", map[string]any{
		"name":   "Acme Traders",
		"email":  "billing@acme.example",
		"active": true,
	}, &client)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return client
}

func invoiceBody(clientID string) map[string]any {
	return map[string]any{
		"clientId":  clientID,
		"issueDate": "2026-04-01T00:00:00Z",
		"dueDate":   "2026-04-30T00:00:00Z",
		"items": []map[string]any{
			{"description": "Consulting services", "quantity": "3", "rate": "100.00", "taxRate": "18"},
		},
	}
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestRequests_WithoutIdentityHeaders(t *testing.T) {
	srv := newTestServer(t)

	// writes are refused
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/clients", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// reads carry no audit fields and stay open
	resp, err = srv.Client().Get(srv.URL + "/api/clients")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// INVOICE FLOW
// =============================================================================

func TestCreateInvoice_EndToEnd(t *testing.T) {
	srv := newTestServer(t)
	client := createTestClient(t, srv)

	var inv map[string]any
	resp := doJSON(t, srv, http.MethodPost, "/api/invoices", invoiceBody(client["id"].(string)), &inv)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "INV-000001", inv["number"])
	assert.Equal(t, "draft", inv["status"])
	assert.Equal(t, "300.00", inv["subtotal"])
	assert.Equal(t, "54.00", inv["taxAmount"])
	assert.Equal(t, "354.00", inv["total"])
	assert.Equal(t, "user-1", inv["createdBy"])
}

func TestCreateInvoice_ValidationErrorListsViolations(t *testing.T) {
	srv := newTestServer(t)
	client := createTestClient(t, srv)

	body := invoiceBody(client["id"].(string))
	body["items"] = []map[string]any{
		{"description": "Bad line", "quantity": "1", "rate": "-10.00", "taxRate": "150"},
	}

	var errResp api.ErrorResponse
	resp := doJSON(t, srv, http.MethodPost, "/api/invoices", body, &errResp)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, errResp.Violations, 2)
}

func TestCreateInvoice_UnknownClientIs404(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/invoices", invoiceBody("no-such-client"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateInvoice_StaleVersionIs409(t *testing.T) {
	srv := newTestServer(t)
	client := createTestClient(t, srv)

	var inv map[string]any
	resp := doJSON(t, srv, http.MethodPost, "/api/invoices", invoiceBody(client["id"].(string)), &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := inv["id"].(string)

	upd := invoiceBody(client["id"].(string))
	upd["version"] = 1
	upd["notes"] = "first writer"
	resp = doJSON(t, srv, http.MethodPut, "/api/invoices/"+id, upd, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// second writer still holds version 1
	upd["notes"] = "second writer"
	resp = doJSON(t, srv, http.MethodPut, "/api/invoices/"+id, upd, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateInvoice_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/invoices", bytes.NewBufferString(`{"unknownField": true}`))
	require.NoError(t, err)
	req.Header.Set("X-User-Id", "user-1")
	req.Header.Set("X-User-Role", "admin")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestBootstrapAccounts_TwiceIsIdempotent(t *testing.T) {
	srv := newTestServer(t)

	var first api.BootstrapResponse
	resp := doJSON(t, srv, http.MethodPost, "/api/accounts/bootstrap", nil, &first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, first.Created)

	var second api.BootstrapResponse
	resp = doJSON(t, srv, http.MethodPost, "/api/accounts/bootstrap", nil, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, second.Created)

	var accounts []map[string]any
	resp = doJSON(t, srv, http.MethodGet, "/api/accounts", nil, &accounts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, accounts, 10)
}

func TestCreateAccount_DuplicateNameIs409(t *testing.T) {
	srv := newTestServer(t)

	body := map[string]any{"name": "Petty Cash", "type": "asset", "balance": "0.00", "active": true}
	resp := doJSON(t, srv, http.MethodPost, "/api/accounts", body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/api/accounts", body, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
