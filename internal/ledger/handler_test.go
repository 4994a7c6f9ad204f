package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, remote RemoteStore, online bool) (*Service, http.Handler) {
	t.Helper()
	svc := newTestService(t, remote, online)
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	return svc, r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndListSuppliers(t *testing.T) {
	_, router := newTestRouter(t, &fakeRemote{}, true)

	rec := doJSON(t, router, http.MethodPost, "/suppliers", map[string]string{
		"name": "Acme", "phone": "555",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Supplier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Positive(t, created.ID)

	rec = doJSON(t, router, http.MethodGet, "/suppliers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []Supplier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
}

func TestHandlerCreateSupplierValidation(t *testing.T) {
	_, router := newTestRouter(t, &fakeRemote{}, true)

	rec := doJSON(t, router, http.MethodPost, "/suppliers", map[string]string{"phone": "555"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCreateTransactionBadType(t *testing.T) {
	_, router := newTestRouter(t, &fakeRemote{}, true)

	rec := doJSON(t, router, http.MethodPost, "/transactions", map[string]any{
		"supplier_id": 1, "type": "refund", "amount": "10",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerConnectivityToggle(t *testing.T) {
	svc, router := newTestRouter(t, &fakeRemote{}, true)
	require.True(t, svc.Online())

	rec := doJSON(t, router, http.MethodPut, "/connectivity", map[string]bool{"online": false})
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, svc.Online())

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body["online"])
}

func TestHandlerSyncReportsCount(t *testing.T) {
	svc, router := newTestRouter(t, &fakeRemote{}, false)

	_, err := svc.CreateSupplier(context.Background(), "Acme", "")
	require.NoError(t, err)

	svc.SetConnectivity(true)
	rec := doJSON(t, router, http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body["synced"])
}

func TestHandlerStatement(t *testing.T) {
	svc, router := newTestRouter(t, &fakeRemote{}, true)
	ctx := context.Background()

	sup, err := svc.CreateSupplier(ctx, "Acme", "")
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		SupplierID: sup.ID, Type: TypeInvoice, Amount: dec("100"), Date: "2026-04-02",
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet,
		"/suppliers/1/statement?from=2026-04-01&to=2026-04-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st Statement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Len(t, st.Lines, 1)
	require.True(t, st.ClosingBalance.Equal(dec("100")))
}

func TestHandlerSettingsNeverLeaksHash(t *testing.T) {
	svc, router := newTestRouter(t, &fakeRemote{}, false)

	require.NoError(t, svc.SaveSettings(context.Background(), AppSettings{CompanyName: "x"}, "secret"))
	rec := doJSON(t, router, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "$2a$", "bcrypt hash must not appear in responses")
	require.NotContains(t, rec.Body.String(), "password")
}

func TestHandlerResetRequiresPassword(t *testing.T) {
	_, router := newTestRouter(t, &fakeRemote{}, true)

	rec := doJSON(t, router, http.MethodPost, "/reset", map[string]string{"password": "nope"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/reset", map[string]string{"password": "1234"})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerResetConflictsOffline(t *testing.T) {
	_, router := newTestRouter(t, &fakeRemote{}, false)

	rec := doJSON(t, router, http.MethodPost, "/reset", map[string]string{"password": "1234"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerDeleteTransactionBadID(t *testing.T) {
	_, router := newTestRouter(t, &fakeRemote{}, true)
	rec := doJSON(t, router, http.MethodDelete, "/transactions/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
