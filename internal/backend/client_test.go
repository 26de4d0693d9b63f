package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"temple-vouchers/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, success bool, message string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(envelope{Success: success, Message: message, Data: raw}))
}

func TestClient_LedgersCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/accounts/ledgers/bank-accounts", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeEnvelope(t, w, http.StatusOK, true, "", []core.LedgerAccount{
			{ID: 1, Name: "SBI Current", LeftCode: "1200", RightCode: "001"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Token: "secret"})
	for i := 0; i < 3; i++ {
		got, err := c.Ledgers(context.Background(), core.FilterBankAccounts)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "1200/001", got[0].DisplayCode())
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_EntryDecodesDecimals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/entries/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":42,"entrytype_id":6,"entry_code":"INV-9","date":"2026-01-05","fund_id":1,
			"entry_items":[{"ledger_id":501,"dc":"D","amount":"45.00","quantity":"15","unit_price":"3"},
			{"ledger_id":602,"dc":"C","amount":45}]}}`))
	}))
	defer srv.Close()

	e, err := NewClient(srv.URL, Options{}).Entry(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, core.EntryInventoryJournal, e.EntryTypeID)
	require.Len(t, e.Items, 2)
	require.NotNil(t, e.Items[0].Quantity)
	assert.Equal(t, "15", e.Items[0].Quantity.String())
	assert.False(t, e.Items[1].IsInventory())
	assert.Equal(t, "45.00", e.Items[1].Amount.StringFixed(2))
}

func TestClient_GenerateEntryCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req entryCodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CON", req.Prefix)
		assert.Equal(t, core.EntryContra, req.EntryTypeID)
		assert.Equal(t, "2026-04-01", req.Date)
		writeEnvelope(t, w, http.StatusOK, true, "", map[string]string{"entry_code": "CON-0012"})
	}))
	defer srv.Close()

	code, err := NewClient(srv.URL, Options{}).GenerateEntryCode(context.Background(), "CON", core.EntryContra, "2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, "CON-0012", code)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		success bool
		message string
	}{
		{"server error", http.StatusInternalServerError, false, "boom"},
		{"validation rejected", http.StatusUnprocessableEntity, false, "entry_code taken"},
		{"success flag false", http.StatusOK, false, "fund closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(t, w, tt.status, tt.success, tt.message, nil)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, Options{}).SubmitEntry(context.Background(), "/accounts/entries/contra", map[string]int{"a": 1})
			require.ErrorIs(t, err, ErrUnexpectedStatus)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.message, se.Message)
		})
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, Options{}).Funds(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad gateway", se.Message)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, true, "", core.StockBalance{})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, Options{}).InventoryBalance(ctx, 501)
	assert.ErrorIs(t, err, context.Canceled)
}
