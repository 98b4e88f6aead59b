package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestValidateAddressParam(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/items/seller/{address}",
		ValidateAddressParam(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			address, ok := AddressFromContext(r.Context())
			require.True(t, ok)
			fmt.Fprint(w, address)
		})))

	t.Run("canonicalizes valid address", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/items/seller/0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil)
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", rec.Body.String())
	})

	t.Run("rejects malformed address", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/items/seller/not-an-address", nil)
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid ledger address")
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrInvalidState, http.StatusConflict},
		{models.ErrMismatch, http.StatusBadRequest},
		{models.ErrReverted, http.StatusBadRequest},
		{models.ErrNoEvent, http.StatusBadRequest},
		{models.ErrLedgerUnavailable, http.StatusBadGateway},
		{models.ErrPersistence, http.StatusInternalServerError},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, statusForError(tc.err), "error %v", tc.err)
	}
}

func TestHandleExecuteBuyRejectsIncompleteProof(t *testing.T) {
	handler := NewItemHandler(nil, nil, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/items/{tokenId}/execute-buy", handler.HandleExecuteBuy)

	tests := []struct {
		name string
		body string
	}{
		{"missing hash", `{"productId": "7", "quantity": 2}`},
		{"missing product id", `{"transactionHash": "0xabc", "quantity": 2}`},
		{"zero quantity", `{"transactionHash": "0xabc", "productId": "7"}`},
		{"not json", `quantity=2`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost,
				"/api/items/tok-1/execute-buy", strings.NewReader(tc.body))
			mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
