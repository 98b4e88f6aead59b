// backend/src/handlers/middleware.go
package handlers

import (
	"context"
	"net/http"

	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/utils"
)

type contextKey string

const addressContextKey contextKey = "ledgerAddress"

// ValidateAddressParam rejects requests whose {address} path segment is
// not a ledger address, and stores the EIP-55 canonical form in the
// request context. Handlers behind it never see a raw address.
func ValidateAddressParam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.PathValue("address")
		canonical, err := utils.CanonicalAddress(raw)
		if err != nil {
			logger.L.Debug("ValidateAddressParam: rejected address", "path", r.URL.Path, "address", raw)
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), addressContextKey, canonical)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AddressFromContext returns the canonical address stored by
// ValidateAddressParam.
func AddressFromContext(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(addressContextKey).(string)
	return address, ok
}
