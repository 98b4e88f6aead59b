// backend/src/handlers/impact_handler.go
package handlers

import (
	"net/http"

	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/services"
	"github.com/username/reusemarket/backend/src/utils"
)

type ImpactHandler struct {
	impactService services.ImpactService
}

func NewImpactHandler(impactService services.ImpactService) *ImpactHandler {
	return &ImpactHandler{impactService: impactService}
}

// HandleCommunityImpact serves the marketplace-wide dashboard
// aggregates. Responses carry an ETag so unchanged dashboards cost a
// 304 instead of a recomputed body.
func (h *ImpactHandler) HandleCommunityImpact(w http.ResponseWriter, r *http.Request) {
	impact, err := h.impactService.CommunityImpact(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Error computing community impact: "+err.Error(), http.StatusInternalServerError)
		return
	}

	etag, err := utils.GenerateETag(impact)
	if err != nil {
		logger.L.Warn("Could not generate ETag for community impact", "error", err)
	} else {
		if match := r.Header.Get("If-None-Match"); match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	writeJSON(w, http.StatusOK, impact)
}

func (h *ImpactHandler) HandleUserImpact(w http.ResponseWriter, r *http.Request) {
	address, ok := AddressFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "address not found in request context", http.StatusInternalServerError)
		return
	}

	impact, err := h.impactService.SellerImpact(r.Context(), address)
	if err != nil {
		utils.SendJSONError(w, "Error computing user impact: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, impact)
}

func (h *ImpactHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	leaderboard, err := h.impactService.Leaderboard(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Error computing leaderboard: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, leaderboard)
}
