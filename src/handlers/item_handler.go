// backend/src/handlers/item_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/username/reusemarket/backend/src/config"
	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/models"
	"github.com/username/reusemarket/backend/src/services"
	"github.com/username/reusemarket/backend/src/store"
	"github.com/username/reusemarket/backend/src/utils"
)

type ItemHandler struct {
	listingService   services.ListingService
	purchaseService  services.PurchaseService
	emissionsService services.EmissionsService
	itemStore        *store.ItemStore
}

func NewItemHandler(listingService services.ListingService, purchaseService services.PurchaseService, emissionsService services.EmissionsService, itemStore *store.ItemStore) *ItemHandler {
	return &ItemHandler{
		listingService:   listingService,
		purchaseService:  purchaseService,
		emissionsService: emissionsService,
		itemStore:        itemStore,
	}
}

// statusForError maps a pipeline failure to its HTTP status. The stable
// code travels in the body so clients can branch without parsing text.
func statusForError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeInvalidState:
		return http.StatusConflict
	case models.CodeMismatch, models.CodeReverted, models.CodeNoEvent:
		return http.StatusBadRequest
	case models.CodeLedgerUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondPipelineError(w http.ResponseWriter, err error) {
	utils.SendJSONErrorCode(w, err.Error(), models.ErrorCode(err), statusForError(err))
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}

// HandleCreateItem runs the listing pipeline: the item only becomes
// visible once the ledger confirmed it.
func (h *ItemHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var input services.ListingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendJSONError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.listingService.CreateListing(r.Context(), input)
	if err != nil {
		if errors.Is(err, models.ErrCompensationFailed) {
			logger.L.Error("Listing failed and compensation failed too", "error", err)
		}
		respondPipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *ItemHandler) HandleGetItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemStore.List(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Error fetching items: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("tokenId")
	item, err := h.itemStore.GetByToken(r.Context(), token)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) HandleGetItemsBySeller(w http.ResponseWriter, r *http.Request) {
	address, ok := AddressFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "seller address not found in request context", http.StatusInternalServerError)
		return
	}
	items, err := h.itemStore.ListBySeller(r.Context(), address)
	if err != nil {
		utils.SendJSONError(w, "Error fetching seller items: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) HandleGetPurchasesByBuyer(w http.ResponseWriter, r *http.Request) {
	address, ok := AddressFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "buyer address not found in request context", http.StatusInternalServerError)
		return
	}
	items, err := h.itemStore.ListByBuyer(r.Context(), address)
	if err != nil {
		utils.SendJSONError(w, "Error fetching purchases: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

type prepareBuyRequest struct {
	Quantity     int64  `json:"quantity"`
	BuyerAddress string `json:"buyerAddress"`
}

// paymentInstruction tells the client exactly which contract call to
// sign. The backend never holds buyer keys; it only prepares the call.
type paymentInstruction struct {
	TokenID         string   `json:"tokenId"`
	ProductID       string   `json:"contractProductId"`
	ContractAddress string   `json:"contractAddress"`
	MethodName      string   `json:"methodName"`
	MethodParams    []string `json:"methodParams"`
	ValueWei        string   `json:"valueWei"`
	BuyerAddress    string   `json:"buyerAddress,omitempty"`
}

// HandlePrepareBuy returns the contract call the buyer's wallet must
// sign for this purchase. Nothing is persisted here.
func (h *ItemHandler) HandlePrepareBuy(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("tokenId")

	var req prepareBuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		utils.SendJSONError(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	}

	buyer := ""
	if req.BuyerAddress != "" {
		canonical, err := utils.CanonicalAddress(req.BuyerAddress)
		if err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		buyer = canonical
	}

	item, err := h.itemStore.GetByToken(r.Context(), token)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	if item.Status != models.StatusListed {
		utils.SendJSONErrorCode(w, "item is not available for purchase",
			models.CodeInvalidState, http.StatusConflict)
		return
	}
	if req.Quantity > item.Quantity {
		utils.SendJSONError(w, "requested quantity exceeds available stock", http.StatusBadRequest)
		return
	}

	unitPriceWei, _ := new(big.Float).Mul(big.NewFloat(item.Price), big.NewFloat(1e18)).Int(nil)
	totalWei := new(big.Int).Mul(unitPriceWei, big.NewInt(req.Quantity))

	writeJSON(w, http.StatusOK, paymentInstruction{
		TokenID:         item.Token,
		ProductID:       item.ProductID,
		ContractAddress: config.Cfg.MarketplaceAddress,
		MethodName:      "buyProduct",
		MethodParams:    []string{item.ProductID, big.NewInt(req.Quantity).String()},
		ValueWei:        totalWei.String(),
		BuyerAddress:    buyer,
	})
}

// HandleExecuteBuy verifies a buyer-submitted purchase proof against
// the ledger and settles the item on success.
func (h *ItemHandler) HandleExecuteBuy(w http.ResponseWriter, r *http.Request) {
	var req services.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Token = r.PathValue("tokenId")

	if req.TxHash == "" {
		utils.SendJSONError(w, "transactionHash is required", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" {
		utils.SendJSONError(w, "productId is required", http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		utils.SendJSONError(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	}
	if req.SkipAddressValidation {
		logger.L.Warn("Address validation skipped for purchase settlement",
			"token", req.Token, "hash", req.TxHash)
	}

	result, err := h.purchaseService.VerifyAndSettle(r.Context(), req)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleDeactivateItem pulls a listed item off the market, on-chain
// first.
func (h *ItemHandler) HandleDeactivateItem(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("tokenId")

	record, err := h.listingService.DeactivateItem(r.Context(), token)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "item deactivated",
		"tokenId":     token,
		"transaction": record,
	})
}

type emissionsRequest struct {
	ProductName string `json:"productName"`
}

// HandleCalculateEmissions exposes the emissions score lookup so the
// frontend can preview the footprint before listing.
func (h *ItemHandler) HandleCalculateEmissions(w http.ResponseWriter, r *http.Request) {
	var req emissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ProductName == "" {
		utils.SendJSONError(w, "productName is required", http.StatusBadRequest)
		return
	}

	footprint, err := h.emissionsService.ScoreProduct(r.Context(), req.ProductName)
	if err != nil {
		utils.SendJSONError(w, "Error scoring product emissions: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, footprint)
}
