package services

import (
	"context"

	"github.com/username/reusemarket/backend/src/models"
	"github.com/username/reusemarket/backend/src/store"
)

// ItemStore is the persistence surface the reconcilers depend on.
// *store.ItemStore satisfies it; tests may substitute their own.
type ItemStore interface {
	Insert(ctx context.Context, item *models.Item) error
	GetByToken(ctx context.Context, token string) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	UpdateIfStatus(ctx context.Context, item *models.Item, expected models.ItemStatus) error
	Delete(ctx context.Context, token string) error
}

// ListingInput carries the caller-supplied fields for a new listing.
type ListingInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
}

// ListingResult is returned once a listing is anchored to the ledger.
type ListingResult struct {
	Item        *models.Item                   `json:"item"`
	Transaction *models.TransactionAuditRecord `json:"transaction"`
}

// ListingService reconciles draft items with confirmed ledger listings.
type ListingService interface {
	CreateListing(ctx context.Context, input ListingInput) (*ListingResult, error)
	DeactivateItem(ctx context.Context, token string) (*models.TransactionAuditRecord, error)
}

// PurchaseRequest is a caller-submitted purchase proof. The
// transaction hash and claims are untrusted until verified against the
// ledger receipt.
type PurchaseRequest struct {
	Token                 string `json:"tokenId"`
	TxHash                string `json:"transactionHash"`
	ProductID             string `json:"productId"`
	Quantity              int64  `json:"quantity"`
	Buyer                 string `json:"buyer,omitempty"`
	Seller                string `json:"seller,omitempty"`
	SkipAddressValidation bool   `json:"skipAddressValidation,omitempty"`
}

// Reward is the incentive earned by a settled purchase, in base token
// units as a decimal string.
type Reward struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// SettlementResult reports a completed (or idempotently repeated)
// purchase settlement.
type SettlementResult struct {
	Item           *models.Item                   `json:"item"`
	Transaction    *models.TransactionAuditRecord `json:"transaction"`
	Rewards        *Reward                        `json:"rewards,omitempty"`
	AlreadySettled bool                           `json:"alreadySettled"`
}

// PurchaseService verifies purchase proofs and settles items.
type PurchaseService interface {
	VerifyAndSettle(ctx context.Context, req PurchaseRequest) (*SettlementResult, error)
}

// EmissionsService scores a product against the external emissions
// model. Implementations must degrade gracefully; listing never blocks
// on an unavailable scorer.
type EmissionsService interface {
	ScoreProduct(ctx context.Context, productName string) (models.CarbonFootprint, error)
}

// ImpactService serves the reuse-impact dashboard aggregates.
type ImpactService interface {
	CommunityImpact(ctx context.Context) (*store.CommunityImpact, error)
	SellerImpact(ctx context.Context, seller string) (*store.SellerImpact, error)
	Leaderboard(ctx context.Context) ([]store.SellerImpact, error)
}
