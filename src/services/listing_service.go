// backend/src/services/listing_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/username/reusemarket/backend/src/ledger"
	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/models"
)

type listingServiceImpl struct {
	store         ItemStore
	gateway       ledger.Gateway
	emissions     EmissionsService
	confirmations uint64
	waitTimeout   time.Duration
}

// NewListingService creates the listing reconciler. The gateway and
// store are injected; nothing here touches process-global ledger state.
func NewListingService(itemStore ItemStore, gateway ledger.Gateway, emissions EmissionsService, confirmations uint64, waitTimeout time.Duration) ListingService {
	return &listingServiceImpl{
		store:         itemStore,
		gateway:       gateway,
		emissions:     emissions,
		confirmations: confirmations,
		waitTimeout:   waitTimeout,
	}
}

// CreateListing runs the draft → listed pipeline: insert a draft,
// submit the listing transaction, wait for confirmation, bind the
// ledger-assigned product id, then persist the listed item. Every
// failure after the draft insert deletes the draft again so no token
// is ever left orphaned in a state it cannot leave.
func (s *listingServiceImpl) CreateListing(ctx context.Context, input ListingInput) (*ListingResult, error) {
	if err := validateListingInput(input); err != nil {
		return nil, err
	}

	footprint := s.scoreEmissions(ctx, input.Name)

	seller := s.gateway.SignerAddress().Hex()
	draft := &models.Item{
		Token:           uuid.NewString(),
		Name:            input.Name,
		Description:     input.Description,
		Price:           input.Price,
		Quantity:        input.Quantity,
		Seller:          seller,
		Status:          models.StatusDraft,
		CarbonFootprint: footprint,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.Insert(ctx, draft); err != nil {
		return nil, fmt.Errorf("creating draft item: %w", err)
	}
	logger.L.Info("Draft item created", "token", draft.Token, "name", draft.Name)

	txHash, err := s.gateway.SubmitListing(ctx, input.Name, input.Description, weiFromPrice(input.Price), input.Quantity)
	if err != nil {
		return nil, s.compensateDraft(ctx, draft.Token,
			fmt.Errorf("%w: submitting listing: %v", models.ErrLedgerUnavailable, err))
	}
	logger.L.Info("Listing transaction submitted", "token", draft.Token, "hash", txHash.Hex())

	receipt, err := s.gateway.WaitForConfirmation(ctx, txHash, s.confirmations, s.waitTimeout)
	if err != nil {
		return nil, s.compensateDraft(ctx, draft.Token,
			fmt.Errorf("%w: confirming listing %s: %v", models.ErrLedgerUnavailable, txHash.Hex(), err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, s.compensateDraft(ctx, draft.Token,
			fmt.Errorf("%w: listing transaction %s", models.ErrReverted, txHash.Hex()))
	}

	var listed []ledger.ProductListedEvent
	for _, event := range ledger.DecodeReceiptEvents(receipt) {
		if ev, ok := event.(ledger.ProductListedEvent); ok {
			listed = append(listed, ev)
		}
	}
	if len(listed) != 1 {
		return nil, s.compensateDraft(ctx, draft.Token,
			fmt.Errorf("%w: expected exactly one ProductListed event in %s, found %d",
				models.ErrNoEvent, txHash.Hex(), len(listed)))
	}

	record := ledger.AuditRecord(receipt)

	draft.ProductID = listed[0].ProductID.String()
	draft.Status = models.StatusListed
	draft.Transaction = record
	if err := s.store.Update(ctx, draft); err != nil {
		return nil, s.compensateDraft(ctx, draft.Token,
			fmt.Errorf("persisting listed item: %w", err))
	}

	logger.L.Info("Item listed",
		"token", draft.Token,
		"productId", draft.ProductID,
		"hash", record.Hash,
		"blockNumber", record.BlockNumber)

	return &ListingResult{Item: draft, Transaction: record}, nil
}

// DeactivateItem submits the on-chain deactivation and marks the item
// cancelled once confirmed. The listing audit record stays attached;
// the deactivation record is returned to the caller.
func (s *listingServiceImpl) DeactivateItem(ctx context.Context, token string) (*models.TransactionAuditRecord, error) {
	item, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusListed {
		return nil, fmt.Errorf("%w: item %s is %s, only listed items can be deactivated",
			models.ErrInvalidState, token, item.Status)
	}

	productID, ok := new(big.Int).SetString(item.ProductID, 10)
	if !ok {
		return nil, fmt.Errorf("%w: item %s has malformed product id %q",
			models.ErrInvalidState, token, item.ProductID)
	}

	txHash, err := s.gateway.SubmitDeactivation(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: submitting deactivation: %v", models.ErrLedgerUnavailable, err)
	}

	receipt, err := s.gateway.WaitForConfirmation(ctx, txHash, s.confirmations, s.waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: confirming deactivation %s: %v", models.ErrLedgerUnavailable, txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: deactivation transaction %s", models.ErrReverted, txHash.Hex())
	}

	item.Status = models.StatusCancelled
	if err := s.store.UpdateIfStatus(ctx, item, models.StatusListed); err != nil {
		return nil, fmt.Errorf("persisting cancelled item: %w", err)
	}

	record := ledger.AuditRecord(receipt)
	logger.L.Info("Item deactivated", "token", token, "hash", record.Hash)
	return record, nil
}

// compensateDraft deletes a draft whose listing pipeline failed. The
// delete is best-effort: its own failure is joined with the cause so
// an operator can reconcile manually, never silently absorbed.
func (s *listingServiceImpl) compensateDraft(ctx context.Context, token string, cause error) error {
	// The compensation must run even if the request context is done;
	// the draft would otherwise be stuck forever.
	if err := s.store.Delete(context.WithoutCancel(ctx), token); err != nil {
		logger.L.Error("Compensating delete failed, manual reconciliation required",
			"token", token, "deleteError", err, "cause", cause)
		return errors.Join(cause, fmt.Errorf("%w: draft %s: %v", models.ErrCompensationFailed, token, err))
	}
	logger.L.Warn("Listing failed, draft compensated", "token", token, "cause", cause)
	return cause
}

func (s *listingServiceImpl) scoreEmissions(ctx context.Context, productName string) models.CarbonFootprint {
	if s.emissions == nil {
		return models.CarbonFootprint{}
	}
	footprint, err := s.emissions.ScoreProduct(ctx, productName)
	if err != nil {
		logger.L.Warn("Emissions scoring unavailable, listing with zero estimate",
			"product", productName, "error", err)
		return models.CarbonFootprint{}
	}
	footprint.ComputeNetImpact()
	return footprint
}

func validateListingInput(input ListingInput) error {
	if input.Name == "" {
		return fmt.Errorf("listing name is required")
	}
	if input.Description == "" {
		return fmt.Errorf("listing description is required")
	}
	if input.Price <= 0 {
		return fmt.Errorf("listing price must be positive, got %v", input.Price)
	}
	if input.Quantity < 1 {
		return fmt.Errorf("listing quantity must be at least 1, got %d", input.Quantity)
	}
	return nil
}

// weiFromPrice converts the off-chain price (in whole ledger currency
// units) to wei for the contract call.
func weiFromPrice(price float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(price), big.NewFloat(1e18)).Int(nil)
	return wei
}
