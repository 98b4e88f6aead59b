// backend/src/services/purchase_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/username/reusemarket/backend/src/ledger"
	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/models"
	"github.com/username/reusemarket/backend/src/utils"
)

type purchaseServiceImpl struct {
	store       ItemStore
	gateway     ledger.Gateway
	rewards     RewardsService
	waitTimeout time.Duration
}

// NewPurchaseService creates the purchase verifier + settlement
// reconciler.
func NewPurchaseService(itemStore ItemStore, gateway ledger.Gateway, rewards RewardsService, waitTimeout time.Duration) PurchaseService {
	return &purchaseServiceImpl{
		store:       itemStore,
		gateway:     gateway,
		rewards:     rewards,
		waitTimeout: waitTimeout,
	}
}

// verifiedPurchase is the verifier's output: the matched event plus
// the audit record built from the full receipt.
type verifiedPurchase struct {
	event  ledger.ProductPurchasedEvent
	record *models.TransactionAuditRecord
}

// VerifyAndSettle validates a caller-submitted purchase proof against
// ledger state and, on success, transitions the item to sold. A repeat
// call with the same transaction hash against an already-sold item is
// an idempotent no-op.
func (s *purchaseServiceImpl) VerifyAndSettle(ctx context.Context, req PurchaseRequest) (*SettlementResult, error) {
	item, err := s.store.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	if item.Status == models.StatusSold {
		return s.idempotentResult(item, req.TxHash)
	}
	if item.ProductID == "" {
		return nil, fmt.Errorf("%w: item %s has no ledger product id", models.ErrInvalidState, req.Token)
	}
	if item.ProductID != req.ProductID {
		return nil, fmt.Errorf("%w: item %s is bound to product %s, claim says %s",
			models.ErrInvalidState, req.Token, item.ProductID, req.ProductID)
	}
	if item.Status != models.StatusListed {
		return nil, fmt.Errorf("%w: item %s is %s, not available for purchase",
			models.ErrInvalidState, req.Token, item.Status)
	}

	verified, err := s.verify(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, item, req, verified)
}

// verify implements the proof check: receipt lookup with a bounded
// wait, revert check, event decoding with silent skip of foreign
// signatures, and claim cross-checks. Claims are never trusted without
// the event comparison; a receipt is retrievable by hash by anyone.
func (s *purchaseServiceImpl) verify(ctx context.Context, req PurchaseRequest) (*verifiedPurchase, error) {
	if !isTxHash(req.TxHash) {
		return nil, fmt.Errorf("%w: malformed transaction hash %q", models.ErrNotFound, req.TxHash)
	}
	txHash := common.HexToHash(req.TxHash)

	receipt, err := s.gateway.TransactionReceipt(ctx, txHash)
	if err != nil {
		receipt, err = s.gateway.WaitForConfirmation(ctx, txHash, 1, s.waitTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %s not found on ledger: %v",
				models.ErrNotFound, req.TxHash, err)
		}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction %s", models.ErrReverted, req.TxHash)
	}

	var purchase *ledger.ProductPurchasedEvent
	for _, event := range ledger.DecodeReceiptEvents(receipt) {
		if ev, ok := event.(ledger.ProductPurchasedEvent); ok {
			purchase = &ev
			break
		}
	}
	if purchase == nil {
		return nil, fmt.Errorf("%w: no ProductPurchased event in transaction %s",
			models.ErrNoEvent, req.TxHash)
	}

	if purchase.ProductID.String() != req.ProductID {
		return nil, fmt.Errorf("%w: event product id %s, claim %s",
			models.ErrMismatch, purchase.ProductID.String(), req.ProductID)
	}
	if purchase.Quantity.String() != strconv.FormatInt(req.Quantity, 10) {
		return nil, fmt.Errorf("%w: event quantity %s, claim %d",
			models.ErrMismatch, purchase.Quantity.String(), req.Quantity)
	}

	if !req.SkipAddressValidation {
		if req.Buyer != "" && !utils.SameAddress(req.Buyer, purchase.Buyer.Hex()) {
			return nil, fmt.Errorf("%w: event buyer %s, claim %s",
				models.ErrMismatch, purchase.Buyer.Hex(), req.Buyer)
		}
		if req.Seller != "" && !utils.SameAddress(req.Seller, purchase.Seller.Hex()) {
			return nil, fmt.Errorf("%w: event seller %s, claim %s",
				models.ErrMismatch, purchase.Seller.Hex(), req.Seller)
		}
	}

	return &verifiedPurchase{event: *purchase, record: ledger.AuditRecord(receipt)}, nil
}

// settle persists the sold state through a compare-and-swap on the
// listed status. A lost swap re-reads the row: a concurrent settlement
// of the same transaction is reported as idempotent success, anything
// else as InvalidState.
func (s *purchaseServiceImpl) settle(ctx context.Context, item *models.Item, req PurchaseRequest, verified *verifiedPurchase) (*SettlementResult, error) {
	now := time.Now().UTC()
	settled := *item
	settled.Status = models.StatusSold
	settled.Quantity = 0
	settled.Buyer = utils.CanonicalAddressOrRaw(verified.event.Buyer.Hex())
	settled.SoldAt = &now
	settled.Transaction = verified.record

	err := s.store.UpdateIfStatus(ctx, &settled, models.StatusListed)
	if err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			current, readErr := s.store.GetByToken(ctx, req.Token)
			if readErr == nil && current.Status == models.StatusSold {
				return s.idempotentResult(current, req.TxHash)
			}
			return nil, fmt.Errorf("%w: item %s left listed state during settlement",
				models.ErrInvalidState, req.Token)
		}
		return nil, fmt.Errorf("persisting settlement for %s: %w", req.Token, err)
	}

	reward := s.rewards.ForQuantity(verified.event.Quantity)

	logger.L.Info("Purchase settled",
		"token", req.Token,
		"productId", req.ProductID,
		"buyer", settled.Buyer,
		"hash", verified.record.Hash,
		"rewardAmount", reward.Amount)

	return &SettlementResult{
		Item:        &settled,
		Transaction: verified.record,
		Rewards:     &reward,
	}, nil
}

// idempotentResult resolves a settlement request against an
// already-sold item. The same transaction hash is a defined no-op
// success; a different one can never re-assign the buyer.
func (s *purchaseServiceImpl) idempotentResult(item *models.Item, txHash string) (*SettlementResult, error) {
	if item.Transaction == nil || !strings.EqualFold(item.Transaction.Hash, txHash) {
		return nil, fmt.Errorf("%w: item %s already sold", models.ErrInvalidState, item.Token)
	}

	result := &SettlementResult{
		Item:           item,
		Transaction:    item.Transaction,
		AlreadySettled: true,
	}
	for _, event := range item.Transaction.Events {
		if event.Name == ledger.EventProductPurchased {
			if reward, ok := s.rewards.ForQuantityString(event.Args["quantity"]); ok {
				result.Rewards = &reward
			}
			break
		}
	}
	logger.L.Info("Settlement repeated for already-sold item, no-op", "token", item.Token, "hash", txHash)
	return result, nil
}

func isTxHash(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return false
	}
	for _, r := range s[2:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
