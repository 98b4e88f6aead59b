package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/username/reusemarket/backend/src/models"
)

// Event names emitted by the marketplace contract.
const (
	EventProductListed    = "ProductListed"
	EventProductPurchased = "ProductPurchased"
	EventProductDeactived = "ProductDeactivated"
)

// ErrUnknownEvent marks a log whose signature is not part of the
// marketplace schema. Callers filter these; a foreign contract's logs
// in the same transaction are not an error.
var ErrUnknownEvent = errors.New("unknown event signature")

// Event is one decoded marketplace log.
type Event interface {
	EventName() string
	// Parsed renders the event with all integer values as decimal
	// strings for the audit record.
	Parsed() models.ParsedEvent
}

// ProductListedEvent is emitted once per successful listing; ProductID
// is the ledger-assigned identifier the off-chain record binds to.
type ProductListedEvent struct {
	ProductID *big.Int
	Seller    common.Address
	ItemName  string
	Price     *big.Int
	Quantity  *big.Int
}

func (ProductListedEvent) EventName() string { return EventProductListed }

func (e ProductListedEvent) Parsed() models.ParsedEvent {
	return models.ParsedEvent{
		Name: EventProductListed,
		Args: map[string]string{
			"productId": e.ProductID.String(),
			"seller":    e.Seller.Hex(),
			"name":      e.ItemName,
			"price":     e.Price.String(),
			"quantity":  e.Quantity.String(),
		},
	}
}

// ProductPurchasedEvent is emitted once per on-chain purchase.
type ProductPurchasedEvent struct {
	ProductID     *big.Int
	TransactionID *big.Int
	Buyer         common.Address
	Seller        common.Address
	Quantity      *big.Int
	TotalPrice    *big.Int
	Timestamp     *big.Int
}

func (ProductPurchasedEvent) EventName() string { return EventProductPurchased }

func (e ProductPurchasedEvent) Parsed() models.ParsedEvent {
	return models.ParsedEvent{
		Name: EventProductPurchased,
		Args: map[string]string{
			"productId":     e.ProductID.String(),
			"transactionId": e.TransactionID.String(),
			"buyer":         e.Buyer.Hex(),
			"seller":        e.Seller.Hex(),
			"quantity":      e.Quantity.String(),
			"totalPrice":    e.TotalPrice.String(),
			"timestamp":     e.Timestamp.String(),
		},
	}
}

// ProductDeactivatedEvent is emitted when a listing is taken down.
type ProductDeactivatedEvent struct {
	ProductID *big.Int
	Timestamp *big.Int
}

func (ProductDeactivatedEvent) EventName() string { return EventProductDeactived }

func (e ProductDeactivatedEvent) Parsed() models.ParsedEvent {
	return models.ParsedEvent{
		Name: EventProductDeactived,
		Args: map[string]string{
			"productId": e.ProductID.String(),
			"timestamp": e.Timestamp.String(),
		},
	}
}

// DecodeLog decodes one raw log against the marketplace schema.
// Returns ErrUnknownEvent for logs emitted by other signatures.
func DecodeLog(log *types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, ErrUnknownEvent
	}

	switch log.Topics[0] {
	case contractABI.Events[EventProductListed].ID:
		values, err := contractABI.Unpack(EventProductListed, log.Data)
		if err != nil {
			return nil, fmt.Errorf("unpacking %s: %w", EventProductListed, err)
		}
		return ProductListedEvent{
			ProductID: values[0].(*big.Int),
			Seller:    values[1].(common.Address),
			ItemName:  values[2].(string),
			Price:     values[3].(*big.Int),
			Quantity:  values[4].(*big.Int),
		}, nil

	case contractABI.Events[EventProductPurchased].ID:
		values, err := contractABI.Unpack(EventProductPurchased, log.Data)
		if err != nil {
			return nil, fmt.Errorf("unpacking %s: %w", EventProductPurchased, err)
		}
		return ProductPurchasedEvent{
			ProductID:     values[0].(*big.Int),
			TransactionID: values[1].(*big.Int),
			Buyer:         values[2].(common.Address),
			Seller:        values[3].(common.Address),
			Quantity:      values[4].(*big.Int),
			TotalPrice:    values[5].(*big.Int),
			Timestamp:     values[6].(*big.Int),
		}, nil

	case contractABI.Events[EventProductDeactived].ID:
		values, err := contractABI.Unpack(EventProductDeactived, log.Data)
		if err != nil {
			return nil, fmt.Errorf("unpacking %s: %w", EventProductDeactived, err)
		}
		return ProductDeactivatedEvent{
			ProductID: values[0].(*big.Int),
			Timestamp: values[1].(*big.Int),
		}, nil
	}

	return nil, ErrUnknownEvent
}

// DecodeReceiptEvents decodes every log in a receipt, silently
// skipping logs that do not match the marketplace schema.
func DecodeReceiptEvents(receipt *types.Receipt) []Event {
	var events []Event
	for _, log := range receipt.Logs {
		event, err := DecodeLog(log)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events
}

// AuditRecord builds the immutable audit record persisted with an
// item: receipt hash, block number as a decimal string, and the
// ordered sequence of decoded events.
func AuditRecord(receipt *types.Receipt) *models.TransactionAuditRecord {
	record := &models.TransactionAuditRecord{
		Hash:        receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.String(),
	}
	for _, event := range DecodeReceiptEvents(receipt) {
		record.Events = append(record.Events, event.Parsed())
	}
	return record
}
