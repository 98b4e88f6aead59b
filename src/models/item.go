package models

import (
	"fmt"
	"time"
)

// ItemStatus is the off-chain lifecycle state of a marketplace item.
type ItemStatus string

const (
	StatusDraft     ItemStatus = "draft"
	StatusListed    ItemStatus = "listed"
	StatusSold      ItemStatus = "sold"
	StatusCancelled ItemStatus = "cancelled"
)

// validTransitions enumerates the lifecycle state machine. Nothing
// re-enters draft; sold and cancelled are terminal.
var validTransitions = map[ItemStatus][]ItemStatus{
	StatusDraft:  {StatusListed},
	StatusListed: {StatusSold, StatusCancelled},
}

// CanTransition reports whether an item may move from one status to another.
func CanTransition(from, to ItemStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParsedEvent is one decoded ledger event. All integer-valued arguments
// are kept as decimal strings so arbitrarily large values survive
// JSON round-trips without precision loss.
type ParsedEvent struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// TransactionAuditRecord is the processed receipt of the ledger
// transaction that anchored an item. Immutable once attached.
type TransactionAuditRecord struct {
	Hash        string        `json:"hash"`
	BlockNumber string        `json:"blockNumber"`
	Events      []ParsedEvent `json:"events"`
}

// CarbonFootprint carries the emissions estimate attached at listing time.
type CarbonFootprint struct {
	NewProductEmission float64 `json:"newProductEmission"`
	ReuseSavings       float64 `json:"reuseSavings"`
	NetImpact          float64 `json:"netImpact"`
}

// Item is the durable marketplace record. Token is the marketplace's
// own stable identifier; ProductID is the ledger-assigned one, bound
// once at listing time.
type Item struct {
	Token           string                  `json:"tokenId"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	Price           float64                 `json:"price"`
	Quantity        int64                   `json:"quantity"`
	Seller          string                  `json:"seller"`
	Status          ItemStatus              `json:"status"`
	ProductID       string                  `json:"contractProductId,omitempty"`
	Transaction     *TransactionAuditRecord `json:"transaction,omitempty"`
	Buyer           string                  `json:"buyer,omitempty"`
	SoldAt          *time.Time              `json:"soldAt,omitempty"`
	CarbonFootprint CarbonFootprint         `json:"carbonFootprint"`
	CreatedAt       time.Time               `json:"createdAt"`
}

// Validate enforces the persistence invariants. It runs before every
// store write; an item that fails here must never become visible to
// readers.
//
// The quantity rule is evaluated jointly with status: quantity >= 1
// for every status except sold, where it must be exactly 0. Checking
// both fields as one rule means a settlement write (status and
// quantity changing together) passes through the normal validated
// path with no bypass.
func (i *Item) Validate() error {
	if i.Token == "" {
		return fmt.Errorf("item token is required")
	}
	if i.Name == "" {
		return fmt.Errorf("item name is required")
	}
	if i.Description == "" {
		return fmt.Errorf("item description is required")
	}
	if i.Price <= 0 {
		return fmt.Errorf("item price must be positive, got %v", i.Price)
	}
	if i.Seller == "" {
		return fmt.Errorf("item seller is required")
	}

	switch i.Status {
	case StatusDraft, StatusListed, StatusSold, StatusCancelled:
	default:
		return fmt.Errorf("invalid item status %q", i.Status)
	}

	if i.Status != StatusDraft {
		if i.ProductID == "" {
			return fmt.Errorf("contract product id is required for %s items", i.Status)
		}
		if i.Transaction == nil || i.Transaction.Hash == "" {
			return fmt.Errorf("transaction audit record is required for %s items", i.Status)
		}
	}

	if i.Status == StatusSold {
		if i.Quantity != 0 {
			return fmt.Errorf("sold items must have quantity 0, got %d", i.Quantity)
		}
		if i.Buyer == "" {
			return fmt.Errorf("sold items must have a buyer")
		}
		if i.SoldAt == nil {
			return fmt.Errorf("sold items must have a sold timestamp")
		}
	} else if i.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1 for %s items, got %d", i.Status, i.Quantity)
	}

	return nil
}

// ComputeNetImpact refreshes the derived net impact figure.
func (c *CarbonFootprint) ComputeNetImpact() {
	c.NetImpact = c.NewProductEmission - c.ReuseSavings
}
