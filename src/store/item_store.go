package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/username/reusemarket/backend/src/models"
)

// ItemStore persists marketplace items. Every write goes through
// models.Item.Validate first; the row update is the single point of
// visibility for a state change.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `token, name, description, price, quantity, seller, status,
	product_id, transaction_json, buyer, sold_at, new_product_emission, reuse_savings, created_at`

// Insert stores a new item. A duplicate token surfaces as a
// PersistenceError, as does an invariant violation.
func (s *ItemStore) Insert(ctx context.Context, item *models.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	txJSON, err := marshalTransaction(item.Transaction)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (token, name, description, price, quantity, seller, status,
			product_id, transaction_json, buyer, sold_at, new_product_emission, reuse_savings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Token, item.Name, item.Description, item.Price, item.Quantity,
		item.Seller, string(item.Status), nullIfEmpty(item.ProductID), txJSON,
		nullIfEmpty(item.Buyer), item.SoldAt,
		item.CarbonFootprint.NewProductEmission, item.CarbonFootprint.ReuseSavings,
		item.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: duplicate token %s", models.ErrPersistence, item.Token)
		}
		return fmt.Errorf("%w: inserting item %s: %v", models.ErrPersistence, item.Token, err)
	}
	return nil
}

// GetByToken returns the item with the given token, or ErrNotFound.
func (s *ItemStore) GetByToken(ctx context.Context, token string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE token = ?`, token)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %s", models.ErrNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", token, err)
	}
	return item, nil
}

// Update overwrites the full item document after re-validating it.
func (s *ItemStore) Update(ctx context.Context, item *models.Item) error {
	return s.update(ctx, item, "")
}

// UpdateIfStatus overwrites the item only if its stored status still
// matches expected (compare-and-swap). A lost swap returns
// ErrInvalidState so the caller can re-read and decide.
func (s *ItemStore) UpdateIfStatus(ctx context.Context, item *models.Item, expected models.ItemStatus) error {
	return s.update(ctx, item, expected)
}

func (s *ItemStore) update(ctx context.Context, item *models.Item, expected models.ItemStatus) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	txJSON, err := marshalTransaction(item.Transaction)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	query := `UPDATE items SET name = ?, description = ?, price = ?, quantity = ?, seller = ?,
		status = ?, product_id = ?, transaction_json = ?, buyer = ?, sold_at = ?,
		new_product_emission = ?, reuse_savings = ?
		WHERE token = ?`
	args := []interface{}{
		item.Name, item.Description, item.Price, item.Quantity, item.Seller,
		string(item.Status), nullIfEmpty(item.ProductID), txJSON,
		nullIfEmpty(item.Buyer), item.SoldAt,
		item.CarbonFootprint.NewProductEmission, item.CarbonFootprint.ReuseSavings,
		item.Token,
	}
	if expected != "" {
		query += ` AND status = ?`
		args = append(args, string(expected))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updating item %s: %v", models.ErrPersistence, item.Token, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating item %s: %v", models.ErrPersistence, item.Token, err)
	}
	if affected == 0 {
		if expected != "" {
			return fmt.Errorf("%w: item %s is no longer %s", models.ErrInvalidState, item.Token, expected)
		}
		return fmt.Errorf("%w: item %s", models.ErrNotFound, item.Token)
	}
	return nil
}

// Delete removes an item. Used for draft compensation only.
func (s *ItemStore) Delete(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("%w: deleting item %s: %v", models.ErrPersistence, token, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: deleting item %s: %v", models.ErrPersistence, token, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %s", models.ErrNotFound, token)
	}
	return nil
}

// List returns all items, newest first.
func (s *ItemStore) List(ctx context.Context) ([]models.Item, error) {
	return s.list(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at DESC`)
}

// ListBySeller returns a seller's items, case-insensitively matched.
func (s *ItemStore) ListBySeller(ctx context.Context, seller string) ([]models.Item, error) {
	return s.list(ctx,
		`SELECT `+itemColumns+` FROM items WHERE seller = ? COLLATE NOCASE ORDER BY created_at DESC`,
		seller)
}

// ListByBuyer returns a buyer's settled purchases, newest sale first.
func (s *ItemStore) ListByBuyer(ctx context.Context, buyer string) ([]models.Item, error) {
	return s.list(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE buyer = ? COLLATE NOCASE AND sold_at IS NOT NULL
		 ORDER BY sold_at DESC`,
		buyer)
}

func (s *ItemStore) list(ctx context.Context, query string, args ...interface{}) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var status string
	var productID, txJSON, buyer sql.NullString
	var soldAt sql.NullTime

	err := row.Scan(
		&item.Token, &item.Name, &item.Description, &item.Price, &item.Quantity,
		&item.Seller, &status, &productID, &txJSON, &buyer, &soldAt,
		&item.CarbonFootprint.NewProductEmission, &item.CarbonFootprint.ReuseSavings,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Status = models.ItemStatus(status)
	item.ProductID = productID.String
	item.Buyer = buyer.String
	if soldAt.Valid {
		t := soldAt.Time
		item.SoldAt = &t
	}
	if txJSON.Valid && txJSON.String != "" {
		var record models.TransactionAuditRecord
		if err := json.Unmarshal([]byte(txJSON.String), &record); err != nil {
			return nil, fmt.Errorf("decoding transaction audit record: %w", err)
		}
		item.Transaction = &record
	}
	item.CarbonFootprint.ComputeNetImpact()
	return &item, nil
}

func marshalTransaction(record *models.TransactionAuditRecord) (interface{}, error) {
	if record == nil {
		return nil, nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction audit record: %v", err)
	}
	return string(data), nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
