package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTestStore opens a fresh in-memory database with the items schema.
// One connection only: each in-memory connection gets its own database.
func newTestStore(t *testing.T) *ItemStore {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
	CREATE TABLE items (
		token TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		seller TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		product_id TEXT,
		transaction_json TEXT,
		buyer TEXT,
		sold_at TIMESTAMP,
		new_product_emission REAL NOT NULL DEFAULT 0,
		reuse_savings REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_items_seller ON items(seller);
	CREATE INDEX idx_items_buyer ON items(buyer);
	CREATE INDEX idx_items_status ON items(status);
	`)
	require.NoError(t, err)

	return NewItemStore(db)
}
