package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/reusemarket/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateItemsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS items (
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

	CREATE INDEX IF NOT EXISTS idx_items_seller ON items(seller);
	CREATE INDEX IF NOT EXISTS idx_items_buyer ON items(buyer);
	CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateItemsTable adds columns introduced after the first release to
// existing databases. New databases get the full schema from InitDB.
func migrateItemsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='items'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'items' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'items' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'items' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'items' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(items)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'items'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'items': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'items'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'items': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'items'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'items': %v", err)
		}
		return
	}

	if _, ok := columnExists["new_product_emission"]; !ok {
		_, err := DB.Exec("ALTER TABLE items ADD COLUMN new_product_emission REAL NOT NULL DEFAULT 0")
		if err != nil {
			logger.L.Error("Error adding 'new_product_emission' column to 'items' table", "error", err)
		} else {
			logger.L.Info("Added 'new_product_emission' column to 'items' table")
		}
	}
	if _, ok := columnExists["reuse_savings"]; !ok {
		_, err := DB.Exec("ALTER TABLE items ADD COLUMN reuse_savings REAL NOT NULL DEFAULT 0")
		if err != nil {
			logger.L.Error("Error adding 'reuse_savings' column to 'items' table", "error", err)
		} else {
			logger.L.Info("Added 'reuse_savings' column to 'items' table")
		}
	}
	if _, ok := columnExists["sold_at"]; !ok {
		_, err := DB.Exec("ALTER TABLE items ADD COLUMN sold_at TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'sold_at' column to 'items' table", "error", err)
		} else {
			logger.L.Info("Added 'sold_at' column to 'items' table")
		}
	}
}
