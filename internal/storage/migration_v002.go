package storage

import "database/sql"

// migrateV002 indexes titles case-insensitively for the title sort orders.
func migrateV002(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_title_nocase ON entries(title COLLATE NOCASE)`)
	return err
}
