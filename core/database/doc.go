// Package database opens the optional repair journal database.
//
// It wraps GORM to configure MySQL or SQLite connections from the application
// configuration. The driver "none" disables the journal and Connect reports
// ErrDisabled.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live table layout so the journal
// can verify its table after migration.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if errors.Is(err, database.ErrDisabled) {
//	    // run without a journal
//	}
package database
