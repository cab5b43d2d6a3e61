package database

import "io/fs"

// StoreConfig describes one file-backed store owned by the Manager.
type StoreConfig struct {
	// Name is the key handlers use to reach the store, e.g. "tickets".
	Name string `yaml:"name"`
	// Path is the sqlite file location.
	Path string `yaml:"path"`
	// BusyTimeoutMS is passed to sqlite as _busy_timeout; 0 -> 5000.
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`

	// Migrations holds golang-migrate files (NNNNNN_name.up.sql) for this store.
	Migrations fs.FS `yaml:"-"`
	// Columns lists additive column changes applied after Migrations.
	Columns []ColumnMigration `yaml:"-"`
}

// ColumnMigration adds Column to Table by rebuilding the table: sqlite cannot
// add a column in place with the constraints the new shape requires.
type ColumnMigration struct {
	Table  string
	Column string
	// Definition is the column list of the new table shape, without parentheses.
	Definition string
	// Copy lists columns carried over from the old table.
	Copy []string
}
