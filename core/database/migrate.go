package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/notifybot/core/logger"
)

// EnsureSchema brings every registered store up to date: versioned migrations
// first, then column migrations for files created by older releases.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	for _, name := range m.Names() {
		if err := m.EnsureStoreSchema(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureStoreSchema migrates a single store while holding its lock.
func (m *Manager) EnsureStoreSchema(ctx context.Context, name string) error {
	st, ok := m.Store(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}
	l, err := m.lock(name)
	if err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()

	start := time.Now()
	if st.Migrations != nil {
		if err := runMigrations(st); err != nil {
			logger.MIG.Error("migrations failed",
				slog.String("event", "db.migrate"),
				slog.String("store", name),
				slog.String("err", err.Error()),
			)
			return &SchemaMigrationError{Store: name, Step: "versioned", Err: err}
		}
	}

	if len(st.Columns) > 0 {
		db, err := m.Connect(ctx, name)
		if err != nil {
			return err
		}
		for _, cm := range st.Columns {
			if err := applyColumn(ctx, db, name, cm); err != nil {
				return err
			}
		}
	}

	logger.MIG.Info("schema ready",
		slog.String("event", "db.migrate"),
		slog.String("status", "ok"),
		slog.String("store", name),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// runMigrations uses its own connection: the migrate driver closes the
// database it was given when the migrator is closed.
func runMigrations(st StoreConfig) error {
	db, err := sql.Open(driverName, st.Path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("driver: %w", err)
	}
	src, err := iofs.New(st.Migrations, ".")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("source: %w", err)
	}
	mig, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if srcErr, dbErr := mig.Close(); srcErr != nil || dbErr != nil {
			logger.MIG.Warn("migrator close failed",
				slog.String("event", "db.migrate"),
				slog.String("store", st.Name),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

type columnInfo struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

// HasColumn reports whether table already carries column.
func HasColumn(ctx context.Context, db *sqlx.DB, table, column string) (bool, error) {
	var cols []columnInfo
	if err := db.SelectContext(ctx, &cols, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))); err != nil {
		return false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, column) {
			return true, nil
		}
	}
	return false, nil
}

func applyColumn(ctx context.Context, db *sqlx.DB, store string, cm ColumnMigration) error {
	fail := func(step string, err error) error {
		logger.MIG.Error("column migration failed",
			slog.String("event", "db.migrate.column"),
			slog.String("store", store),
			slog.String("table", cm.Table),
			slog.String("column", cm.Column),
			slog.String("state", step),
			slog.String("err", err.Error()),
		)
		return &SchemaMigrationError{Store: store, Table: cm.Table, Step: step, Err: err}
	}

	has, err := HasColumn(ctx, db, cm.Table, cm.Column)
	if err != nil {
		return fail("inspect", err)
	}
	if has {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fail("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	temp := quoteIdent(cm.Table + "_temp")
	table := quoteIdent(cm.Table)
	cols := make([]string, len(cm.Copy))
	for i, c := range cm.Copy {
		cols[i] = quoteIdent(c)
	}
	list := strings.Join(cols, ", ")

	steps := []struct {
		name string
		sql  string
	}{
		{"create", fmt.Sprintf("CREATE TABLE %s (%s)", temp, cm.Definition)},
		{"copy", fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", temp, list, list, table)},
		{"drop", fmt.Sprintf("DROP TABLE %s", table)},
		{"rename", fmt.Sprintf("ALTER TABLE %s RENAME TO %s", temp, table)},
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.sql); err != nil {
			return fail(s.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fail("commit", err)
	}

	logger.MIG.Info("column added",
		slog.String("event", "db.migrate.column"),
		slog.String("status", "ok"),
		slog.String("store", store),
		slog.String("table", cm.Table),
		slog.String("column", cm.Column),
	)
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
