package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/m3rciful/notifybot/core/logger"
)

const driverName = "sqlite3"

// Manager owns one cached connection per named store and serializes access
// to each store. It replaces ad-hoc sqlite3.connect calls scattered through handlers.
type Manager struct {
	mu     sync.Mutex
	stores map[string]StoreConfig
	conns  map[string]*sqlx.DB
	locks  map[string]*sync.Mutex
	closed bool
}

// NewManager registers the given stores. Connections are opened lazily.
func NewManager(stores ...StoreConfig) *Manager {
	m := &Manager{
		stores: make(map[string]StoreConfig, len(stores)),
		conns:  make(map[string]*sqlx.DB, len(stores)),
		locks:  make(map[string]*sync.Mutex, len(stores)),
	}
	for _, st := range stores {
		m.stores[st.Name] = st
		m.locks[st.Name] = &sync.Mutex{}
	}
	return m
}

// Names returns registered store names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store returns the configuration of a registered store.
func (m *Manager) Store(name string) (StoreConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stores[name]
	return st, ok
}

// Connect returns the cached live connection for name or opens, pings and caches a new one.
// Failures wrap ErrConnection.
func (m *Manager) Connect(ctx context.Context, name string) (*sqlx.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %s: manager closed", ErrConnection, name)
	}
	if db, ok := m.conns[name]; ok {
		return db, nil
	}
	st, ok := m.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}

	start := time.Now()
	db, err := open(ctx, st)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("store", name),
			slog.String("path", st.Path),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, name, err)
	}
	m.conns[name] = db
	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("store", name),
		slog.String("path", st.Path),
		slog.Duration("duration", logger.Took(start)),
	)
	return db, nil
}

func open(ctx context.Context, st StoreConfig) (*sqlx.DB, error) {
	busy := st.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", st.Path, busy)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	// One connection per file: access is serialized by the store lock anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes and evicts the cached connection for name. It is a no-op for unknown or closed stores.
func (m *Manager) Close(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked(name)
}

func (m *Manager) closeLocked(name string) error {
	db, ok := m.conns[name]
	if !ok {
		return nil
	}
	delete(m.conns, name)
	if err := db.Close(); err != nil {
		logger.DB.Warn("db close failed",
			slog.String("event", "db.close"),
			slog.String("store", name),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("close %s: %w", name, err)
	}
	logger.DB.Debug("db closed",
		slog.String("event", "db.close"),
		slog.String("store", name),
	)
	return nil
}

// Reload closes the cached connection and reconnects immediately.
func (m *Manager) Reload(ctx context.Context, name string) (*sqlx.DB, error) {
	_ = m.Close(name)
	return m.Connect(ctx, name)
}

// CloseAll closes every cached connection; used on shutdown.
// Later Connect calls fail with ErrConnection.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	var errs []error
	for name := range m.conns {
		if err := m.closeLocked(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) lock(name string) (*sync.Mutex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, name)
	}
	return l, nil
}

// Do runs fn with exclusive access to the named store. A connection that
// turned out to be broken is reloaded and fn is retried once.
func (m *Manager) Do(ctx context.Context, name string, fn func(ctx context.Context, db *sqlx.DB) error) error {
	l, err := m.lock(name)
	if err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()

	db, err := m.Connect(ctx, name)
	if err != nil {
		return err
	}
	err = fn(ctx, db)
	if !isStale(err) {
		return err
	}

	logger.DB.Warn("db connection stale, reloading",
		slog.String("event", "db.reload"),
		slog.String("store", name),
		slog.String("err", err.Error()),
	)
	db, rerr := m.Reload(ctx, name)
	if rerr != nil {
		return rerr
	}
	return fn(ctx, db)
}

func isStale(err error) bool {
	return err != nil && (errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone))
}

// Snapshot writes a consistent copy of the named store to dst while holding the store lock.
func (m *Manager) Snapshot(ctx context.Context, name, dst string) error {
	return m.Do(ctx, name, func(ctx context.Context, db *sqlx.DB) error {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("snapshot target exists: %s", dst)
		}
		if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
			return fmt.Errorf("vacuum into %s: %w", dst, err)
		}
		return nil
	})
}
