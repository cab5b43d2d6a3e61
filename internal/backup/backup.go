// Package backup snapshots the stores into timestamped directories and prunes old ones.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	coredatabase "github.com/m3rciful/notifybot/core/database"
	"github.com/m3rciful/notifybot/core/logger"
	"github.com/m3rciful/notifybot/internal/domain"
)

// Layout names snapshot directories.
const Layout = "2006-01-02_15-04-05"

const (
	DefaultKeep   = 5
	DefaultMaxAge = 5 * 7 * 24 * time.Hour
)

// Options configure where snapshots live and how long they are kept.
type Options struct {
	Dir    string
	Keep   int
	MaxAge time.Duration
	// Now is used for directory names and the age rule; defaults to time.Now.
	Now func() time.Time
}

// Snapshot is one backup directory.
type Snapshot struct {
	Name   string
	Path   string
	Time   time.Time
	Stores []string
}

// Manager creates and prunes snapshots.
type Manager struct {
	stores *coredatabase.Manager
	opts   Options
}

// NewManager fills option defaults.
func NewManager(stores *coredatabase.Manager, opts Options) *Manager {
	if opts.Dir == "" {
		opts.Dir = "backups"
	}
	if opts.Keep <= 0 {
		opts.Keep = DefaultKeep
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{stores: stores, opts: opts}
}

// Create writes a snapshot of every store into a new directory, then prunes.
func (m *Manager) Create(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	ts := m.opts.Now()
	snap := Snapshot{Name: ts.Format(Layout), Time: ts}
	snap.Path = filepath.Join(m.opts.Dir, snap.Name)

	if err := os.MkdirAll(m.opts.Dir, 0o755); err != nil {
		return Snapshot{}, &domain.BackupIOError{Op: "mkdir", Path: m.opts.Dir, Err: err}
	}
	if err := os.Mkdir(snap.Path, 0o755); err != nil {
		return Snapshot{}, &domain.BackupIOError{Op: "mkdir", Path: snap.Path, Err: err}
	}

	for _, name := range m.stores.Names() {
		dst := filepath.Join(snap.Path, name+".db")
		if err := m.stores.Snapshot(ctx, name, dst); err != nil {
			logger.BAK.ErrorContext(ctx, "snapshot failed",
				slog.String("event", "backup.snapshot"),
				slog.String("store", name),
				slog.String("err", err.Error()),
			)
			// A partial directory would be listed as a real snapshot.
			_ = os.RemoveAll(snap.Path)
			return Snapshot{}, &domain.BackupIOError{Op: "snapshot", Path: dst, Err: err}
		}
		snap.Stores = append(snap.Stores, name)
	}

	logger.BAK.InfoContext(ctx, "backup created",
		slog.String("event", "backup.create"),
		slog.String("status", "ok"),
		slog.String("path", snap.Path),
		slog.Int("stores", len(snap.Stores)),
		slog.Duration("duration", logger.Took(start)),
	)

	if _, err := m.Cleanup(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// List returns the parseable snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	entries, err := os.ReadDir(m.opts.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.BackupIOError{Op: "list", Path: m.opts.Dir, Err: err}
	}

	var out []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, err := time.ParseInLocation(Layout, e.Name(), time.Local)
		if err != nil {
			logger.BAK.WarnContext(ctx, "skipping unrecognised backup directory",
				slog.String("event", "backup.list"),
				slog.String("name", e.Name()),
			)
			continue
		}
		snap := Snapshot{Name: e.Name(), Path: filepath.Join(m.opts.Dir, e.Name()), Time: ts}
		for _, name := range m.stores.Names() {
			if _, err := os.Stat(filepath.Join(snap.Path, name+".db")); err == nil {
				snap.Stores = append(snap.Stores, name)
			}
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out, nil
}

// Cleanup keeps the newest Keep snapshots and deletes any older than MaxAge.
// It returns the names of the removed directories.
func (m *Manager) Cleanup(ctx context.Context) ([]string, error) {
	snaps, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	now := m.opts.Now()
	var removed []string
	for i, s := range snaps {
		if i < m.opts.Keep && now.Sub(s.Time) <= m.opts.MaxAge {
			continue
		}
		if err := os.RemoveAll(s.Path); err != nil {
			return removed, &domain.BackupIOError{Op: "remove", Path: s.Path, Err: err}
		}
		removed = append(removed, s.Name)
	}
	if len(removed) > 0 {
		logger.BAK.InfoContext(ctx, "old backups removed",
			slog.String("event", "backup.cleanup"),
			slog.Int("removed", len(removed)),
			slog.Int("kept", len(snaps)-len(removed)),
		)
	}
	return removed, nil
}

// Info returns, per store, the time of the newest snapshot that contains it.
func (m *Manager) Info(ctx context.Context) (map[string]time.Time, error) {
	snaps, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time)
	for _, s := range snaps {
		for _, name := range s.Stores {
			if _, ok := out[name]; !ok {
				out[name] = s.Time
			}
		}
	}
	return out, nil
}

// Describe renders Info for the admin backup prompt.
func (m *Manager) Describe(ctx context.Context) (string, error) {
	info, err := m.Info(ctx)
	if err != nil {
		return "", err
	}
	text := "Latest backups:"
	for _, name := range m.stores.Names() {
		ts, ok := info[name]
		if !ok {
			text += fmt.Sprintf("\n%s: none", name)
			continue
		}
		text += fmt.Sprintf("\n%s: %s", name, ts.Format("2006-01-02 15:04:05"))
	}
	return text, nil
}
