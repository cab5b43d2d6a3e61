package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	coredatabase "github.com/m3rciful/notifybot/core/database"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/storage"
)

func newStores(t *testing.T) *coredatabase.Manager {
	t.Helper()
	dir := t.TempDir()
	m := coredatabase.NewManager(storage.Stores(filepath.Join(dir, "tickets.db"), filepath.Join(dir, "subscribers.db"), 0)...)
	t.Cleanup(func() { _ = m.CloseAll() })
	if err := m.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return m
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestCreateKeepsFiveNewest(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	clk := &clock{now: base}
	dir := filepath.Join(t.TempDir(), "backups")
	mgr := NewManager(newStores(t), Options{Dir: dir, Now: clk.Now})

	var names []string
	for i := 0; i < 7; i++ {
		clk.now = base.Add(time.Duration(i) * time.Hour)
		snap, err := mgr.Create(ctx)
		if err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
		if len(snap.Stores) != 2 {
			t.Fatalf("snapshot stores = %v", snap.Stores)
		}
		names = append(names, snap.Name)
	}

	snaps, err := mgr.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 5 {
		t.Fatalf("kept %d snapshots, want 5", len(snaps))
	}
	if snaps[0].Name != names[6] || snaps[4].Name != names[2] {
		t.Fatalf("kept %s..%s, want %s..%s", snaps[0].Name, snaps[4].Name, names[6], names[2])
	}
	if _, err := os.Stat(filepath.Join(dir, names[0])); !os.IsNotExist(err) {
		t.Fatalf("oldest snapshot still present: %v", err)
	}
}

func TestCleanupAgeRuleAndUnknownDirs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.Local)
	dir := t.TempDir()
	mgr := NewManager(newStores(t), Options{Dir: dir, Now: func() time.Time { return now }})

	ages := []time.Duration{time.Hour, 24 * time.Hour, 6 * 7 * 24 * time.Hour}
	for _, age := range ages {
		if err := os.Mkdir(filepath.Join(dir, now.Add(-age).Format(Layout)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "manual-copy"), 0o755); err != nil {
		t.Fatal(err)
	}

	removed, err := mgr.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(removed) != 1 || removed[0] != now.Add(-ages[2]).Format(Layout) {
		t.Fatalf("removed = %v", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "manual-copy")); err != nil {
		t.Fatalf("unparseable directory was touched: %v", err)
	}
}

func TestInfoReportsNewestPerStore(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	mgr := NewManager(newStores(t), Options{Dir: t.TempDir(), Now: func() time.Time { return ts }})

	info, err := mgr.Info(ctx)
	if err != nil || len(info) != 0 {
		t.Fatalf("info before backup = %v, %v", info, err)
	}
	if _, err := mgr.Create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	info, err = mgr.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !info[storage.TicketsStore].Equal(ts) || !info[storage.SubscribersStore].Equal(ts) {
		t.Fatalf("info = %v", info)
	}
}

func TestInfoPartialSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)
	newer := older.Add(24 * time.Hour)
	mgr := NewManager(newStores(t), Options{Dir: dir, Now: func() time.Time { return newer }})

	write := func(ts time.Time, stores ...string) {
		path := filepath.Join(dir, ts.Format(Layout))
		if err := os.Mkdir(path, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, name := range stores {
			if err := os.WriteFile(filepath.Join(path, name+".db"), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	write(older, storage.TicketsStore, storage.SubscribersStore)
	write(newer, storage.TicketsStore)

	info, err := mgr.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !info[storage.TicketsStore].Equal(newer) {
		t.Fatalf("tickets = %v, want %v", info[storage.TicketsStore], newer)
	}
	if !info[storage.SubscribersStore].Equal(older) {
		t.Fatalf("subscribers = %v, want %v", info[storage.SubscribersStore], older)
	}
}

func TestCreateFailureRemovesPartialSnapshot(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	// Subscribers sorts first and succeeds; the tickets store cannot be opened.
	stores := coredatabase.NewManager(storage.Stores(
		filepath.Join(tmp, "missing", "tickets.db"),
		filepath.Join(tmp, "subscribers.db"), 0)...)
	t.Cleanup(func() { _ = stores.CloseAll() })
	dir := filepath.Join(tmp, "backups")
	mgr := NewManager(stores, Options{Dir: dir})

	_, err := mgr.Create(ctx)
	var ioErr *domain.BackupIOError
	if !errors.As(err, &ioErr) || ioErr.Op != "snapshot" {
		t.Fatalf("err = %v", err)
	}
	snaps, err := mgr.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("partial snapshot left behind: %+v", snaps)
	}
}

func TestSchedulerStopWaitsForStartupBackup(t *testing.T) {
	mgr := NewManager(newStores(t), Options{Dir: t.TempDir()})
	s, err := NewScheduler(mgr, "", true)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	var finished atomic.Bool
	s.OnResult = func(err error) {
		time.Sleep(50 * time.Millisecond)
		if err != nil {
			t.Errorf("startup backup: %v", err)
		}
		finished.Store(true)
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Stop(ctx)

	if !finished.Load() {
		t.Fatal("Stop returned before the startup backup finished")
	}
	snaps, err := mgr.List(context.Background())
	if err != nil || len(snaps) != 1 {
		t.Fatalf("snapshots = %v, %v", snaps, err)
	}
}

func TestCreateSameSecondFails(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	mgr := NewManager(newStores(t), Options{Dir: t.TempDir(), Now: func() time.Time { return ts }})
	if _, err := mgr.Create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := mgr.Create(ctx)
	var ioErr *domain.BackupIOError
	if !errors.As(err, &ioErr) || ioErr.Op != "mkdir" {
		t.Fatalf("err = %v", err)
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	mgr := NewManager(newStores(t), Options{Dir: t.TempDir()})
	if _, err := NewScheduler(mgr, "not a schedule", false); err == nil {
		t.Fatal("expected schedule parse error")
	}
	s, err := NewScheduler(mgr, "", false)
	if err != nil {
		t.Fatalf("default schedule: %v", err)
	}
	s.Start()
	s.Stop(context.Background())
}
