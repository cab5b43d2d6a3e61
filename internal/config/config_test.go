package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`telegram:
  token: "abc"
  admin_id: 7
backup:
  on_start: false
bot:
  version: "3.01"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CoreConfig().Telegram.Token != "abc" || cfg.Telegram.AdminID != 7 {
		t.Fatalf("core section = %+v", cfg.Telegram)
	}
	if cfg.Storage.TicketsPath != "tickets.db" || cfg.Storage.SubscribersPath != "subscribers.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Backup.Keep != 5 || cfg.Backup.MaxAge != 840*time.Hour || cfg.Backup.Schedule != "0 0 * * 0" {
		t.Fatalf("backup = %+v", cfg.Backup)
	}
	if cfg.BackupOnStart() {
		t.Fatal("on_start: false was ignored")
	}
	if cfg.Bot.Version != "3.01" || cfg.Bot.AboutText == "" {
		t.Fatalf("bot = %+v", cfg.Bot)
	}
}

func TestNormalizeRejectsSharedStorePath(t *testing.T) {
	cfg := &AppConfig{}
	cfg.Telegram.Token = "t"
	cfg.Telegram.AdminID = 1
	cfg.Storage.TicketsPath = "data.db"
	cfg.Storage.SubscribersPath = "data.db"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for shared store path")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("ADMIN_ID", "9")
	t.Setenv("BACKUP_DIR", "/tmp/snapshots")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" || cfg.Telegram.AdminID != 9 || cfg.Backup.Dir != "/tmp/snapshots" {
		t.Fatalf("cfg = %+v / %+v", cfg.Telegram, cfg.Backup)
	}
}
