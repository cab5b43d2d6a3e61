package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", AdminID: 1, RunMode: "Polling"}}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
	if got, want := cfg.LogPath(), filepath.Join("logs", "bot.log"); got != want {
		t.Fatalf("log path = %q, want %q", got, want)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"no token":   {Telegram: TelegramConfig{AdminID: 1}},
		"no admin":   {Telegram: TelegramConfig{Token: "t"}},
		"bad mode":   {Telegram: TelegramConfig{Token: "t", AdminID: 1, RunMode: "push"}},
		"no webhook": {Telegram: TelegramConfig{Token: "t", AdminID: 1, RunMode: RunModeWebhook}},
		"bad exclude": {
			Telegram:  TelegramConfig{Token: "t", AdminID: 1},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}},
		},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadYAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "telegram:\n  token: from-file\n  admin_id: 10\n  group_id: -100\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADMIN_ID", "42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-file" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminID != 42 {
		t.Fatalf("admin id = %d, want env override 42", cfg.Telegram.AdminID)
	}
	if cfg.Telegram.GroupID != -100 {
		t.Fatalf("group id = %d", cfg.Telegram.GroupID)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ADMIN_ID", "7")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Telegram.AdminID != 7 {
		t.Fatalf("unexpected telegram config: %+v", cfg.Telegram)
	}
}
