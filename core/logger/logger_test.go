package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/notifybot/core/config"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Logging.Level = "WARN"
	cfg.Logging.Profile = "Dev"
	cfg.Logging.KeysOrder = "ts, level ,event"
	cfg.Logging.DebugSample = "1/10"
	cfg.Logging.Dir = "logs"
	cfg.Logging.BotFile = "bot.log"

	st := settingsFrom(cfg)
	if st.level != slog.LevelWarn || st.format != formatKV || st.profile != "dev" {
		t.Fatalf("unexpected settings: %+v", st)
	}
	if len(st.keyOrder) != 3 || st.keyOrder[1] != "level" {
		t.Fatalf("key order = %v", st.keyOrder)
	}
	if st.sampleN != 1 || st.sampleD != 10 {
		t.Fatalf("sample = %d/%d", st.sampleN, st.sampleD)
	}
	if st.filePath != filepath.Join("logs", "bot.log") {
		t.Fatalf("file path = %q", st.filePath)
	}
}

func TestSettingsDefaults(t *testing.T) {
	st := settingsFrom(nil)
	if st.level != slog.LevelInfo || st.format != formatJSON || st.profile != "prod" || st.filePath != "" {
		t.Fatalf("unexpected defaults: %+v", st)
	}

	cfg := &coreconfig.Config{}
	cfg.Logging.Format = "json"
	cfg.Logging.Profile = "debug"
	cfg.Logging.DebugSample = "-1/5"
	st = settingsFrom(cfg)
	if st.format != formatJSON {
		t.Fatal("explicit json overridden by profile")
	}
	if st.sampleN != 1 || st.sampleD != 50 {
		t.Fatalf("invalid sample spec changed ratio: %d/%d", st.sampleN, st.sampleD)
	}

	cfg.Logging.DebugSample = "0"
	if st = settingsFrom(cfg); st.sampleN != 0 || st.sampleD != 0 {
		t.Fatalf("zero sample spec should disable sampling: %d/%d", st.sampleN, st.sampleD)
	}
}
