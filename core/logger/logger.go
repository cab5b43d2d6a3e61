package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/notifybot/core/buildinfo"
	coreconfig "github.com/m3rciful/notifybot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger.
	L *slog.Logger

	// DB logs store manager events.
	DB *slog.Logger
	// MIG logs schema migration events.
	MIG *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// BAK logs backup lifecycle events.
	BAK *slog.Logger
	// SVCTickets logs ticket workflow activity.
	SVCTickets *slog.Logger
	// SVCSubscribers logs subscription activity.
	SVCSubscribers *slog.Logger
	// SVCBroadcast logs broadcast fan-out activity.
	SVCBroadcast *slog.Logger
)

func init() {
	// Until InitLogger runs (tests, CLI subcommands) everything goes through slog's default.
	L = slog.Default()
	wireComponents()
}

// settings is the logging section of the config resolved to concrete values.
type settings struct {
	level         slog.Level
	format        logFormat
	keyOrder      []string
	profile       string
	sampleN       int
	sampleD       int
	filePath      string
	traceOverride bool
}

func settingsFrom(cfg *coreconfig.Config) settings {
	st := settings{
		level:    slog.LevelInfo,
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
		profile:  "prod",
		sampleN:  1,
		sampleD:  50,
	}
	st.traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
	if cfg == nil {
		return st
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		st.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		st.level = slog.LevelDebug
	case "warn", "warning":
		st.level = slog.LevelWarn
	case "error":
		st.level = slog.LevelError
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		st.format = formatKV
	case "json":
	default:
		if st.profile == "debug" || st.profile == "dev" {
			st.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
		if len(order) > 0 {
			st.keyOrder = order
		}
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		switch n, d := parseRatioSpec(spec); {
		case n == 0 && d == 0:
			st.sampleN, st.sampleD = 0, 0
		case n > 0 && d > 0:
			st.sampleN, st.sampleD = n, d
		}
	}

	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		st.filePath = filepath.Join(dir, file)
	}
	return st
}

// InitLogger configures the global structured logger. Only the first call has effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		st := settingsFrom(cfg)
		levelVar.Set(st.level)
		debugSampler.Set(st.sampleN, st.sampleD)
		traceOverride = st.traceOverride

		outputs, closers := openOutputs(st.filePath)
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   st.format,
			keyOrder: st.keyOrder,
		}))
		slog.SetDefault(L)

		wireComponents()
		logStartup(st.profile)
	})
	return nil
}

func wireComponents() {
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	TG = L.With("component", "tg")
	TWire = L.With("component", "tg.wire")
	BAK = L.With("component", "backup")
	SVCTickets = L.With("component", "service.tickets")
	SVCSubscribers = L.With("component", "service.subscribers")
	SVCBroadcast = L.With("component", "service.broadcast")
}

func logStartup(profile string) {
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", profile),
	)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	if logWriter != nil {
		if err := logWriter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openOutputs returns stdout plus the log file at path, when it can be opened.
func openOutputs(path string) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	if path == "" {
		return writers, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("logger: failed to create log dir for %s: %v", path, err)
		return writers, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return writers, nil
	}
	return append(writers, f), []io.Closer{f}
}

// LogEvent logs attrs with the event attribute first; a nil logger falls back to the context logger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether debug-level details should be logged for high-volume events.
func ShouldSampleDebug() bool {
	if traceOverride {
		return true
	}
	return debugSampler.Allow()
}
