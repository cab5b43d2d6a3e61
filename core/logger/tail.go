package logger

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const maxLineBytes = 1 << 20

// TailFile returns up to n last lines of the log file at path whose level is
// at least minLevel. Both JSON and KV line formats are recognised; lines
// without a level are skipped.
func TailFile(path string, n int, minLevel slog.Level) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		lvl, ok := lineLevel(line)
		if !ok || lvl < minLevel {
			continue
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, line)
	}
	if err := sc.Err(); err != nil {
		return ring, fmt.Errorf("scan log file: %w", err)
	}
	return ring, nil
}

func lineLevel(line string) (slog.Level, bool) {
	var raw string
	if i := strings.Index(line, `"level":"`); i >= 0 {
		rest := line[i+len(`"level":"`):]
		if j := strings.IndexByte(rest, '"'); j >= 0 {
			raw = rest[:j]
		}
	} else if i := strings.Index(line, "level="); i >= 0 && (i == 0 || line[i-1] == ' ') {
		rest := line[i+len("level="):]
		if j := strings.IndexByte(rest, ' '); j >= 0 {
			rest = rest[:j]
		}
		raw = rest
	}
	switch strings.ToUpper(raw) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR", "CRITICAL", "FATAL":
		return slog.LevelError, true
	}
	return 0, false
}
