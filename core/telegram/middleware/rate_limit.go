package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/notifybot/core/logger"
	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// sweepThreshold is the number of tracked users above which stale entries are dropped.
const sweepThreshold = 4096

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists UpdateKind values that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// UpdateKind names the coarse update class: callback, message,
// channel_post, inline_query or other.
func UpdateKind(c tele.Context) string {
	u := c.Update()
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return "message"
	case u.ChannelPost != nil:
		return "channel_post"
	case u.Query != nil:
		return "inline_query"
	}
	return "other"
}

type limiter struct {
	interval time.Duration

	mu   sync.Mutex
	seen map[int64]time.Time
}

// allow records a hit for id at now and reports whether it is outside the interval.
func (l *limiter) allow(id int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.seen[id]; ok && now.Sub(last) < l.interval {
		return false
	}
	if len(l.seen) > sweepThreshold {
		for k, ts := range l.seen {
			if now.Sub(ts) > l.interval {
				delete(l.seen, k)
			}
		}
	}
	l.seen[id] = now
	return true
}

// RateLimitMiddleware drops updates from a user that arrive sooner than
// Interval after the previous accepted one.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	l := &limiter{interval: opts.Interval, seen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if l.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
				slog.String("outcome", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
