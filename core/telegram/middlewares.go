package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/notifybot/core/config"
	"github.com/m3rciful/notifybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the global chain: recover, rate limit, logger,
// reply counters, then any extra middlewares in order.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc, extra ...Middleware) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			opts := middleware.RateLimitOptions{
				Interval: interval,
				Exclude:  ex,
			}
			opts.OnLimited = onLimited
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use:  middleware.RateLimitMiddleware(opts),
			})
		}
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "counters", Use: middleware.MessageMetricsMiddleware},
	)
	return append(mws, extra...)
}
