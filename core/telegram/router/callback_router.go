package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/notifybot/core/telegram"
	"github.com/m3rciful/notifybot/core/telegram/callbacks"
	"github.com/m3rciful/notifybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every inline button press through the registry by unique key.
// The query is answered with an empty response unless the handler already answered it.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key := callbacks.Key(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		cbHandler, ok := reg.GetCallback(key)
		if !ok {
			cbHandler = reg.CallbackNotFound()
			if cbHandler == nil {
				cbHandler = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
		}

		err := handleWithSummary(c, name, start, func() error {
			if cbHandler == nil {
				return nil
			}
			return cbHandler(c)
		}, extras...)
		if !callbacks.Answered(c) {
			_ = c.Respond()
		}
		return err
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(handler),
	}
}
