package state

import (
	"log/slog"

	"github.com/m3rciful/notifybot/core/logger"
	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Require lets the update through only when the sender is in one of states.
// Otherwise onMismatch runs, or the update is dropped when it is nil.
func Require(mgr *Manager, onMismatch tele.HandlerFunc, states ...State) tele.MiddlewareFunc {
	allowed := make(map[State]struct{}, len(states))
	for _, st := range states {
		allowed[st] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return nil
			}
			current := mgr.GetState(user.ID)
			ctx := tghelpers.BuildContext(c)
			if _, ok := allowed[current]; ok {
				logger.Debug(ctx, "tg", "fsm.match", slog.String("state", current.String()))
				return next(c)
			}
			logger.Debug(ctx, "tg", "fsm.skip", slog.String("state", current.String()))
			if onMismatch != nil {
				return onMismatch(c)
			}
			return nil
		}
	}
}
