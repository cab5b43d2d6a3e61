package router

import (
	"time"

	tg "github.com/m3rciful/notifybot/core/telegram"
	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"
	"github.com/m3rciful/notifybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of the conversation manager the text router needs.
type FSM interface {
	InProgress(userID int64) bool
	Dispatch(c tele.Context) (bool, error)
}

// TextOptions controls routing of free text and photos.
type TextOptions struct {
	// Preempt sees every message first; returning true stops routing.
	// Used for chats that are not conversations, such as a source group.
	Preempt      func(c tele.Context) (bool, error)
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc
}

// TextRoutes routes text by preempt hook, then conversation state, then
// menu labels from the registry, then UnknownText. Photos skip menu lookup.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	preempt := func(c tele.Context, start time.Time) (bool, error) {
		if opts.Preempt == nil {
			return false, nil
		}
		tghelpers.WithHandler(c, "preempt")
		handled, err := opts.Preempt(c)
		if handled {
			logHandlerSummary(c, "preempt", start, "", err)
		}
		return handled, err
	}
	dispatch := func(c tele.Context, start time.Time) (bool, error) {
		if fsmMgr == nil || !fsmMgr.InProgress(tghelpers.SenderID(c)) {
			return false, nil
		}
		tghelpers.WithHandler(c, "fsm")
		handled, err := fsmMgr.Dispatch(c)
		if handled {
			logHandlerSummary(c, "fsm", start, "", err)
		}
		return handled, err
	}

	textHandler := func(c tele.Context) error {
		start := time.Now()
		if ok, err := preempt(c, start); ok {
			return err
		}
		if ok, err := dispatch(c, start); ok {
			return err
		}

		if reg != nil {
			if h, ok := reg.LookupText(c.Text()); ok {
				return handleWithSummary(c, "menu."+normalizeHandlerName(c.Text()), start, func() error {
					return h(c)
				})
			}
		}
		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error { return opts.UnknownText(c) })
		}
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if ok, err := preempt(c, start); ok {
			return err
		}
		if ok, err := dispatch(c, start); ok {
			return err
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, func() error { return opts.UnknownPhoto(c) })
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: middleware.RecoverMiddleware(textHandler)},
		{Endpoint: tele.OnPhoto, Handler: middleware.RecoverMiddleware(photoHandler)},
	}
}
