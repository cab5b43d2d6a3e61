// Package bot holds the Telegram handlers: menus, the ticket and broadcast
// conversations, the admin panel and the source-group hook.
package bot

import (
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/notifybot/core/logger"
	tg "github.com/m3rciful/notifybot/core/telegram"
	"github.com/m3rciful/notifybot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"
	"github.com/m3rciful/notifybot/core/telegram/middleware"
	"github.com/m3rciful/notifybot/core/telegram/router"
	"github.com/m3rciful/notifybot/core/telegram/state"
	"github.com/m3rciful/notifybot/internal/backup"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/service"

	tele "gopkg.in/telebot.v4"
)

// Deps are the collaborators of the handlers.
type Deps struct {
	Tickets       *service.Tickets
	Subscriptions *service.Subscriptions
	Broadcaster   *service.Broadcaster
	Backups       *backup.Manager
	States        *state.Manager

	AdminID   int64
	GroupID   int64
	Version   string
	AboutText string
	LogPath   string
	StartedAt time.Time

	// OnBackup observes manual backups.
	OnBackup func(err error)
}

// Bot binds handlers to a registry.
type Bot struct {
	Deps
	adminOnly tele.MiddlewareFunc
}

// New returns handlers over deps. A nil States gets a fresh manager.
func New(deps Deps) *Bot {
	if deps.States == nil {
		deps.States = state.NewManager()
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	b := &Bot{Deps: deps}
	b.adminOnly = middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  deps.AdminID,
		OnReject: b.rejectAdmin,
	})
	return b
}

// Register wires commands, menu labels, callbacks and conversation steps.
func (b *Bot) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", tg.Command{Handler: b.onStart, Description: "Open the main menu"})
	reg.RegisterCommand("/cancel", tg.Command{Handler: b.onCancel, Description: "Cancel the current action"})
	reg.RegisterCommand("/help", tg.Command{Handler: b.onHelp, Description: "Show available commands"})

	texts := map[string]tele.HandlerFunc{
		LabelSubscribe: b.onSubscribeMenu,
		LabelSupport:   b.onSupportMenu,
		LabelAbout:     b.onAbout,
		LabelAdmin:     b.onAdminPanel,
	}
	for label, h := range texts {
		if err := reg.RegisterText(label, h); err != nil {
			return err
		}
	}

	selecting := func(st state.State) tele.MiddlewareFunc {
		return state.Require(b.States, b.expired, st)
	}
	routes := []struct {
		action  Action
		admin   bool
		require tele.MiddlewareFunc
		fn      func(tele.Context, Callback) error
	}{
		{ActionSubscribeAll, false, nil, b.onSubscribe},
		{ActionSubscribeUpdates, false, nil, b.onSubscribe},
		{ActionUnsubscribe, false, nil, b.onUnsubscribe},
		{ActionBack, false, nil, b.onBack},
		{ActionSendTicket, false, nil, b.onSendTicket},
		{ActionViewTickets, false, nil, b.onViewTickets},

		{ActionSendBroadcast, true, nil, b.onSendBroadcast},
		{ActionBroadcastUpdate, true, selecting(StateBroadcastSelect), b.onBroadcastAudience},
		{ActionBroadcastFixes, true, selecting(StateBroadcastSelect), b.onBroadcastAudience},
		{ActionViewUnresolved, true, nil, b.onViewUnresolved},
		{ActionViewResolved, true, nil, b.onViewResolved},
		{ActionTicketResolve, true, nil, b.onTicketResolve},
		{ActionTicketProgress, true, nil, b.onTicketProgress},
		{ActionReset, true, nil, b.onReset},
		{ActionResetTickets, true, selecting(StateResetScope), b.onResetScope},
		{ActionResetSubscribers, true, selecting(StateResetScope), b.onResetScope},
		{ActionStats, true, nil, b.onStats},
		{ActionLogs, true, nil, b.onLogs},
		{ActionBackup, true, nil, b.onBackup},
		{ActionBackupConfirm, true, selecting(StateBackupConfirm), b.onBackupConfirm},
		{ActionBackupCancel, true, nil, b.onBackupCancel},
	}
	for _, r := range routes {
		h := b.typed(r.fn)
		if r.require != nil {
			h = r.require(h)
		}
		if r.admin {
			h = b.adminOnly(h)
		}
		if err := reg.RegisterCallback(string(r.action), h); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(func(c tele.Context) error { return tghelpers.Toast(c, textInvalidButton) })

	b.States.Handle(StateTicketProblem, b.onTicketProblem)
	b.States.Handle(StateTicketDescription, b.onTicketDescription)
	b.States.Handle(StateTicketResolution, b.adminOnly(b.onTicketResolution))
	b.States.Handle(StateBroadcastContent, b.adminOnly(b.onBroadcastContent))
	return nil
}

// Routes returns every handler the bot needs on top of the registry.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       b.AdminID,
		OnAdminReject: b.rejectAdmin,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(b.States, reg, router.TextOptions{
		Preempt:      b.preemptGroup,
		UnknownText:  b.onUnknownText,
		UnknownPhoto: b.onUnknownPhoto,
	})...)
	routes = append(routes, tg.Route{
		Endpoint: tele.OnChannelPost,
		Handler:  middleware.RecoverMiddleware(b.onChannelPost),
	})
	return routes
}

// OnRateLimited answers throttled updates.
func (b *Bot) OnRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Toast(c, textTooSoon)
	}
	return nil
}

func (b *Bot) typed(fn func(tele.Context, Callback) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		key, payload := callbacks.Parse(c.Callback())
		cb, err := ParseCallback(key, payload)
		if err != nil {
			logger.Warn(tghelpers.BuildContext(c), "tg", "callback.invalid",
				slog.String("cb_key", key),
				slog.String("err", err.Error()),
			)
			return tghelpers.Toast(c, textInvalidButton)
		}
		return fn(c, cb)
	}
}

func (b *Bot) isAdmin(c tele.Context) bool {
	return middleware.IsAdmin(c, b.AdminID)
}

func (b *Bot) rejectAdmin(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Toast(c, textUnauthAction)
	}
	return tghelpers.SendText(c, textUnauthorized)
}

func (b *Bot) expired(c tele.Context) error {
	return tghelpers.Toast(c, textExpiredButton)
}

// fail logs err and gives the user a generic answer.
func (b *Bot) fail(c tele.Context, err error) error {
	ctx := tghelpers.BuildContext(c)
	text := textFailed
	if errors.Is(err, domain.ErrConnection) {
		text = textUnavailable
	}
	logger.Error(ctx, "tg", "handler.failed", slog.String("err", err.Error()))
	if c.Callback() != nil {
		return tghelpers.Toast(c, text)
	}
	return tghelpers.SendText(c, text)
}
