package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/notifybot/core/logger"
	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/service"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) onAdminPanel(c tele.Context) error {
	if !b.isAdmin(c) {
		return tghelpers.SendText(c, textUnauthorized)
	}
	return tghelpers.SendText(c, textAdminPanel, adminMenu())
}

func (b *Bot) onSendBroadcast(c tele.Context, _ Callback) error {
	b.States.SetState(tghelpers.SenderID(c), StateBroadcastSelect)
	return tghelpers.SendText(c, textSelectAudience, audienceMenu())
}

func (b *Bot) onBroadcastAudience(c tele.Context, cb Callback) error {
	audience := domain.AudienceUpdates
	if cb.Action == ActionBroadcastFixes {
		audience = domain.AudienceFixes
	}
	user := tghelpers.SenderID(c)
	b.States.UpdateData(user, keyBroadcastType, string(audience))
	b.States.SetState(user, StateBroadcastContent)
	return tghelpers.SendText(c, textAskContent)
}

func (b *Bot) onBroadcastContent(c tele.Context) error {
	user := tghelpers.SenderID(c)
	raw, _ := b.States.DataString(user, keyBroadcastType)
	audience, err := domain.ParseAudience(raw)
	if err != nil {
		b.States.Clear(user)
		return b.fail(c, err)
	}

	content := service.Content{Text: c.Text()}
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		content = service.Content{Text: msg.Caption, PhotoID: msg.Photo.FileID}
	}
	if content.Empty() {
		return tghelpers.SendText(c, textAskContent)
	}

	res, err := b.Broadcaster.Broadcast(tghelpers.BuildContext(c), audience, content)
	b.States.Clear(user)
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, res.Summary(), adminMenu())
}

func (b *Bot) onViewUnresolved(c tele.Context, _ Callback) error {
	tickets, err := b.Tickets.ListUnresolved(tghelpers.BuildContext(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(tickets) == 0 {
		return tghelpers.Toast(c, textNoUnresolved)
	}
	for _, t := range tickets {
		if err := tghelpers.SendText(c, formatOpenTicket(t), ticketActionsMenu(t.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) onViewResolved(c tele.Context, _ Callback) error {
	tickets, err := b.Tickets.ListResolved(tghelpers.BuildContext(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(tickets) == 0 {
		return tghelpers.SendText(c, textNoResolved, adminMenu())
	}
	return tghelpers.SendText(c, formatResolvedTickets(tickets), adminMenu())
}

func (b *Bot) onTicketProgress(c tele.Context, cb Callback) error {
	_, err := b.Tickets.SetInProgress(tghelpers.BuildContext(c), cb.TicketID)
	switch {
	case errors.Is(err, domain.ErrTicketClosed):
		return tghelpers.Toast(c, textTicketClosed)
	case errors.Is(err, domain.ErrTicketNotFound):
		return tghelpers.Toast(c, textTicketMissing)
	case err != nil:
		return b.fail(c, err)
	}
	return tghelpers.Toast(c, textInProgress)
}

// onTicketResolve only asks for the response; the status changes when it arrives.
func (b *Bot) onTicketResolve(c tele.Context, cb Callback) error {
	t, err := b.Tickets.Get(tghelpers.BuildContext(c), cb.TicketID)
	if errors.Is(err, domain.ErrTicketNotFound) {
		return tghelpers.Toast(c, textTicketMissing)
	}
	if err != nil {
		return b.fail(c, err)
	}
	if !t.Open() {
		return tghelpers.Toast(c, textTicketClosed)
	}
	user := tghelpers.SenderID(c)
	b.States.SetState(user, StateTicketResolution)
	b.States.UpdateData(user, keyTicketID, t.ID)
	return tghelpers.SendText(c, textAskResolution)
}

func (b *Bot) onTicketResolution(c tele.Context) error {
	response := strings.TrimSpace(c.Text())
	if response == "" {
		return tghelpers.SendText(c, textNeedText)
	}
	user := tghelpers.SenderID(c)
	id, ok := b.States.DataInt64(user, keyTicketID)
	b.States.Clear(user)
	if !ok {
		return tghelpers.SendText(c, textTicketMissing)
	}

	_, err := b.Tickets.Resolve(tghelpers.BuildContext(c), id, response)
	if errors.Is(err, domain.ErrTicketNotFound) {
		return tghelpers.SendText(c, textTicketMissing)
	}
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, textResolved)
}

func (b *Bot) onReset(c tele.Context, _ Callback) error {
	b.States.SetState(tghelpers.SenderID(c), StateResetScope)
	return tghelpers.SendText(c, textResetScope, resetMenu())
}

func (b *Bot) onResetScope(c tele.Context, cb Callback) error {
	b.States.Clear(tghelpers.SenderID(c))
	ctx := tghelpers.BuildContext(c)

	reset, toast := b.Tickets.Reset, textResetTickets
	if cb.Action == ActionResetSubscribers {
		reset, toast = b.Subscriptions.Reset, textResetSubscribers
	}
	if err := reset(ctx); err != nil {
		return b.fail(c, err)
	}
	if err := tghelpers.Toast(c, toast); err != nil {
		return err
	}
	return c.Delete()
}

func (b *Bot) onStats(c tele.Context, _ Callback) error {
	ctx := tghelpers.BuildContext(c)
	total, byType, err := b.Subscriptions.Stats(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	counts, err := b.Tickets.Counts(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	text := formatStats(total, byType, counts, time.Since(b.StartedAt), b.Version)
	return tghelpers.SendText(c, text, adminMenu())
}

func (b *Bot) onLogs(c tele.Context, _ Callback) error {
	lines, err := logger.TailFile(b.LogPath, 20, slog.LevelWarn)
	if err != nil {
		return tghelpers.SendText(c, fmt.Sprintf("Could not read the log file: %v", err))
	}
	return tghelpers.SendText(c, formatLogs(lines))
}

func (b *Bot) onBackup(c tele.Context, _ Callback) error {
	info, err := b.Backups.Describe(tghelpers.BuildContext(c))
	if err != nil {
		return b.fail(c, err)
	}
	b.States.SetState(tghelpers.SenderID(c), StateBackupConfirm)
	return tghelpers.SendText(c, info+"\n\n"+textBackupPrompt, backupMenu())
}

func (b *Bot) onBackupConfirm(c tele.Context, _ Callback) error {
	b.States.Clear(tghelpers.SenderID(c))
	snap, err := b.Backups.Create(tghelpers.BuildContext(c))
	if b.OnBackup != nil {
		b.OnBackup(err)
	}
	if err != nil {
		logger.Error(tghelpers.BuildContext(c), "backup", "backup.manual", slog.String("err", err.Error()))
		return tghelpers.EditOrSendText(c, "Backup failed: "+err.Error())
	}
	return tghelpers.EditOrSendText(c, fmt.Sprintf("Backup created: %s (%s)", snap.Name, strings.Join(snap.Stores, ", ")))
}

func (b *Bot) onBackupCancel(c tele.Context, _ Callback) error {
	b.States.Clear(tghelpers.SenderID(c))
	if err := tghelpers.Toast(c, textBackupCancelled); err != nil {
		return err
	}
	return c.Delete()
}
