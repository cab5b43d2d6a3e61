package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/notifybot/core/telegram/keyboard"
	"github.com/m3rciful/notifybot/internal/domain"
)

// Action is the unique key of an inline button.
type Action string

const (
	ActionSubscribeAll     Action = "subscribe_all"
	ActionSubscribeUpdates Action = "subscribe_updates"
	ActionUnsubscribe      Action = "unsubscribe"
	ActionBack             Action = "back_main"

	ActionSendTicket  Action = "send_ticket"
	ActionViewTickets Action = "view_tickets"

	ActionSendBroadcast   Action = "send_broadcast"
	ActionBroadcastUpdate Action = "broadcast_updates"
	ActionBroadcastFixes  Action = "broadcast_fixes"

	ActionViewUnresolved Action = "view_unresolved_tickets"
	ActionViewResolved   Action = "view_resolved_tickets"
	ActionTicketResolve  Action = "change_status_resolved"
	ActionTicketProgress Action = "change_status_inprogress"

	ActionReset            Action = "reset_database"
	ActionResetTickets     Action = "reset_tickets"
	ActionResetSubscribers Action = "reset_subscribers"

	ActionStats Action = "view_statistics"
	ActionLogs  Action = "view_logs"

	ActionBackup        Action = "backup"
	ActionBackupConfirm Action = "backup_confirm"
	ActionBackupCancel  Action = "backup_cancel"
)

var ticketActions = map[Action]bool{
	ActionTicketResolve:  true,
	ActionTicketProgress: true,
}

var knownActions = map[Action]bool{
	ActionSubscribeAll: true, ActionSubscribeUpdates: true, ActionUnsubscribe: true, ActionBack: true,
	ActionSendTicket: true, ActionViewTickets: true,
	ActionSendBroadcast: true, ActionBroadcastUpdate: true, ActionBroadcastFixes: true,
	ActionViewUnresolved: true, ActionViewResolved: true, ActionTicketResolve: true, ActionTicketProgress: true,
	ActionReset: true, ActionResetTickets: true, ActionResetSubscribers: true,
	ActionStats: true, ActionLogs: true,
	ActionBackup: true, ActionBackupConfirm: true, ActionBackupCancel: true,
}

// Callback is a decoded inline button press. TicketID is set only for ticket actions.
type Callback struct {
	Action   Action
	TicketID int64
}

// ParseCallback validates a button key and payload.
func ParseCallback(unique, payload string) (Callback, error) {
	a := Action(strings.TrimSpace(unique))
	if !knownActions[a] {
		return Callback{}, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidCallback, unique)
	}
	payload = strings.TrimSpace(payload)
	if !ticketActions[a] {
		if payload != "" {
			return Callback{}, fmt.Errorf("%w: unexpected payload for %s", domain.ErrInvalidCallback, a)
		}
		return Callback{Action: a}, nil
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return Callback{}, fmt.Errorf("%w: bad ticket id %q", domain.ErrInvalidCallback, payload)
	}
	return Callback{Action: a, TicketID: id}, nil
}

// Button renders the callback as an inline button.
func (cb Callback) Button(text string) keyboard.InlineBtn {
	btn := keyboard.InlineBtn{Text: text, Unique: string(cb.Action)}
	if cb.TicketID > 0 {
		btn.Data = strconv.FormatInt(cb.TicketID, 10)
	}
	return btn
}

func button(text string, a Action) keyboard.InlineBtn {
	return Callback{Action: a}.Button(text)
}
