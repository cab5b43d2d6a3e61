package bot

import (
	"github.com/m3rciful/notifybot/core/telegram/keyboard"
	"github.com/m3rciful/notifybot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// Reply keyboard labels.
const (
	LabelSubscribe = "Subscribe"
	LabelSupport   = "Support"
	LabelAbout     = "About Bot"
	LabelAdmin     = "Administration"
)

const (
	textWelcome       = "Welcome to the bot! Choose an option:"
	textCancelled     = "Action cancelled."
	textSubscribeMenu = "Manage your subscriptions:"
	textSupportMenu   = "How can we help you?"
	textAdminPanel    = "Administration Panel:"
	textUnauthorized  = "Unauthorized access."
	textUnauthAction  = "Unauthorized action."
	textUnknown       = "I did not understand that. Use the menu below or /help."
	textUnknownPhoto  = "Photos are only accepted while composing a broadcast."
	textUnavailable   = "The service is temporarily unavailable. Please try again later."
	textFailed        = "Something went wrong. Please try again later."
	textInvalidButton = "This button is not valid."
	textExpiredButton = "This action is no longer available."
	textTooSoon       = "Too many requests. Please slow down."

	textSubscribedAll     = "Subscribed to all notifications."
	textSubscribedUpdates = "Subscribed to content updates only."
	textUnsubscribed      = "Unsubscribed from all notifications."

	textAskProblem     = "Please describe the problem (brief title):"
	textAskDescription = "Please provide a detailed description of the issue:"
	textNeedText       = "Please send a text message."
	textSubmitted      = "Your ticket has been submitted."
	textNoTickets      = "You have no submitted tickets."

	textNoUnresolved  = "No unresolved tickets found."
	textNoResolved    = "No resolved tickets found."
	textInProgress    = "Status updated to 'In Progress'."
	textAskResolution = "Please write a response for this resolved ticket:"
	textResolved      = "The ticket has been marked as resolved with your response."
	textTicketMissing = "Ticket not found."
	textTicketClosed  = "This ticket is already resolved."

	textSelectAudience = "Select who receives the message:"
	textAskContent     = "Send the message text and/or a photo:"

	textResetScope       = "What should be reset?"
	textResetTickets     = "Tickets database has been reset."
	textResetSubscribers = "Subscribers database has been reset."

	textNoLogs = "No WARNING or higher log entries."

	textBackupPrompt    = "Create a new backup now?"
	textBackupCancelled = "Backup cancelled."
)

// MainMenu is the reply keyboard; the administration entry is shown to the admin only.
func MainMenu(admin bool) *tele.ReplyMarkup {
	rows := [][]string{{LabelSubscribe}, {LabelSupport}, {LabelAbout}}
	if admin {
		rows = append(rows, []string{LabelAdmin})
	}
	return keyboard.ReplyButtons(rows...)
}

func subscribeMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		button("Subscribe to all notifications", ActionSubscribeAll),
		button("Subscribe to content updates only", ActionSubscribeUpdates),
		button("Unsubscribe", ActionUnsubscribe),
		button("Back", ActionBack),
	})
}

func supportMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		button("Send Ticket", ActionSendTicket),
		button("View Sent Tickets", ActionViewTickets),
		button("Back", ActionBack),
	})
}

func adminMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		button("Send Broadcast", ActionSendBroadcast),
		button("View Unresolved Tickets", ActionViewUnresolved),
		button("View Resolved Tickets", ActionViewResolved),
		button("Reset Database", ActionReset),
		button("Statistics", ActionStats),
		button("View Logs", ActionLogs),
		button("Backup", ActionBackup),
		button("Back", ActionBack),
	})
}

func audienceMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		button("Update (all subscribers)", ActionBroadcastUpdate),
		button("Fixes", ActionBroadcastFixes),
		button("Back", ActionBack),
	})
}

func resetMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{button("Tickets", ActionResetTickets), button("Subscribers", ActionResetSubscribers)},
		[]keyboard.InlineBtn{button("Back", ActionBack)},
	)
}

func backupMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{button("Confirm", ActionBackupConfirm), button("Cancel", ActionBackupCancel)},
	)
}

func ticketActionsMenu(id int64) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			Callback{Action: ActionTicketResolve, TicketID: id}.Button("Resolved"),
			Callback{Action: ActionTicketProgress, TicketID: id}.Button("In Progress"),
		},
		[]keyboard.InlineBtn{button("Back", ActionBack)},
	)
}

func subscriptionLabel(sub *domain.Subscriber) string {
	if sub == nil {
		return "No subscription"
	}
	return sub.SubscriptionType.Label()
}
