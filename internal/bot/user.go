package bot

import (
	"strings"

	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"
	"github.com/m3rciful/notifybot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) onStart(c tele.Context) error {
	b.States.Clear(tghelpers.SenderID(c))
	return tghelpers.SendText(c, textWelcome, MainMenu(b.isAdmin(c)))
}

func (b *Bot) onCancel(c tele.Context) error {
	b.States.Clear(tghelpers.SenderID(c))
	return tghelpers.SendText(c, textCancelled, MainMenu(b.isAdmin(c)))
}

func (b *Bot) onHelp(c tele.Context) error {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	sb.WriteString("/start - Open the main menu\n")
	sb.WriteString("/cancel - Cancel the current action\n")
	sb.WriteString("/help - Show available commands\n\n")
	sb.WriteString("Use the menu buttons to manage subscriptions or contact support.")
	return tghelpers.SendText(c, sb.String())
}

func (b *Bot) onAbout(c tele.Context) error {
	return tghelpers.SendText(c, b.AboutText)
}

func (b *Bot) onUnknownText(c tele.Context) error {
	if c.Chat() != nil && c.Chat().Type != tele.ChatPrivate {
		return nil
	}
	return tghelpers.SendText(c, textUnknown, MainMenu(b.isAdmin(c)))
}

func (b *Bot) onUnknownPhoto(c tele.Context) error {
	if c.Chat() != nil && c.Chat().Type != tele.ChatPrivate {
		return nil
	}
	return tghelpers.SendText(c, textUnknownPhoto)
}

func (b *Bot) onSubscribeMenu(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sub, err := b.Subscriptions.Current(ctx, tghelpers.ChatID(c))
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, textSubscribeMenu+"\n\nCurrent subscription: "+subscriptionLabel(sub), subscribeMenu())
}

func (b *Bot) onSubscribe(c tele.Context, cb Callback) error {
	typ, toast := domain.SubscriptionAll, textSubscribedAll
	if cb.Action == ActionSubscribeUpdates {
		typ, toast = domain.SubscriptionUpdates, textSubscribedUpdates
	}
	ctx := tghelpers.BuildContext(c)
	if err := b.Subscriptions.Subscribe(ctx, tghelpers.ChatID(c), tghelpers.Username(c), typ); err != nil {
		return b.fail(c, err)
	}
	if err := tghelpers.Toast(c, toast); err != nil {
		return err
	}
	return c.Delete()
}

func (b *Bot) onUnsubscribe(c tele.Context, _ Callback) error {
	ctx := tghelpers.BuildContext(c)
	if err := b.Subscriptions.Unsubscribe(ctx, tghelpers.ChatID(c)); err != nil {
		return b.fail(c, err)
	}
	if err := tghelpers.Toast(c, textUnsubscribed); err != nil {
		return err
	}
	return c.Delete()
}

// onBack closes the menu and abandons any pending step.
func (b *Bot) onBack(c tele.Context, _ Callback) error {
	b.States.Clear(tghelpers.SenderID(c))
	return c.Delete()
}

func (b *Bot) onSupportMenu(c tele.Context) error {
	return tghelpers.SendText(c, textSupportMenu, supportMenu())
}

func (b *Bot) onSendTicket(c tele.Context, _ Callback) error {
	b.States.SetState(tghelpers.SenderID(c), StateTicketProblem)
	return tghelpers.SendText(c, textAskProblem)
}

func (b *Bot) onTicketProblem(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return tghelpers.SendText(c, textNeedText)
	}
	user := tghelpers.SenderID(c)
	b.States.UpdateData(user, keyProblem, text)
	b.States.SetState(user, StateTicketDescription)
	return tghelpers.SendText(c, textAskDescription)
}

func (b *Bot) onTicketDescription(c tele.Context) error {
	description := strings.TrimSpace(c.Text())
	if description == "" {
		return tghelpers.SendText(c, textNeedText)
	}
	user := tghelpers.SenderID(c)
	problem, _ := b.States.DataString(user, keyProblem)

	ctx := tghelpers.BuildContext(c)
	if _, err := b.Tickets.Submit(ctx, user, tghelpers.Username(c), problem, description); err != nil {
		b.States.Clear(user)
		return b.fail(c, err)
	}
	b.States.Clear(user)
	return tghelpers.SendText(c, textSubmitted, MainMenu(b.isAdmin(c)))
}

func (b *Bot) onViewTickets(c tele.Context, _ Callback) error {
	ctx := tghelpers.BuildContext(c)
	tickets, err := b.Tickets.ListByUser(ctx, tghelpers.SenderID(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(tickets) == 0 {
		return tghelpers.SendText(c, textNoTickets, supportMenu())
	}
	return tghelpers.SendText(c, formatUserTickets(tickets), supportMenu())
}
