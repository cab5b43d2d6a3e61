package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/notifybot/core/logger"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/storage"
)

// Tickets runs the support ticket lifecycle and notifies both sides of it.
type Tickets struct {
	repo    *storage.TicketRepo
	msg     Messenger
	adminID int64
}

// NewTickets wires the ticket workflow.
func NewTickets(repo *storage.TicketRepo, msg Messenger, adminID int64) *Tickets {
	return &Tickets{repo: repo, msg: msg, adminID: adminID}
}

// Submit stores a new Unresolved ticket and notifies the administrator.
func (s *Tickets) Submit(ctx context.Context, userID int64, username, problem, description string) (domain.Ticket, error) {
	t, err := s.repo.Create(ctx, userID, username, problem, description)
	if err != nil {
		return domain.Ticket{}, err
	}
	logger.SVCTickets.InfoContext(ctx, "ticket submitted",
		slog.String("event", "ticket.submit"),
		slog.Int64("ticket_id", t.ID),
		slog.Int64("user_id", userID),
	)
	s.notify(ctx, s.adminID, AdminTicketNotice(t), t.ID)
	return t, nil
}

// SetInProgress marks the ticket In Progress and tells its author.
func (s *Tickets) SetInProgress(ctx context.Context, id int64) (domain.Ticket, error) {
	t, err := s.repo.SetInProgress(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	logger.SVCTickets.InfoContext(ctx, "ticket in progress",
		slog.String("event", "ticket.in_progress"),
		slog.Int64("ticket_id", id),
	)
	s.notify(ctx, t.UserID, StatusNotice(t), t.ID)
	return t, nil
}

// Resolve stores the admin response, marks the ticket Resolved and tells its author.
func (s *Tickets) Resolve(ctx context.Context, id int64, response string) (domain.Ticket, error) {
	t, err := s.repo.Resolve(ctx, id, strings.TrimSpace(response))
	if err != nil {
		return domain.Ticket{}, err
	}
	logger.SVCTickets.InfoContext(ctx, "ticket resolved",
		slog.String("event", "ticket.resolve"),
		slog.Int64("ticket_id", id),
	)
	s.notify(ctx, t.UserID, StatusNotice(t), t.ID)
	return t, nil
}

// Get returns one ticket or domain.ErrTicketNotFound.
func (s *Tickets) Get(ctx context.Context, id int64) (domain.Ticket, error) {
	return s.repo.Get(ctx, id)
}

// ListByUser returns the caller's own tickets.
func (s *Tickets) ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListUnresolved returns tickets the administrator can still act on.
func (s *Tickets) ListUnresolved(ctx context.Context) ([]domain.Ticket, error) {
	return s.repo.ListByStatus(ctx, domain.TicketUnresolved, domain.TicketInProgress)
}

// ListResolved returns closed tickets.
func (s *Tickets) ListResolved(ctx context.Context) ([]domain.Ticket, error) {
	return s.repo.ListByStatus(ctx, domain.TicketResolved)
}

// Reset wipes the tickets store.
func (s *Tickets) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}
	logger.SVCTickets.WarnContext(ctx, "tickets reset", slog.String("event", "ticket.reset"))
	return nil
}

// Counts returns the number of tickets per status.
func (s *Tickets) Counts(ctx context.Context) (map[domain.TicketStatus]int, error) {
	return s.repo.Count(ctx)
}

// A failed notification does not undo the status change.
func (s *Tickets) notify(ctx context.Context, chatID int64, text string, ticketID int64) {
	if s.msg == nil || chatID == 0 {
		return
	}
	if err := s.msg.SendText(ctx, chatID, text); err != nil {
		logger.SVCTickets.WarnContext(ctx, "ticket notification failed",
			slog.String("event", "ticket.notify"),
			slog.Int64("ticket_id", ticketID),
			slog.String("err", (&domain.DeliveryError{ChatID: chatID, Err: err}).Error()),
		)
	}
}

// AdminTicketNotice is the message the administrator receives for a new ticket.
func AdminTicketNotice(t domain.Ticket) string {
	var b strings.Builder
	b.WriteString("New ticket submitted:\n")
	fmt.Fprintf(&b, "Problem: %s\n", t.Problem)
	fmt.Fprintf(&b, "Description: %s\n", t.Description)
	fmt.Fprintf(&b, "Ticket ID: %d", t.ID)
	if t.Username != nil {
		fmt.Fprintf(&b, "\nFrom: @%s", *t.Username)
	}
	return b.String()
}

// StatusNotice is the message the ticket author receives after a status change.
func StatusNotice(t domain.Ticket) string {
	text := fmt.Sprintf("Your ticket (ID: %d, Problem: %s) has been updated to '%s'.", t.ID, t.Problem, t.Status)
	if t.Status == domain.TicketResolved && t.Response != nil {
		text += "\nResponse from admin: " + *t.Response
	}
	return text
}
