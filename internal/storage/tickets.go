package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/notifybot/core/database"
	"github.com/m3rciful/notifybot/internal/domain"
)

// Rows written by older releases may hold NULL text columns.
const ticketColumns = `id, COALESCE(user_id, 0) AS user_id, username,
COALESCE(problem, '') AS problem, COALESCE(description, '') AS description,
COALESCE(status, 'Unresolved') AS status, response`

// TicketRepo reads and writes the tickets store.
type TicketRepo struct {
	stores *coredatabase.Manager
}

// NewTicketRepo binds the repository to the store manager.
func NewTicketRepo(stores *coredatabase.Manager) *TicketRepo {
	return &TicketRepo{stores: stores}
}

// Create inserts an Unresolved ticket without a response and returns it.
func (r *TicketRepo) Create(ctx context.Context, userID int64, username, problem, description string) (domain.Ticket, error) {
	t := domain.Ticket{
		UserID:      userID,
		Username:    nullable(username),
		Problem:     problem,
		Description: description,
		Status:      domain.TicketUnresolved,
	}
	err := r.stores.Do(ctx, TicketsStore, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.NamedExecContext(ctx, `
INSERT INTO tickets (user_id, username, problem, description, status)
VALUES (:user_id, :username, :problem, :description, :status)`, t)
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		t.ID = id
		return nil
	})
	return t, err
}

// Get returns one ticket or domain.ErrTicketNotFound.
func (r *TicketRepo) Get(ctx context.Context, id int64) (domain.Ticket, error) {
	var t domain.Ticket
	err := r.stores.Do(ctx, TicketsStore, func(ctx context.Context, db *sqlx.DB) error {
		err := db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("ticket %d: %w", id, domain.ErrTicketNotFound)
		case err != nil:
			return fmt.Errorf("get ticket %d: %w", id, err)
		}
		return nil
	})
	return t, err
}

// ListByUser returns the tickets submitted by a user in insertion order.
func (r *TicketRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE user_id = ? ORDER BY id`, userID)
}

// ListByStatus returns tickets with any of the given statuses in insertion order.
func (r *TicketRepo) ListByStatus(ctx context.Context, statuses ...domain.TicketStatus) ([]domain.Ticket, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+ticketColumns+` FROM tickets WHERE COALESCE(status, 'Unresolved') IN (?) ORDER BY id`, statuses)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, query, args...)
}

func (r *TicketRepo) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.stores.Do(ctx, TicketsStore, func(ctx context.Context, db *sqlx.DB) error {
		if err := db.SelectContext(ctx, &out, db.Rebind(query), args...); err != nil {
			return fmt.Errorf("list tickets: %w", err)
		}
		return nil
	})
	return out, err
}

// SetInProgress moves an open ticket to In Progress and returns the updated row.
// A Resolved ticket is left untouched and yields domain.ErrTicketClosed.
func (r *TicketRepo) SetInProgress(ctx context.Context, id int64) (domain.Ticket, error) {
	return r.update(ctx, id, `UPDATE tickets SET status = ? WHERE id = ? AND COALESCE(status, 'Unresolved') != ?`,
		domain.TicketInProgress, id, domain.TicketResolved)
}

// Resolve stores the admin response and marks the ticket Resolved in one statement.
func (r *TicketRepo) Resolve(ctx context.Context, id int64, response string) (domain.Ticket, error) {
	return r.update(ctx, id, `UPDATE tickets SET status = ?, response = ? WHERE id = ?`, domain.TicketResolved, response, id)
}

func (r *TicketRepo) update(ctx context.Context, id int64, query string, args ...any) (domain.Ticket, error) {
	var t domain.Ticket
	err := r.stores.Do(ctx, TicketsStore, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update ticket %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update ticket %d: %w", id, err)
		}
		if n == 0 {
			var exists bool
			if err := db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id = ?)`, id); err != nil {
				return fmt.Errorf("update ticket %d: %w", id, err)
			}
			if exists {
				return fmt.Errorf("ticket %d: %w", id, domain.ErrTicketClosed)
			}
			return fmt.Errorf("ticket %d: %w", id, domain.ErrTicketNotFound)
		}
		if err := db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("reload ticket %d: %w", id, err)
		}
		return nil
	})
	return t, err
}

// Reset deletes every ticket and restarts the id sequence at 1.
func (r *TicketRepo) Reset(ctx context.Context) error {
	return r.stores.Do(ctx, TicketsStore, func(ctx context.Context, db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("reset tickets: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, `DELETE FROM tickets`); err != nil {
			return fmt.Errorf("reset tickets: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'tickets'`); err != nil {
			return fmt.Errorf("reset ticket sequence: %w", err)
		}
		return tx.Commit()
	})
}

// Count returns the number of tickets per status.
func (r *TicketRepo) Count(ctx context.Context) (map[domain.TicketStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	err := r.stores.Do(ctx, TicketsStore, func(ctx context.Context, db *sqlx.DB) error {
		return db.SelectContext(ctx, &rows, `
SELECT COALESCE(status, 'Unresolved') AS status, COUNT(*) AS n FROM tickets GROUP BY 1`)
	})
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	out := make(map[domain.TicketStatus]int, len(rows))
	for _, row := range rows {
		out[domain.TicketStatus(row.Status)] += row.N
	}
	return out, nil
}
