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

// SubscriberRepo reads and writes the subscribers store.
type SubscriberRepo struct {
	stores *coredatabase.Manager
}

// NewSubscriberRepo binds the repository to the store manager.
func NewSubscriberRepo(stores *coredatabase.Manager) *SubscriberRepo {
	return &SubscriberRepo{stores: stores}
}

// Upsert creates the subscriber or replaces its type and username.
func (r *SubscriberRepo) Upsert(ctx context.Context, chatID int64, username string, typ domain.SubscriptionType) error {
	return r.stores.Do(ctx, SubscribersStore, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx, `
INSERT INTO subscribers (chat_id, username, subscription_type) VALUES (?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET username = excluded.username, subscription_type = excluded.subscription_type`,
			chatID, nullable(username), string(typ))
		if err != nil {
			return fmt.Errorf("upsert subscriber %d: %w", chatID, err)
		}
		return nil
	})
}

// Delete removes the subscriber; a missing row is not an error.
func (r *SubscriberRepo) Delete(ctx context.Context, chatID int64) error {
	return r.stores.Do(ctx, SubscribersStore, func(ctx context.Context, db *sqlx.DB) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM subscribers WHERE chat_id = ?`, chatID); err != nil {
			return fmt.Errorf("delete subscriber %d: %w", chatID, err)
		}
		return nil
	})
}

// Get returns the subscriber row, or nil when the chat is not subscribed.
func (r *SubscriberRepo) Get(ctx context.Context, chatID int64) (*domain.Subscriber, error) {
	var sub *domain.Subscriber
	err := r.stores.Do(ctx, SubscribersStore, func(ctx context.Context, db *sqlx.DB) error {
		var row domain.Subscriber
		err := db.GetContext(ctx, &row, `
SELECT chat_id, username, COALESCE(subscription_type, '') AS subscription_type
FROM subscribers WHERE chat_id = ?`, chatID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil
		case err != nil:
			return fmt.Errorf("get subscriber %d: %w", chatID, err)
		}
		sub = &row
		return nil
	})
	return sub, err
}

// ListChatIDs returns the chats subscribed with any of the given types.
func (r *SubscriberRepo) ListChatIDs(ctx context.Context, types ...domain.SubscriptionType) ([]int64, error) {
	if len(types) == 0 {
		return nil, nil
	}
	var ids []int64
	err := r.stores.Do(ctx, SubscribersStore, func(ctx context.Context, db *sqlx.DB) error {
		query, args, err := sqlx.In(`SELECT chat_id FROM subscribers WHERE subscription_type IN (?) ORDER BY chat_id`, types)
		if err != nil {
			return err
		}
		if err := db.SelectContext(ctx, &ids, db.Rebind(query), args...); err != nil {
			return fmt.Errorf("list subscribers: %w", err)
		}
		return nil
	})
	return ids, err
}

// TypeCount is the number of subscribers of one type.
type TypeCount struct {
	Type  string `db:"subscription_type"`
	Count int    `db:"n"`
}

// Counts returns the total number of subscribers and a breakdown by type.
func (r *SubscriberRepo) Counts(ctx context.Context) (int, []TypeCount, error) {
	var (
		total  int
		byType []TypeCount
	)
	err := r.stores.Do(ctx, SubscribersStore, func(ctx context.Context, db *sqlx.DB) error {
		if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscribers`); err != nil {
			return fmt.Errorf("count subscribers: %w", err)
		}
		if err := db.SelectContext(ctx, &byType, `
SELECT COALESCE(subscription_type, '') AS subscription_type, COUNT(*) AS n
FROM subscribers GROUP BY subscription_type ORDER BY subscription_type`); err != nil {
			return fmt.Errorf("count subscribers by type: %w", err)
		}
		return nil
	})
	return total, byType, err
}

// Reset deletes every subscriber.
func (r *SubscriberRepo) Reset(ctx context.Context) error {
	return r.stores.Do(ctx, SubscribersStore, func(ctx context.Context, db *sqlx.DB) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM subscribers`); err != nil {
			return fmt.Errorf("reset subscribers: %w", err)
		}
		return nil
	})
}
