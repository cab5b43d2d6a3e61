package service

import (
	"context"
	"log/slog"

	"github.com/m3rciful/notifybot/core/logger"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/storage"
)

// Subscriptions manages the subscriber list.
type Subscriptions struct {
	repo *storage.SubscriberRepo
}

// NewSubscriptions wires the subscription workflow.
func NewSubscriptions(repo *storage.SubscriberRepo) *Subscriptions {
	return &Subscriptions{repo: repo}
}

// Subscribe creates or replaces the chat's subscription.
func (s *Subscriptions) Subscribe(ctx context.Context, chatID int64, username string, typ domain.SubscriptionType) error {
	typ, err := domain.ParseSubscriptionType(string(typ))
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, chatID, username, typ); err != nil {
		return err
	}
	logger.SVCSubscribers.InfoContext(ctx, "subscribed",
		slog.String("event", "subscribe"),
		slog.Int64("chat_id", chatID),
		slog.String("type", string(typ)),
	)
	return nil
}

// Unsubscribe removes the chat; it is a no-op when the chat is not subscribed.
func (s *Subscriptions) Unsubscribe(ctx context.Context, chatID int64) error {
	if err := s.repo.Delete(ctx, chatID); err != nil {
		return err
	}
	logger.SVCSubscribers.InfoContext(ctx, "unsubscribed",
		slog.String("event", "unsubscribe"),
		slog.Int64("chat_id", chatID),
	)
	return nil
}

// Current returns the chat's subscription, or nil.
func (s *Subscriptions) Current(ctx context.Context, chatID int64) (*domain.Subscriber, error) {
	return s.repo.Get(ctx, chatID)
}

// Stats returns the subscriber total and the per-type breakdown.
func (s *Subscriptions) Stats(ctx context.Context) (int, []storage.TypeCount, error) {
	return s.repo.Counts(ctx)
}

// Reset wipes the subscribers store.
func (s *Subscriptions) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}
	logger.SVCSubscribers.WarnContext(ctx, "subscribers reset", slog.String("event", "subscribers.reset"))
	return nil
}
