package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/notifybot/core/logger"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/storage"
)

// Content is the payload of one broadcast. PhotoID is a Telegram file id.
type Content struct {
	Text    string
	PhotoID string
}

// Empty reports whether there is nothing to send.
func (c Content) Empty() bool {
	return strings.TrimSpace(c.Text) == "" && c.PhotoID == ""
}

// Result counts the outcome of a broadcast.
type Result struct {
	Total  int
	Sent   int
	Failed int
}

// Summary is the report shown to the administrator.
func (r Result) Summary() string {
	return fmt.Sprintf("Broadcast finished.\nRecipients: %d\nDelivered: %d\nFailed: %d", r.Total, r.Sent, r.Failed)
}

// Broadcaster fans content out to an audience of subscribers.
type Broadcaster struct {
	subs *storage.SubscriberRepo
	msg  Messenger
	// OnDelivery observes every individual send.
	OnDelivery func(audience domain.Audience, err error)
}

// NewBroadcaster wires the broadcast workflow.
func NewBroadcaster(subs *storage.SubscriberRepo, msg Messenger) *Broadcaster {
	return &Broadcaster{subs: subs, msg: msg}
}

// Broadcast delivers content to every subscriber in the audience. Each
// recipient is attempted independently; failures are counted, not returned.
func (b *Broadcaster) Broadcast(ctx context.Context, audience domain.Audience, content Content) (Result, error) {
	if content.Empty() {
		return Result{}, domain.ErrEmptyBroadcast
	}
	classes := audience.Classes()
	if len(classes) == 0 {
		return Result{}, fmt.Errorf("broadcast: unknown audience %q", audience)
	}
	ids, err := b.subs.ListChatIDs(ctx, classes...)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	res := Result{Total: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Failed += res.Total - res.Sent - res.Failed
			break
		}
		err := b.deliver(ctx, id, content)
		if b.OnDelivery != nil {
			b.OnDelivery(audience, err)
		}
		if err != nil {
			res.Failed++
			derr := &domain.DeliveryError{ChatID: id, Err: err}
			logger.SVCBroadcast.WarnContext(ctx, "delivery failed",
				slog.String("event", "broadcast.deliver"),
				slog.String("err", derr.Error()),
			)
			continue
		}
		res.Sent++
	}

	logger.SVCBroadcast.InfoContext(ctx, "broadcast done",
		slog.String("event", "broadcast"),
		slog.String("audience", string(audience)),
		slog.Int("total", res.Total),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, nil
}

func (b *Broadcaster) deliver(ctx context.Context, chatID int64, content Content) error {
	if b.msg == nil {
		return errors.New("no messenger bound")
	}
	if content.PhotoID != "" {
		return b.msg.SendPhoto(ctx, chatID, content.PhotoID, content.Text)
	}
	return b.msg.SendText(ctx, chatID, content.Text)
}

// ParseGroupPost recognises a source-group post whose first line is exactly
// "Update" or "Fixes" and returns the audience and the remaining text.
func ParseGroupPost(text string) (domain.Audience, string, bool) {
	head, rest, _ := strings.Cut(text, "\n")
	switch strings.TrimSpace(head) {
	case "Update":
		return domain.AudienceUpdates, strings.TrimSpace(rest), true
	case "Fixes":
		return domain.AudienceFixes, strings.TrimSpace(rest), true
	}
	return "", "", false
}
