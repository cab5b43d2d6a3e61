package bot

import (
	"log/slog"

	"github.com/m3rciful/notifybot/core/logger"
	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"
	"github.com/m3rciful/notifybot/internal/service"

	tele "gopkg.in/telebot.v4"
)

// preemptGroup consumes every message from the source group. Posts headed
// "Update" or "Fixes" are broadcast; anything else is ignored.
func (b *Bot) preemptGroup(c tele.Context) (bool, error) {
	if b.GroupID == 0 || tghelpers.ChatID(c) != b.GroupID {
		return false, nil
	}
	msg := c.Message()
	if msg == nil {
		return true, nil
	}
	text := msg.Text
	if msg.Photo != nil {
		text = msg.Caption
	}
	audience, body, ok := service.ParseGroupPost(text)
	if !ok {
		return true, nil
	}
	content := service.Content{Text: body}
	if msg.Photo != nil {
		content.PhotoID = msg.Photo.FileID
	}
	ctx := tghelpers.BuildContext(c)
	if content.Empty() {
		logger.Warn(ctx, "service.broadcast", "group.empty", slog.String("audience", string(audience)))
		return true, nil
	}
	res, err := b.Broadcaster.Broadcast(ctx, audience, content)
	if err != nil {
		return true, err
	}
	logger.Info(ctx, "service.broadcast", "group.broadcast",
		slog.String("audience", string(audience)),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
	)
	return true, nil
}

func (b *Bot) onChannelPost(c tele.Context) error {
	_, err := b.preemptGroup(c)
	return err
}
