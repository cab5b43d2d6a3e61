package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/m3rciful/notifybot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned by a Messenger used before the bot started.
var ErrNotBound = errors.New("messenger: bot not bound")

const (
	sendAttempts = 3
	sendBackoff  = 500 * time.Millisecond
)

// Messenger sends out-of-band messages (notifications, broadcasts) through the bot.
// It is created before the bot exists and bound once the runtime starts.
type Messenger struct {
	bot atomic.Pointer[tele.Bot]
}

// Bind sets the bot used for sending.
func (m *Messenger) Bind(b *tele.Bot) {
	m.bot.Store(b)
}

// SendText sends plain text to chatID.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) error {
	return m.send(ctx, chatID, text)
}

// SendPhoto sends a photo by file id with caption.
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	return m.send(ctx, chatID, &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption})
}

func (m *Messenger) send(ctx context.Context, chatID int64, what any) error {
	b := m.bot.Load()
	if b == nil {
		return ErrNotBound
	}
	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if _, err = b.Send(tele.ChatID(chatID), what); err == nil {
			return nil
		}
		if attempt == sendAttempts || !netutil.ShouldRetry(err) {
			return err
		}
		if err := netutil.Sleep(ctx, netutil.Pause(err, attempt, sendBackoff)); err != nil {
			return err
		}
	}
	return err
}
