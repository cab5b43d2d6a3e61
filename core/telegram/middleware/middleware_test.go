package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
	sent   []any
}

func newFakeContext(userID int64) *fakeContext {
	msg := &tele.Message{
		ID:     1,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   "hello",
	}
	return &fakeContext{
		update: tele.Update{ID: 10, Message: msg},
		store:  make(map[string]any),
	}
}

func (f *fakeContext) Update() tele.Update { return f.update }
func (f *fakeContext) Sender() *tele.User { return f.update.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat { return f.update.Message.Chat }
func (f *fakeContext) Text() string { return f.update.Message.Text }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }

func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what)
	return nil
}

func TestAdminOnlyMiddleware(t *testing.T) {
	var called, rejected int
	h := AdminOnlyMiddleware(AdminOptions{
		AdminID:  1,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})(func(tele.Context) error { called++; return nil })

	_ = h(newFakeContext(1))
	_ = h(newFakeContext(2))

	if called != 1 || rejected != 1 {
		t.Fatalf("called=%d rejected=%d", called, rejected)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	var called, limited int
	h := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		OnLimited: func(tele.Context) error { limited++; return nil },
	})(func(tele.Context) error { called++; return nil })

	_ = h(newFakeContext(5))
	_ = h(newFakeContext(5))
	_ = h(newFakeContext(6))

	if called != 2 || limited != 1 {
		t.Fatalf("called=%d limited=%d", called, limited)
	}
}

func TestRateLimitExcludesKind(t *testing.T) {
	var called int
	h := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"message": {}},
	})(func(tele.Context) error { called++; return nil })

	_ = h(newFakeContext(5))
	_ = h(newFakeContext(5))
	if called != 2 {
		t.Fatalf("excluded kind was limited: called=%d", called)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(newFakeContext(1)); err == nil {
		t.Fatal("expected error from recovered panic")
	}

	want := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return want })
	if err := h(newFakeContext(1)); !errors.Is(err, want) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
}

func TestMessageMetricsMiddleware(t *testing.T) {
	c := newFakeContext(1)
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		return c.Send("two", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	msgs, kb := GetCounters(c)
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d, %v", msgs, kb)
	}
}
