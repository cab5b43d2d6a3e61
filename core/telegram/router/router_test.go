package router

import (
	"errors"
	"testing"

	tg "github.com/m3rciful/notifybot/core/telegram"
	"github.com/m3rciful/notifybot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update    tele.Update
	store     map[string]any
	responses int
}

func textContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: 1, Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		}},
		store: make(map[string]any),
	}
}

func callbackContext(userID int64, unique, data string) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: 2, Callback: &tele.Callback{
			Sender: &tele.User{ID: userID},
			Unique: unique,
			Data:   data,
		}},
		store: make(map[string]any),
	}
}

func (f *fakeContext) Update() tele.Update { return f.update }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }

func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	return f.update.Message.Sender
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}

func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responses++
	return nil
}

type fakeFSM struct {
	active  bool
	handled bool
	calls   int
}

func (f *fakeFSM) InProgress(int64) bool { return f.active }

func (f *fakeFSM) Dispatch(tele.Context) (bool, error) {
	f.calls++
	return f.handled, nil
}

func route(routes []tg.Route, endpoint string) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestTextRoutesOrder(t *testing.T) {
	reg := tg.NewRegistry()
	var menu, unknown, preempted int
	if err := reg.RegisterText("Support", func(tele.Context) error { menu++; return nil }); err != nil {
		t.Fatal(err)
	}
	fsm := &fakeFSM{}
	routes := TextRoutes(fsm, reg, TextOptions{
		Preempt: func(c tele.Context) (bool, error) {
			if c.Text() == "group" {
				preempted++
				return true, nil
			}
			return false, nil
		},
		UnknownText: func(tele.Context) error { unknown++; return nil },
	})
	h := route(routes, tele.OnText)

	_ = h(textContext(1, "group"))
	_ = h(textContext(1, " Support "))
	_ = h(textContext(1, "hello"))
	if preempted != 1 || menu != 1 || unknown != 1 || fsm.calls != 0 {
		t.Fatalf("preempt=%d menu=%d unknown=%d fsm=%d", preempted, menu, unknown, fsm.calls)
	}

	fsm.active, fsm.handled = true, true
	_ = h(textContext(1, "Support"))
	if fsm.calls != 1 || menu != 1 {
		t.Fatalf("conversation did not take precedence: fsm=%d menu=%d", fsm.calls, menu)
	}

	fsm.handled = false
	_ = h(textContext(1, "Support"))
	if menu != 2 {
		t.Fatalf("unhandled state did not fall through to menu: menu=%d", menu)
	}
}

func TestCallbackRouteAnswersOnce(t *testing.T) {
	reg := tg.NewRegistry()
	want := errors.New("boom")
	_ = reg.RegisterCallback("plain", func(tele.Context) error { return want })
	_ = reg.RegisterCallback("toast", func(c tele.Context) error {
		callbacks.MarkAnswered(c)
		return c.Respond(&tele.CallbackResponse{Text: "done"})
	})
	h := CallbackRoute(reg, CallbackOptions{}).Handler

	c := callbackContext(1, "plain", "")
	if err := h(c); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	if c.responses != 1 {
		t.Fatalf("plain responses = %d", c.responses)
	}

	c = callbackContext(1, "toast", "")
	_ = h(c)
	if c.responses != 1 {
		t.Fatalf("toast responses = %d", c.responses)
	}

	c = callbackContext(1, "missing", "")
	_ = h(c)
	if c.responses != 1 {
		t.Fatalf("not-found responses = %d", c.responses)
	}
}

func TestDeriveErrorCode(t *testing.T) {
	type ticketError struct{ error }
	err := &ticketError{errors.New("x")}
	if got := deriveErrorCode(err); got != "TICKETERROR" {
		t.Fatalf("code = %q", got)
	}
	if got := deriveErrorCode(nil); got != "" {
		t.Fatalf("nil code = %q", got)
	}
}
