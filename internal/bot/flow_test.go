package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	coredatabase "github.com/m3rciful/notifybot/core/database"
	tg "github.com/m3rciful/notifybot/core/telegram"
	"github.com/m3rciful/notifybot/internal/backup"
	"github.com/m3rciful/notifybot/internal/service"
	"github.com/m3rciful/notifybot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

const (
	adminID = 1
	groupID = -100
)

type outMsg struct {
	chat   int64
	text   string
	markup *tele.ReplyMarkup
}

// recorder collects everything handlers send back through contexts.
type recorder struct {
	sent    []outMsg
	toasts  []string
	deleted int
}

type fakeContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
	rec   *recorder
}

func (f *fakeContext) Update() tele.Update { return f.upd }
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }

func (f *fakeContext) Message() *tele.Message {
	if f.upd.Callback != nil {
		return f.upd.Callback.Message
	}
	return f.upd.Message
}

func (f *fakeContext) Sender() *tele.User {
	if f.upd.Callback != nil {
		return f.upd.Callback.Sender
	}
	if f.upd.Message != nil {
		return f.upd.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if m := f.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if m := f.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (f *fakeContext) Send(what any, opts ...any) error {
	out := outMsg{chat: f.Chat().ID}
	switch v := what.(type) {
	case string:
		out.text = v
	case *tele.Photo:
		out.text = v.Caption
	}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			out.markup = so.ReplyMarkup
		}
	}
	f.rec.sent = append(f.rec.sent, out)
	return nil
}

func (f *fakeContext) EditOrSend(what any, opts ...any) error { return f.Send(what, opts...) }

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 && resp[0] != nil {
		f.rec.toasts = append(f.rec.toasts, resp[0].Text)
	}
	return nil
}

func (f *fakeContext) Delete() error {
	f.rec.deleted++
	return nil
}

type delivered struct {
	chat  int64
	text  string
	photo string
}

type fakeMessenger struct {
	mu  sync.Mutex
	out []delivered
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, delivered{chat: chatID, text: text})
	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, delivered{chat: chatID, text: caption, photo: fileID})
	return nil
}

type harness struct {
	t      *testing.T
	bot    *Bot
	routes map[any]tele.HandlerFunc
	rec    *recorder
	msg    *fakeMessenger
	nextID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	stores := coredatabase.NewManager(storage.Stores(filepath.Join(dir, "tickets.db"), filepath.Join(dir, "subscribers.db"), 0)...)
	t.Cleanup(func() { _ = stores.CloseAll() })
	if err := stores.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	msg := &fakeMessenger{}
	subs := storage.NewSubscriberRepo(stores)
	b := New(Deps{
		Tickets:       service.NewTickets(storage.NewTicketRepo(stores), msg, adminID),
		Subscriptions: service.NewSubscriptions(subs),
		Broadcaster:   service.NewBroadcaster(subs, msg),
		Backups:       backup.NewManager(stores, backup.Options{Dir: filepath.Join(dir, "backups")}),
		AdminID:       adminID,
		GroupID:       groupID,
		Version:       "3.01",
		AboutText:     "about",
		LogPath:       filepath.Join(dir, "missing.log"),
	})
	reg := tg.NewRegistry()
	if err := b.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	h := &harness{t: t, bot: b, routes: make(map[any]tele.HandlerFunc), rec: &recorder{}, msg: msg}
	for _, r := range b.Routes(reg) {
		h.routes[r.Endpoint] = r.Handler
	}
	return h
}

func (h *harness) ctx(upd tele.Update) *fakeContext {
	h.nextID++
	upd.ID = h.nextID
	return &fakeContext{upd: upd, store: make(map[string]any), rec: h.rec}
}

func privateMsg(user int64, text string) *tele.Message {
	return &tele.Message{
		ID:     1,
		Sender: &tele.User{ID: user, Username: "tester"},
		Chat:   &tele.Chat{ID: user, Type: tele.ChatPrivate},
		Text:   text,
	}
}

// text sends a message and returns the texts replied in that update.
func (h *harness) text(user int64, text string) []string {
	h.t.Helper()
	endpoint := any(tele.OnText)
	if strings.HasPrefix(text, "/") {
		endpoint = text
	}
	return h.run(endpoint, tele.Update{Message: privateMsg(user, text)})
}

func (h *harness) press(user int64, unique, data string) []string {
	h.t.Helper()
	cb := &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: user},
		Message: privateMsg(user, ""),
		Unique:  unique,
		Data:    data,
	}
	return h.run(tele.OnCallback, tele.Update{Callback: cb})
}

func (h *harness) run(endpoint any, upd tele.Update) []string {
	h.t.Helper()
	handler, ok := h.routes[endpoint]
	if !ok {
		h.t.Fatalf("no route for %v", endpoint)
	}
	before := len(h.rec.sent)
	if err := handler(h.ctx(upd)); err != nil {
		h.t.Fatalf("handler %v: %v", endpoint, err)
	}
	var out []string
	for _, m := range h.rec.sent[before:] {
		out = append(out, m.text)
	}
	return out
}

func (h *harness) lastToast() string {
	if len(h.rec.toasts) == 0 {
		return ""
	}
	return h.rec.toasts[len(h.rec.toasts)-1]
}

func expectText(t *testing.T, got []string, want string) {
	t.Helper()
	for _, g := range got {
		if strings.Contains(g, want) {
			return
		}
	}
	t.Fatalf("replies %q do not contain %q", got, want)
}

func TestTicketScenario(t *testing.T) {
	h := newHarness(t)
	const user = 200

	expectText(t, h.text(user, "/start"), textWelcome)
	expectText(t, h.text(user, LabelSupport), textSupportMenu)
	expectText(t, h.press(user, string(ActionSendTicket), ""), textAskProblem)
	expectText(t, h.text(user, "Login fails"), textAskDescription)
	expectText(t, h.text(user, "Error 500 on submit"), textSubmitted)

	if len(h.msg.out) != 1 || h.msg.out[0].chat != adminID {
		t.Fatalf("admin notifications = %+v", h.msg.out)
	}
	notice := h.msg.out[0].text
	for _, want := range []string{"Problem: Login fails", "Description: Error 500 on submit", "Ticket ID: 1"} {
		if !strings.Contains(notice, want) {
			t.Fatalf("admin notice %q lacks %q", notice, want)
		}
	}

	replies := h.press(adminID, string(ActionViewUnresolved), "")
	expectText(t, replies, "Ticket ID: 1")
	last := h.rec.sent[len(h.rec.sent)-1]
	btn := last.markup.InlineKeyboard[0][0]
	if btn.Unique != string(ActionTicketResolve) || btn.Data != "1" {
		t.Fatalf("resolve button = %+v", btn)
	}

	expectText(t, h.press(adminID, btn.Unique, btn.Data), textAskResolution)
	expectText(t, h.text(adminID, "Fixed in v3.01"), textResolved)

	got := h.msg.out[len(h.msg.out)-1]
	if got.chat != user ||
		!strings.Contains(got.text, "Your ticket (ID: 1, Problem: Login fails) has been updated to 'Resolved'.") ||
		!strings.Contains(got.text, "Response from admin: Fixed in v3.01") {
		t.Fatalf("user notification = %+v", got)
	}

	replies = h.press(user, string(ActionViewTickets), "")
	expectText(t, replies, "Status: Resolved")
	expectText(t, replies, "Response: Fixed in v3.01")

	h.press(adminID, string(ActionViewUnresolved), "")
	if h.lastToast() != textNoUnresolved {
		t.Fatalf("toast = %q", h.lastToast())
	}
	expectText(t, h.press(adminID, string(ActionViewResolved), ""), "Resolved Tickets:")
}

func TestSubscribeAndBroadcast(t *testing.T) {
	h := newHarness(t)

	h.press(10, string(ActionSubscribeAll), "")
	if h.lastToast() != textSubscribedAll || h.rec.deleted != 1 {
		t.Fatalf("toast=%q deleted=%d", h.lastToast(), h.rec.deleted)
	}
	h.press(20, string(ActionSubscribeUpdates), "")
	expectText(t, h.text(20, LabelSubscribe), "Current subscription: Content updates only")

	expectText(t, h.press(adminID, string(ActionSendBroadcast), ""), textSelectAudience)
	expectText(t, h.press(adminID, string(ActionBroadcastFixes), ""), textAskContent)
	expectText(t, h.text(adminID, "Hotfix released"), "Delivered: 1")

	if len(h.msg.out) != 1 || h.msg.out[0].chat != 10 || h.msg.out[0].text != "Hotfix released" {
		t.Fatalf("fixes deliveries = %+v", h.msg.out)
	}

	h.press(20, string(ActionUnsubscribe), "")
	if h.lastToast() != textUnsubscribed {
		t.Fatalf("toast = %q", h.lastToast())
	}
	expectText(t, h.text(20, LabelSubscribe), "Current subscription: No subscription")
}

func TestAudienceButtonRequiresSelectionStep(t *testing.T) {
	h := newHarness(t)
	h.press(adminID, string(ActionBroadcastUpdate), "")
	if h.lastToast() != textExpiredButton {
		t.Fatalf("toast = %q", h.lastToast())
	}
}

func TestAdminActionsRejectOthers(t *testing.T) {
	h := newHarness(t)
	expectText(t, h.text(5, LabelAdmin), textUnauthorized)
	h.press(5, string(ActionStats), "")
	if h.lastToast() != textUnauthAction {
		t.Fatalf("toast = %q", h.lastToast())
	}
	expectText(t, h.press(adminID, string(ActionStats), ""), "Bot Version: 3.01")
}

func TestInvalidTicketCallback(t *testing.T) {
	h := newHarness(t)
	h.press(adminID, string(ActionTicketProgress), "not-a-number")
	if h.lastToast() != textInvalidButton {
		t.Fatalf("toast = %q", h.lastToast())
	}
	h.press(adminID, string(ActionTicketProgress), "42")
	if h.lastToast() != textTicketMissing {
		t.Fatalf("toast = %q", h.lastToast())
	}
}

func TestCancelAbandonsTicket(t *testing.T) {
	h := newHarness(t)
	h.press(30, string(ActionSendTicket), "")
	expectText(t, h.text(30, "/cancel"), textCancelled)
	expectText(t, h.text(30, "Login fails"), textUnknown)
}

func TestResetTicketsRestartsIDs(t *testing.T) {
	h := newHarness(t)
	h.press(40, string(ActionSendTicket), "")
	h.text(40, "p")
	h.text(40, "d")

	expectText(t, h.press(adminID, string(ActionReset), ""), textResetScope)
	h.press(adminID, string(ActionResetTickets), "")
	if h.lastToast() != textResetTickets {
		t.Fatalf("toast = %q", h.lastToast())
	}

	h.press(40, string(ActionSendTicket), "")
	h.text(40, "again")
	h.text(40, "d")
	if notice := h.msg.out[len(h.msg.out)-1].text; !strings.Contains(notice, "Ticket ID: 1") {
		t.Fatalf("notice after reset = %q", notice)
	}
}

func TestBackupConfirm(t *testing.T) {
	h := newHarness(t)
	expectText(t, h.press(adminID, string(ActionBackup), ""), textBackupPrompt)
	expectText(t, h.press(adminID, string(ActionBackupConfirm), ""), "Backup created:")

	h.press(adminID, string(ActionBackupConfirm), "")
	if h.lastToast() != textExpiredButton {
		t.Fatalf("second confirm toast = %q", h.lastToast())
	}
}

func TestGroupPostBroadcasts(t *testing.T) {
	h := newHarness(t)
	h.press(10, string(ActionSubscribeUpdates), "")

	post := &tele.Message{
		ID:     9,
		Sender: &tele.User{ID: 77},
		Chat:   &tele.Chat{ID: groupID, Type: tele.ChatSuperGroup},
		Text:   "Update\nNew chapter is live",
	}
	if replies := h.run(tele.OnText, tele.Update{Message: post}); len(replies) != 0 {
		t.Fatalf("group post got replies %q", replies)
	}
	if len(h.msg.out) != 1 || h.msg.out[0].chat != 10 || h.msg.out[0].text != "New chapter is live" {
		t.Fatalf("group deliveries = %+v", h.msg.out)
	}

	post.Text = "just chatting"
	h.run(tele.OnText, tele.Update{Message: post})
	if len(h.msg.out) != 1 {
		t.Fatalf("plain group message was broadcast: %+v", h.msg.out)
	}
}
