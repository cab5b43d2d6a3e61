package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	coredatabase "github.com/m3rciful/notifybot/core/database"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/storage"
)

type sent struct {
	chatID int64
	text   string
	photo  string
}

type fakeMessenger struct {
	mu   sync.Mutex
	out  []sent
	fail map[int64]bool
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	return f.record(sent{chatID: chatID, text: text})
}

func (f *fakeMessenger) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	return f.record(sent{chatID: chatID, text: caption, photo: fileID})
}

func (f *fakeMessenger) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[s.chatID] {
		return errors.New("blocked by user")
	}
	f.out = append(f.out, s)
	return nil
}

func newStores(t *testing.T) *coredatabase.Manager {
	t.Helper()
	dir := t.TempDir()
	m := coredatabase.NewManager(storage.Stores(filepath.Join(dir, "tickets.db"), filepath.Join(dir, "subscribers.db"), 0)...)
	t.Cleanup(func() { _ = m.CloseAll() })
	if err := m.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return m
}

func TestTicketWorkflowNotifies(t *testing.T) {
	ctx := context.Background()
	msg := &fakeMessenger{}
	svc := NewTickets(storage.NewTicketRepo(newStores(t)), msg, 1)

	tk, err := svc.Submit(ctx, 50, "carol", "Login fails", "Error 500 on submit")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(msg.out) != 1 || msg.out[0].chatID != 1 {
		t.Fatalf("admin notice = %+v", msg.out)
	}
	for _, want := range []string{"Problem: Login fails", "Description: Error 500 on submit", "Ticket ID: 1", "@carol"} {
		if !strings.Contains(msg.out[0].text, want) {
			t.Fatalf("admin notice %q lacks %q", msg.out[0].text, want)
		}
	}

	if _, err := svc.Resolve(ctx, tk.ID, "Fixed in v3.01"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	last := msg.out[len(msg.out)-1]
	if last.chatID != 50 || !strings.Contains(last.text, "'Resolved'") || !strings.Contains(last.text, "Response from admin: Fixed in v3.01") {
		t.Fatalf("user notice = %+v", last)
	}

	resolved, err := svc.ListResolved(ctx)
	if err != nil || len(resolved) != 1 {
		t.Fatalf("resolved = %v, %v", resolved, err)
	}
	open, _ := svc.ListUnresolved(ctx)
	if len(open) != 0 {
		t.Fatalf("unresolved = %v", open)
	}
}

func TestTicketNotificationFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	msg := &fakeMessenger{fail: map[int64]bool{50: true}}
	svc := NewTickets(storage.NewTicketRepo(newStores(t)), msg, 1)

	tk, _ := svc.Submit(ctx, 50, "", "p", "d")
	tk, err := svc.SetInProgress(ctx, tk.ID)
	if err != nil {
		t.Fatalf("in progress: %v", err)
	}
	if tk.Status != domain.TicketInProgress {
		t.Fatalf("status = %q", tk.Status)
	}
	if _, err := svc.SetInProgress(ctx, 404); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
}

func TestBroadcastCountsFailures(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	subs := NewSubscriptions(storage.NewSubscriberRepo(stores))
	_ = subs.Subscribe(ctx, 1, "", domain.SubscriptionAll)
	_ = subs.Subscribe(ctx, 2, "", domain.SubscriptionUpdates)
	_ = subs.Subscribe(ctx, 3, "", domain.SubscriptionAll)

	msg := &fakeMessenger{fail: map[int64]bool{3: true}}
	b := NewBroadcaster(storage.NewSubscriberRepo(stores), msg)
	var observed int
	b.OnDelivery = func(domain.Audience, error) { observed++ }

	res, err := b.Broadcast(ctx, domain.AudienceUpdates, Content{Text: "v2 is out"})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if res != (Result{Total: 3, Sent: 2, Failed: 1}) || observed != 3 {
		t.Fatalf("result = %+v observed=%d", res, observed)
	}

	msg.out = nil
	res, _ = b.Broadcast(ctx, domain.AudienceFixes, Content{Text: "fix", PhotoID: "file-1"})
	if res.Total != 2 || res.Sent != 1 || len(msg.out) != 1 || msg.out[0].photo != "file-1" {
		t.Fatalf("fixes result = %+v sent=%+v", res, msg.out)
	}

	if _, err := b.Broadcast(ctx, domain.AudienceFixes, Content{}); !errors.Is(err, domain.ErrEmptyBroadcast) {
		t.Fatalf("empty err = %v", err)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriptions(storage.NewSubscriberRepo(newStores(t)))
	_ = subs.Subscribe(ctx, 9, "dan", domain.SubscriptionAll)
	for i := 0; i < 2; i++ {
		if err := subs.Unsubscribe(ctx, 9); err != nil {
			t.Fatalf("unsubscribe #%d: %v", i, err)
		}
	}
	cur, err := subs.Current(ctx, 9)
	if err != nil || cur != nil {
		t.Fatalf("current = %+v, %v", cur, err)
	}
}

func TestSubscribeRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriptions(storage.NewSubscriberRepo(newStores(t)))
	if err := subs.Subscribe(ctx, 9, "dan", domain.SubscriptionType("weekly")); err == nil {
		t.Fatal("expected error for unknown subscription type")
	}
	if cur, _ := subs.Current(ctx, 9); cur != nil {
		t.Fatalf("row stored for rejected type: %+v", cur)
	}
}

func TestParseGroupPost(t *testing.T) {
	tests := []struct {
		in       string
		audience domain.Audience
		body     string
		ok       bool
	}{
		{"Update\nNew lessons", domain.AudienceUpdates, "New lessons", true},
		{"Fixes \nTypo fixed", domain.AudienceFixes, "Typo fixed", true},
		{"Update", domain.AudienceUpdates, "", true},
		{"update\nlowercase", "", "", false},
		{"Hello\nUpdate", "", "", false},
	}
	for _, tt := range tests {
		a, body, ok := ParseGroupPost(tt.in)
		if a != tt.audience || body != tt.body || ok != tt.ok {
			t.Errorf("ParseGroupPost(%q) = %q, %q, %v", tt.in, a, body, ok)
		}
	}
}
