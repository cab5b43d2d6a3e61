package state

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	user  *tele.User
	store map[string]any
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{user: &tele.User{ID: userID}, store: make(map[string]any)}
}

func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }
func (f *fakeContext) Sender() *tele.User { return f.user }
func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }

func TestSetStateKeepsDataWithinWorkflow(t *testing.T) {
	m := NewManager()
	m.SetState(1, New("ticket", "problem"))
	m.UpdateData(1, "problem", "Login fails")
	m.SetState(1, New("ticket", "description"))

	if got, ok := m.DataString(1, "problem"); !ok || got != "Login fails" {
		t.Fatalf("data lost inside workflow: %q %v", got, ok)
	}

	m.SetState(1, New("broadcast", "content"))
	if _, ok := m.DataString(1, "problem"); ok {
		t.Fatal("data survived a workflow switch")
	}
	if st := m.GetState(1); st.Workflow() != "broadcast" || st.Step() != "content" {
		t.Fatalf("unexpected state %q", st)
	}
}

func TestGetDataReturnsCopy(t *testing.T) {
	m := NewManager()
	if got := m.GetData(4); got == nil || len(got) != 0 {
		t.Fatalf("missing session data = %v", got)
	}
	m.UpdateData(4, "ticket_id", int64(12))
	data := m.GetData(4)
	data["ticket_id"] = int64(99)
	if id, _ := m.DataInt64(4, "ticket_id"); id != 12 {
		t.Fatalf("copy mutated session: %d", id)
	}
}

func TestClearReturnsIdle(t *testing.T) {
	m := NewManager()
	m.SetState(7, New("reset", "scope"))
	if !m.InProgress(7) {
		t.Fatal("expected user in progress")
	}
	m.Clear(7)
	if m.InProgress(7) || m.GetState(7) != StateIdle {
		t.Fatalf("state after clear = %q", m.GetState(7))
	}
	if StateIdle.String() != "idle" {
		t.Fatalf("idle renders as %q", StateIdle.String())
	}
}

func TestDataInt64AcceptsNumericForms(t *testing.T) {
	m := NewManager()
	m.UpdateData(1, "a", int64(5))
	m.UpdateData(1, "b", 6)
	m.UpdateData(1, "c", "7")
	m.UpdateData(1, "d", "x")

	for key, want := range map[string]int64{"a": 5, "b": 6, "c": 7} {
		if got, ok := m.DataInt64(1, key); !ok || got != want {
			t.Fatalf("%s = %d %v, want %d", key, got, ok, want)
		}
	}
	if _, ok := m.DataInt64(1, "d"); ok {
		t.Fatal("non-numeric string accepted")
	}
	if _, ok := m.DataInt64(2, "a"); ok {
		t.Fatal("missing session returned a value")
	}
}

func TestDispatchRunsHandlerForState(t *testing.T) {
	m := NewManager()
	st := New("ticket", "problem")
	var calls int
	m.Handle(st, func(tele.Context) error { calls++; return nil })

	c := newFakeContext(3)
	if handled, _ := m.Dispatch(c); handled {
		t.Fatal("idle user dispatched")
	}

	m.SetState(3, st)
	if handled, err := m.Dispatch(c); !handled || err != nil {
		t.Fatalf("dispatch = %v, %v", handled, err)
	}

	m.SetState(3, New("ticket", "description"))
	if handled, _ := m.Dispatch(c); handled {
		t.Fatal("state without handler dispatched")
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestRequireGatesOnState(t *testing.T) {
	m := NewManager()
	want := New("broadcast", "select_type")
	var passed, rejected int
	h := Require(m, func(tele.Context) error { rejected++; return nil }, want)(
		func(tele.Context) error { passed++; return nil },
	)

	c := newFakeContext(9)
	_ = h(c)
	m.SetState(9, want)
	_ = h(c)

	if passed != 1 || rejected != 1 {
		t.Fatalf("passed=%d rejected=%d", passed, rejected)
	}
}
