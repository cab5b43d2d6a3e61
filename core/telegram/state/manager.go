package state

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/m3rciful/notifybot/core/logger"
	tghelpers "github.com/m3rciful/notifybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Manager is an in-memory session store with a per-instance handler table.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	handlersMu sync.RWMutex
	handlers   map[State]tele.HandlerFunc
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// SetState moves the user to st, creating the session if needed.
// Entering a different workflow drops the scratch data of the previous one.
func (m *Manager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session{Data: make(map[string]any)}
		m.sessions[userID] = sess
	} else if sess.State.Workflow() != st.Workflow() {
		sess.Data = make(map[string]any)
	}
	sess.State = st
}

// GetState returns the current state of a user, or StateIdle.
func (m *Manager) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess.State
	}
	return StateIdle
}

// InProgress reports whether the user is inside a workflow.
func (m *Manager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// UpdateData merges key=value into the user's scratch data.
func (m *Manager) UpdateData(userID int64, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session{Data: make(map[string]any)}
		m.sessions[userID] = sess
	}
	sess.Data[key] = value
}

// GetData returns a copy of the user's scratch data; nil session yields an empty map.
func (m *Manager) GetData(userID int64) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any)
	if sess, ok := m.sessions[userID]; ok {
		for k, v := range sess.Data {
			out[k] = v
		}
	}
	return out
}

// DataString returns a string value stored under key.
func (m *Manager) DataString(userID int64, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return "", false
	}
	s, ok := sess.Data[key].(string)
	return s, ok
}

// DataInt64 returns an integer value stored under key; numeric strings are accepted.
func (m *Manager) DataInt64(userID int64, key string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return 0, false
	}
	switch v := sess.Data[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Clear removes the entire session for a user.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Handle registers the handler run by Dispatch for users in st.
func (m *Manager) Handle(st State, h tele.HandlerFunc) {
	if h == nil || st == StateIdle {
		return
	}
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[st] = h
}

// Dispatch runs the handler registered for the sender's current state.
// It reports false when the user is idle or the state has no handler.
func (m *Manager) Dispatch(c tele.Context) (bool, error) {
	user := c.Sender()
	if user == nil {
		return false, nil
	}
	current := m.GetState(user.ID)
	if current == StateIdle {
		return false, nil
	}

	m.handlersMu.RLock()
	h, ok := m.handlers[current]
	m.handlersMu.RUnlock()

	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.dispatch",
		slog.String("status", logger.Status(nil)),
		slog.String("state", current.String()),
		slog.Bool("handled", ok),
	)
	if !ok {
		return false, nil
	}
	return true, h(c)
}
