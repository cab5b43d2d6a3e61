package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "reply_counters"

// replyCounters tracks how many messages a handler produced and whether any carried a keyboard.
type replyCounters struct {
	mu       sync.Mutex
	messages int
	kb       bool
}

func (rc *replyCounters) add(kb bool) {
	rc.mu.Lock()
	rc.messages++
	rc.kb = rc.kb || kb
	rc.mu.Unlock()
}

// countingContext wraps tele.Context so outgoing messages update replyCounters.
type countingContext struct {
	tele.Context
	rc *replyCounters
}

func (c countingContext) track(err error, opts []any) error {
	if err == nil {
		c.rc.add(hasKeyboard(opts))
	}
	return err
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.track(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.track(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.track(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.track(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.track(c.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware counts replies so handler summaries can report them.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		rc := &replyCounters{}
		c.Set(countersKey, rc)
		return next(countingContext{Context: c, rc: rc})
	}
}

// GetCounters returns the number of replies sent so far and whether any had a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	rc, ok := c.Get(countersKey).(*replyCounters)
	if !ok || rc == nil {
		return 0, false
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.messages, rc.kb
}
