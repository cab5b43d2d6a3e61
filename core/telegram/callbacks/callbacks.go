// Package callbacks decodes the unique|payload pairs telebot puts into inline button data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// answeredKey marks a callback that already got an answer during this update.
const answeredKey = "cb_answered"

// Parse returns the button unique key and its payload.
// telebot fills Unique itself for \f-prefixed data; raw data is split here.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// Key returns the unique key of the update's callback, or "".
func Key(c tele.Context) string {
	k, _ := Parse(c.Callback())
	return k
}

// MarkAnswered records that the callback query has been answered.
func MarkAnswered(c tele.Context) {
	c.Set(answeredKey, true)
}

// Answered reports whether MarkAnswered ran for this update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
