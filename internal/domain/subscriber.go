package domain

import "fmt"

// SubscriptionType is the subscriber class that decides which broadcasts reach a chat.
type SubscriptionType string

const (
	// SubscriptionAll receives every broadcast.
	SubscriptionAll SubscriptionType = "all"
	// SubscriptionUpdates receives only content updates.
	SubscriptionUpdates SubscriptionType = "updates"
)

// ParseSubscriptionType validates a stored or user supplied subscription type.
func ParseSubscriptionType(s string) (SubscriptionType, error) {
	switch SubscriptionType(s) {
	case SubscriptionAll, SubscriptionUpdates:
		return SubscriptionType(s), nil
	}
	return "", fmt.Errorf("unknown subscription type %q", s)
}

// Label is the human readable name shown in the subscription menu.
func (t SubscriptionType) Label() string {
	switch t {
	case SubscriptionAll:
		return "All notifications"
	case SubscriptionUpdates:
		return "Content updates only"
	}
	return "Unknown subscription"
}

// Subscriber is one row of the subscribers store. No row means not subscribed.
type Subscriber struct {
	ChatID           int64            `db:"chat_id"`
	Username         *string          `db:"username"`
	SubscriptionType SubscriptionType `db:"subscription_type"`
}

// Audience selects the subscriber classes a broadcast reaches.
type Audience string

const (
	// AudienceUpdates reaches subscribers of both classes.
	AudienceUpdates Audience = "updates"
	// AudienceFixes reaches only subscribers of "all".
	AudienceFixes Audience = "fixes"
)

// ParseAudience validates an audience token.
func ParseAudience(s string) (Audience, error) {
	switch Audience(s) {
	case AudienceUpdates, AudienceFixes:
		return Audience(s), nil
	}
	return "", fmt.Errorf("unknown audience %q", s)
}

// Classes returns the subscription types included in the audience.
func (a Audience) Classes() []SubscriptionType {
	switch a {
	case AudienceUpdates:
		return []SubscriptionType{SubscriptionAll, SubscriptionUpdates}
	case AudienceFixes:
		return []SubscriptionType{SubscriptionAll}
	}
	return nil
}
