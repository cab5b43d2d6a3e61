// Package service implements the ticket, subscription and broadcast workflows.
package service

import "context"

// Messenger delivers messages to a chat outside of an update context.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
}
