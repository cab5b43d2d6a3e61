// Package storage holds the repositories for the tickets and subscribers stores.
package storage

import (
	coredatabase "github.com/m3rciful/notifybot/core/database"
	"github.com/m3rciful/notifybot/migrations"
)

const (
	// TicketsStore is the store name of the tickets database file.
	TicketsStore = "tickets"
	// SubscribersStore is the store name of the subscribers database file.
	SubscribersStore = "subscribers"
)

// Stores returns the store definitions for both database files, including the
// username column migrations for files created before that column existed.
func Stores(ticketsPath, subscribersPath string, busyTimeoutMS int) []coredatabase.StoreConfig {
	return []coredatabase.StoreConfig{
		{
			Name:          TicketsStore,
			Path:          ticketsPath,
			BusyTimeoutMS: busyTimeoutMS,
			Migrations:    migrations.Tickets(),
			Columns: []coredatabase.ColumnMigration{{
				Table:  "tickets",
				Column: "username",
				Definition: "id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER, username TEXT, " +
					"problem TEXT, description TEXT, status TEXT DEFAULT 'Unresolved', response TEXT",
				Copy: []string{"id", "user_id", "problem", "description", "status", "response"},
			}},
		},
		{
			Name:          SubscribersStore,
			Path:          subscribersPath,
			BusyTimeoutMS: busyTimeoutMS,
			Migrations:    migrations.Subscribers(),
			Columns: []coredatabase.ColumnMigration{{
				Table:      "subscribers",
				Column:     "username",
				Definition: "chat_id INTEGER PRIMARY KEY, username TEXT, subscription_type TEXT",
				Copy:       []string{"chat_id", "subscription_type"},
			}},
		},
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
