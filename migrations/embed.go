// Package migrations embeds the versioned schema for each store.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed tickets/*.sql subscribers/*.sql
var files embed.FS

// Tickets returns the migration files of the tickets store.
func Tickets() fs.FS { return sub("tickets") }

// Subscribers returns the migration files of the subscribers store.
func Subscribers() fs.FS { return sub("subscribers") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return f
}
