package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m3rciful/notifybot/core/logger"
	"github.com/m3rciful/notifybot/internal/app"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot both stores and prune old backups",
	RunE:  runBackup,
}

func runBackup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg, app.Options{SkipSchema: true})
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()
	defer a.Close()

	snap, err := a.Backups.Create(cmd.Context())
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "backup created: %s (%s)\n", snap.Path, strings.Join(snap.Stores, ", "))
	return nil
}
