package main

import (
	"fmt"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/notifybot/core/cmd"
	"github.com/m3rciful/notifybot/core/buildinfo"
	"github.com/m3rciful/notifybot/internal/app"
	"github.com/m3rciful/notifybot/internal/config"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "notifybot",
	Short:         "Telegram bot for subscriptions, support tickets and broadcasts",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot until interrupted",
	RunE:  runBot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH or config.yaml)")
	rootCmd.AddCommand(runCmd, migrateCmd, backupCmd, versionCmd)
}

func runBot(_ *cobra.Command, _ []string) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
}

func loadConfig() (*config.AppConfig, error) {
	path := corecmd.ResolveConfigPath(configPath, configEnvVar, defaultConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
