package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiawesome/campus-live/chat-client/internal/config"
	pkgconfig "github.com/weiawesome/campus-live/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "campus-chat",
	Short: "Terminal client for campus-live chat rooms",
	Long: `campus-chat logs in to api-service, joins a chat room over the realtime
transport and renders messages, presence and typing in the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files loaded before configuration")
	rootCmd.PersistentFlags().String("api", "", "api-service base URL (overrides api.base_url)")
}

// loadConfig loads env files, then configuration, then applies flag
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if err := pkgconfig.LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.API.BaseURL = api
	}
	return cfg, nil
}
