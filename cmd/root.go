package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teemow/slotbot/internal/config"
	"github.com/teemow/slotbot/internal/logging"
)

var envFile string

// rootCmd represents the base command for the slotbot application
var rootCmd = &cobra.Command{
	Use:   "slotbot",
	Short: "Conversational appointment booking on Google Calendar",
	Long: `slotbot answers natural-language booking requests such as
"Book a meeting with my friend at 3:00 pm on 04-07-2025 for 2 hours".
It checks a Google Calendar for conflicts and books the slot if it is free.

It can run as:
  - An HTTP chat API (POST /chat), optionally with an MCP endpoint
  - An MCP (Model Context Protocol) server over stdio
  - A terminal client for a running backend (chat) or in-process (ask)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadDotEnv(envFileList()...); err != nil {
			return err
		}
		v, err := newViper(cmd, nil)
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(v))
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "slotbot version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging. Can also use DEBUG env var.")
	rootCmd.PersistentFlags().String("log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: .env if present)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func envFileList() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}

// commonFlagKeys maps the persistent flags to config keys.
var commonFlagKeys = map[string]string{
	"debug":      config.KeyDebug,
	"log-format": config.KeyLogFormat,
}

// newViper returns a viper instance with the command's flags bound. Flags
// in keys are bound in addition to the common ones.
func newViper(cmd *cobra.Command, keys map[string]string) (*viper.Viper, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags(), commonFlagKeys); err != nil {
		return nil, err
	}
	if err := config.BindFlags(v, cmd.Flags(), keys); err != nil {
		return nil, err
	}
	return v, nil
}

// loadConfig loads the configuration for cmd.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	v, err := newViper(cmd, keys)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes to stderr so that stdout stays free for MCP stdio and
// command output.
func newLogger(v *viper.Viper) *slog.Logger {
	level := slog.LevelInfo
	if v.GetBool(config.KeyDebug) {
		level = slog.LevelDebug
	}
	return logging.NewLogger(os.Stderr, level, v.GetString(config.KeyLogFormat))
}
