package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/slotbot/internal/assistant"
	"github.com/teemow/slotbot/internal/instrumentation"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Handle a single message without a server",
		Long: `Run a single message through the assistant in-process and print the reply.
This talks to Google Calendar and the LLM directly, using the same
configuration as "slotbot serve".

Example:
  slotbot ask "Is 3:00 pm on 04-07-2025 free?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			logger := slog.Default()
			d, err := newDispatcher(ctx, cfg, nil, instrumentation.NewAuditLoggerWithConfig(logger, cfg.Instrumentation.AuditLogging), logger)
			if err != nil {
				return err
			}

			reply := d.Handle(ctx, assistant.Request{
				Message:   strings.Join(args, " "),
				SessionID: uuid.NewString(),
			})
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().String("calendar-id", "", "Google Calendar id to book on. Can also use CALENDAR_ID env var.")
	cmd.Flags().String("credentials", "", "Path to the service account credentials file. Can also use GOOGLE_SERVICE_JSON env var.")
	cmd.Flags().String("timezone", "", "Timezone for times given without offset. Can also use DEFAULT_TIMEZONE env var.")
	cmd.Flags().String("intent-classifier", "llm", "Intent classifier: llm or keyword. Can also use INTENT_CLASSIFIER env var.")

	return cmd
}
