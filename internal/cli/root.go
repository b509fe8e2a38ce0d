// Package cli wires the notify command line: one-shot email and WhatsApp
// sends, and the long-running HTTP server.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

type rootOptions struct {
	envFile     string
	metricsFile string
	logLevel    string
	logFormat   string
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send email and WhatsApp notifications",
		Long: `notify delivers single notifications through SendGrid (email) and
Twilio or CallMeBot (WhatsApp). Twilio is tried first; CallMeBot is used when
Twilio is not configured or fails.

Credentials are read from the environment, optionally merged from an env file.`,
		Example: `  notify email --subject "Task Complete" --body "Your task is done!"
  notify email --to user@example.com --subject "Alert" --html "<b>Check PR</b>"
  notify whatsapp "Hello from Clawdbot!"
  notify whatsapp --provider twilio "Task complete"
  notify serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile, "Env file merged into the environment (existing variables win)")
	cmd.PersistentFlags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the command")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "json", "Log encoding (json or console)")

	cmd.AddCommand(
		newEmailCommand(opts),
		newWhatsAppCommand(opts),
		newServeCommand(opts),
	)

	return cmd
}

// Execute runs the command tree and prints any failure to stderr.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}
