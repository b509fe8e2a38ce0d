package cli

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/spf13/cobra"
)

type whatsAppOptions struct {
	provider string
	to       string
}

func newWhatsAppCommand(root *rootOptions) *cobra.Command {
	opts := &whatsAppOptions{}

	cmd := &cobra.Command{
		Use:   "whatsapp [flags] <message...>",
		Short: "Send a WhatsApp message through Twilio or CallMeBot",
		Long: `Send one WhatsApp message. Twilio is tried first and CallMeBot is used
when Twilio is not configured or fails. --provider sends through one provider
only, without fallback.

Environment:
  TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_WHATSAPP_FROM, NOTIFY_WHATSAPP_TO
  CALLMEBOT_PHONE, CALLMEBOT_APIKEY`,
		Example: `  notify whatsapp "Hello from Clawdbot!"
  notify whatsapp --provider twilio "Task complete"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("message is required")
			}

			var forced domain.ProviderName
			if strings.TrimSpace(opts.provider) != "" {
				name, err := domain.ParseWhatsAppProvider(opts.provider)
				if err != nil {
					return err
				}
				forced = name
			}

			rt, err := root.bootstrap(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}

			req := domain.Request{Body: message, Recipient: strings.TrimSpace(opts.to)}
			ctx := commandContext(cmd.Context())

			var result *domain.Result
			if forced != "" {
				result, err = rt.whatsapp.DispatchVia(ctx, forced, req)
			} else {
				result, err = rt.whatsapp.Dispatch(ctx, req)
			}

			closeErr := rt.close()
			if err != nil {
				return fmt.Errorf("failed to send WhatsApp: %w", err)
			}
			if closeErr != nil {
				return closeErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "WhatsApp message sent successfully via %s\n", result.Provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.provider, "provider", "", "Force a provider (twilio or callmebot)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Recipient number (defaults to NOTIFY_WHATSAPP_TO; Twilio only)")

	return cmd
}
