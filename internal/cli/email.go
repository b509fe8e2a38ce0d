package cli

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/spf13/cobra"
)

type emailOptions struct {
	to      string
	from    string
	subject string
	body    string
	html    string
	text    string
}

func newEmailCommand(root *rootOptions) *cobra.Command {
	opts := &emailOptions{}

	cmd := &cobra.Command{
		Use:   "email",
		Short: "Send an email through SendGrid",
		Long: `Send one email through SendGrid.

Environment:
  SENDGRID_API_KEY    SendGrid API key (required)
  NOTIFY_EMAIL_TO     Default recipient
  NOTIFY_EMAIL_FROM   Default sender`,
		Example: `  notify email --subject "Task Complete" --body "Your task is done!"
  notify email --to user@example.com --subject "Alert" --body "Check PR"
  notify email --subject "Report" --html "<h1>Done</h1>" --text "Done"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.subject) == "" {
				return fmt.Errorf("--subject is required")
			}
			if strings.TrimSpace(opts.body) == "" && strings.TrimSpace(opts.html) == "" {
				return fmt.Errorf("--body or --html is required")
			}

			rt, err := root.bootstrap(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}

			req := domain.Request{
				Subject:   opts.subject,
				Body:      opts.body,
				Recipient: strings.TrimSpace(opts.to),
				Sender:    strings.TrimSpace(opts.from),
			}

			ctx := commandContext(cmd.Context())
			var sendErr error
			if strings.TrimSpace(opts.html) != "" {
				req.HTML = opts.html
				if strings.TrimSpace(opts.text) != "" {
					req.Body = opts.text
				}
				_, sendErr = rt.email.SendHTMLEmail(ctx, req)
			} else {
				_, sendErr = rt.email.SendEmail(ctx, req)
			}

			closeErr := rt.close()
			if sendErr != nil {
				return fmt.Errorf("failed to send email: %w", sendErr)
			}
			if closeErr != nil {
				return closeErr
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Email sent successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.to, "to", "", "Recipient email (defaults to NOTIFY_EMAIL_TO)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Sender email (defaults to NOTIFY_EMAIL_FROM)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Email subject")
	cmd.Flags().StringVar(&opts.body, "body", "", "Plain-text body")
	cmd.Flags().StringVar(&opts.html, "html", "", "HTML body; sends a multipart message")
	cmd.Flags().StringVar(&opts.text, "text", "", "Plain-text alternative for --html (defaults to --body, then the stripped HTML)")

	return cmd
}
