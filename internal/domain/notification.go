package domain

import (
	"fmt"
	"strings"
)

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
)

func (c Channel) String() string { return string(c) }

// ProviderName identifies a third-party messaging provider.
type ProviderName string

const (
	ProviderSendGrid  ProviderName = "sendgrid"
	ProviderTwilio    ProviderName = "twilio"
	ProviderCallMeBot ProviderName = "callmebot"
)

func (p ProviderName) String() string { return string(p) }

func (p ProviderName) Channel() Channel {
	switch p {
	case ProviderSendGrid:
		return ChannelEmail
	case ProviderTwilio, ProviderCallMeBot:
		return ChannelWhatsApp
	}
	return ""
}

// ParseWhatsAppProvider accepts the provider names a caller may force for WhatsApp delivery.
func ParseWhatsAppProvider(s string) (ProviderName, error) {
	p := ProviderName(strings.ToLower(strings.TrimSpace(s)))
	if p.Channel() != ChannelWhatsApp {
		return "", fmt.Errorf("%w: unknown WhatsApp provider %q", ErrValidation, s)
	}
	return p, nil
}

// Request is a single notification to deliver. Subject and HTML only apply to email.
type Request struct {
	Subject   string
	Body      string
	HTML      string
	Recipient string
	Sender    string
}

func (r Request) Validate(channel Channel) error {
	switch channel {
	case ChannelEmail:
		if strings.TrimSpace(r.Subject) == "" {
			return fmt.Errorf("%w: subject is required", ErrValidation)
		}
		if strings.TrimSpace(r.Body) == "" && strings.TrimSpace(r.HTML) == "" {
			return fmt.Errorf("%w: body is required", ErrValidation)
		}
	case ChannelWhatsApp:
		if strings.TrimSpace(r.Body) == "" {
			return fmt.Errorf("%w: message is required", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, channel)
	}
	return nil
}

// Result is the outcome of a successful delivery attempt.
type Result struct {
	Provider   ProviderName
	StatusCode int
	MessageID  string
	// Raw is the provider payload: decoded JSON for Twilio, body text for CallMeBot, nil for SendGrid.
	Raw any
}
