package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/config"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
)

const (
	// DefaultTwilioFrom is the Twilio WhatsApp sandbox number.
	DefaultTwilioFrom = "whatsapp:+14155238886"

	EnvTwilioAccountSID = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvTwilioFrom       = "TWILIO_WHATSAPP_FROM"
	EnvWhatsAppTo       = "NOTIFY_WHATSAPP_TO"
)

// TwilioFields lists the Twilio credentials in resolution order.
var TwilioFields = []config.Field{
	{Key: "accountSid", Env: EnvTwilioAccountSID, Required: true},
	{Key: "authToken", Env: EnvTwilioAuthToken, Required: true},
	{Key: "to", Env: EnvWhatsAppTo},
	{Key: "from", Env: EnvTwilioFrom},
}

// Twilio delivers WhatsApp messages through the Twilio Messages API.
type Twilio struct {
	client   *resty.Client
	baseURL  string
	resolver *config.Resolver
}

func NewTwilio(client *resty.Client, baseURL string, resolver *config.Resolver) (*Twilio, error) {
	client, err := prepareClient(client)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, fmt.Errorf("credential resolver is required")
	}

	return &Twilio{client: client, baseURL: normalized, resolver: resolver}, nil
}

func (p *Twilio) Name() domain.ProviderName { return domain.ProviderTwilio }

func (p *Twilio) Resolve(req domain.Request) (config.Credentials, error) {
	creds, err := p.resolver.Resolve(p.Name().String(), TwilioFields)
	if err != nil {
		return nil, configMissing(p.Name(), err)
	}
	return p.withNumbers(req, creds)
}

func (p *Twilio) Send(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	for _, field := range TwilioFields[:2] {
		if creds.Get(field.Key) == "" {
			return nil, configMissing(p.Name(), &config.MissingError{Provider: p.Name().String(), Env: field.Env})
		}
	}
	creds, err := p.withNumbers(req, creds)
	if err != nil {
		return nil, err
	}

	accountSID := creds.Get("accountSid")
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, url.PathEscape(accountSID))

	response, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth(accountSID, creds.Get("authToken")).
		SetFormData(map[string]string{
			"Body": req.Body,
			"From": creds.Get("from"),
			"To":   creds.Get("to"),
		}).
		Post(endpoint)
	if err := classify(p.Name(), response, err); err != nil {
		return nil, err
	}

	result := &domain.Result{
		Provider:   p.Name(),
		StatusCode: response.StatusCode(),
	}

	// A 2xx means Twilio accepted the message; an unreadable body does not undo that.
	var payload map[string]any
	if err := json.Unmarshal(response.Body(), &payload); err != nil {
		result.Raw = strings.TrimSpace(response.String())
		return result, nil
	}
	result.Raw = payload
	if sid, ok := payload["sid"].(string); ok {
		result.MessageID = sid
	}

	return result, nil
}

func (p *Twilio) withNumbers(req domain.Request, creds config.Credentials) (config.Credentials, error) {
	to := firstNonEmpty(req.Recipient, creds.Get("to"))
	if to == "" {
		return nil, missingRecipient(p.Name(), EnvWhatsAppTo)
	}

	resolved := make(config.Credentials, len(creds)+2)
	for key, value := range creds {
		resolved[key] = value
	}
	resolved["to"] = to
	resolved["from"] = firstNonEmpty(req.Sender, creds.Get("from"), DefaultTwilioFrom)
	return resolved, nil
}
