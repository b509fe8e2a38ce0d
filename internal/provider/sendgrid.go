package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/config"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
)

const (
	DefaultEmailFrom     = "clawdbot@noreply.local"
	DefaultEmailFromName = "Clawdbot"

	sendGridMailPath = "/v3/mail/send"

	EnvSendGridAPIKey = "SENDGRID_API_KEY"
	EnvEmailTo        = "NOTIFY_EMAIL_TO"
	EnvEmailFrom      = "NOTIFY_EMAIL_FROM"
)

// SendGridFields lists the SendGrid credentials in resolution order.
var SendGridFields = []config.Field{
	{Key: "apiKey", Env: EnvSendGridAPIKey, Required: true},
	{Key: "to", Env: EnvEmailTo},
	{Key: "from", Env: EnvEmailFrom},
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To      []sendGridAddress `json:"to"`
	Subject string            `json:"subject"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Content          []sendGridContent         `json:"content"`
}

// SendGrid delivers email through the SendGrid v3 mail-send API.
type SendGrid struct {
	client   *resty.Client
	baseURL  string
	resolver *config.Resolver
	fromName string
}

func NewSendGrid(client *resty.Client, baseURL string, resolver *config.Resolver, fromName string) (*SendGrid, error) {
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
	if strings.TrimSpace(fromName) == "" {
		fromName = DefaultEmailFromName
	}

	return &SendGrid{
		client:   client,
		baseURL:  normalized,
		resolver: resolver,
		fromName: strings.TrimSpace(fromName),
	}, nil
}

func (p *SendGrid) Name() domain.ProviderName { return domain.ProviderSendGrid }

// Resolve returns the SendGrid credentials with the recipient and sender
// already folded in: "to" and "from" are always set on success.
func (p *SendGrid) Resolve(req domain.Request) (config.Credentials, error) {
	creds, err := p.resolver.Resolve(p.Name().String(), SendGridFields)
	if err != nil {
		return nil, configMissing(p.Name(), err)
	}
	return p.withAddresses(req, creds)
}

func (p *SendGrid) SendPlain(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error) {
	content := []sendGridContent{{Type: "text/plain", Value: req.Body}}
	return p.send(ctx, req, creds, content)
}

// SendHTML sends a multipart message. The plain part is req.Body, or the HTML
// with its tags stripped when no body is given.
func (p *SendGrid) SendHTML(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error) {
	plain := req.Body
	if plain == "" {
		plain = StripTags(req.HTML)
	}

	content := []sendGridContent{{Type: "text/plain", Value: plain}}
	if req.HTML != "" {
		content = append(content, sendGridContent{Type: "text/html", Value: req.HTML})
	}
	return p.send(ctx, req, creds, content)
}

// StripTags removes anything that looks like a markup tag.
func StripTags(html string) string {
	return htmlTagPattern.ReplaceAllString(html, "")
}

func (p *SendGrid) send(ctx context.Context, req domain.Request, creds config.Credentials, content []sendGridContent) (*domain.Result, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	if creds.Get("apiKey") == "" {
		return nil, configMissing(p.Name(), &config.MissingError{Provider: p.Name().String(), Env: EnvSendGridAPIKey})
	}
	creds, err := p.withAddresses(req, creds)
	if err != nil {
		return nil, err
	}

	reqBody := sendGridRequest{
		Personalizations: []sendGridPersonalization{{
			To:      []sendGridAddress{{Email: creds.Get("to")}},
			Subject: req.Subject,
		}},
		From:    sendGridAddress{Email: creds.Get("from"), Name: p.fromName},
		Content: content,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(creds.Get("apiKey")).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.baseURL + sendGridMailPath)
	if err := classify(p.Name(), response, err); err != nil {
		return nil, err
	}

	return &domain.Result{
		Provider:   p.Name(),
		StatusCode: response.StatusCode(),
		MessageID:  strings.TrimSpace(response.Header().Get("X-Message-Id")),
	}, nil
}

func (p *SendGrid) withAddresses(req domain.Request, creds config.Credentials) (config.Credentials, error) {
	to := firstNonEmpty(req.Recipient, creds.Get("to"))
	if to == "" {
		return nil, missingRecipient(p.Name(), EnvEmailTo)
	}

	resolved := make(config.Credentials, len(creds)+2)
	for key, value := range creds {
		resolved[key] = value
	}
	resolved["to"] = to
	resolved["from"] = firstNonEmpty(req.Sender, creds.Get("from"), DefaultEmailFrom)
	return resolved, nil
}
