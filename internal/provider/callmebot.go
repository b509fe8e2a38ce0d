package provider

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/config"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
)

const (
	callMeBotPath = "/whatsapp.php"

	EnvCallMeBotPhone  = "CALLMEBOT_PHONE"
	EnvCallMeBotAPIKey = "CALLMEBOT_APIKEY"
)

// CallMeBotFields lists the CallMeBot credentials in resolution order.
var CallMeBotFields = []config.Field{
	{Key: "phone", Env: EnvCallMeBotPhone, Required: true},
	{Key: "apiKey", Env: EnvCallMeBotAPIKey, Required: true},
}

// CallMeBot delivers WhatsApp messages through the free CallMeBot gateway.
// The destination is always the phone registered with the api key.
type CallMeBot struct {
	client   *resty.Client
	baseURL  string
	resolver *config.Resolver
}

func NewCallMeBot(client *resty.Client, baseURL string, resolver *config.Resolver) (*CallMeBot, error) {
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

	return &CallMeBot{client: client, baseURL: normalized, resolver: resolver}, nil
}

func (p *CallMeBot) Name() domain.ProviderName { return domain.ProviderCallMeBot }

func (p *CallMeBot) Resolve(domain.Request) (config.Credentials, error) {
	creds, err := p.resolver.Resolve(p.Name().String(), CallMeBotFields)
	if err != nil {
		return nil, configMissing(p.Name(), err)
	}
	return creds, nil
}

func (p *CallMeBot) Send(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	for _, field := range CallMeBotFields {
		if creds.Get(field.Key) == "" {
			return nil, configMissing(p.Name(), &config.MissingError{Provider: p.Name().String(), Env: field.Env})
		}
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"phone":  creds.Get("phone"),
			"text":   req.Body,
			"apikey": creds.Get("apiKey"),
		}).
		Get(p.baseURL + callMeBotPath)
	if err := classify(p.Name(), response, err); err != nil {
		return nil, err
	}

	return &domain.Result{
		Provider:   p.Name(),
		StatusCode: response.StatusCode(),
		Raw:        response.String(),
	}, nil
}
