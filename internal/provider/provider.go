package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/config"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"go.uber.org/zap"
)

const defaultHTTPTimeout = 30 * time.Second

// EmailTransport is the outbound email delivery port.
type EmailTransport interface {
	Name() domain.ProviderName
	Resolve(req domain.Request) (config.Credentials, error)
	SendPlain(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error)
	SendHTML(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error)
}

// WhatsAppTransport is the outbound WhatsApp delivery port. Resolve performs
// no I/O and fails with KindConfigMissing when the provider is not eligible.
type WhatsAppTransport interface {
	Name() domain.ProviderName
	Resolve(req domain.Request) (config.Credentials, error)
	Send(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error)
}

// NewHTTPClient builds the resty client shared by the transports. Retries
// stay disabled; fallback between providers is the only second attempt.
// resty's warnings go to logger, a nil logger drops them.
func NewHTTPClient(timeout time.Duration, logger *zap.Logger) *resty.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := resty.New()
	client.SetLogger(newRestyLogger(logger))
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	return client
}

func prepareClient(client *resty.Client) (*resty.Client, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultHTTPTimeout)
	}
	client.SetRetryCount(0)
	return client, nil
}

func normalizeBaseURL(baseURL string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return "", fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	return trimmed, nil
}

// classify maps a resty round-trip onto the failure taxonomy. A nil error
// return means the provider answered with a 2xx status.
func classify(name domain.ProviderName, response *resty.Response, err error) error {
	if err != nil {
		// url.Error repeats the request URL, which carries the CallMeBot api key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			return transportFailure(name, urlErr.Err)
		}
		return transportFailure(name, err)
	}
	if response == nil {
		return transportFailure(name, fmt.Errorf("provider returned empty response"))
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return rejected(name, statusCode, response.String())
}

func missingRecipient(name domain.ProviderName, env string) error {
	return configMissing(name, &config.MissingError{Provider: name.String(), Env: env})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
