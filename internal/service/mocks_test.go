package service

import (
	"context"
	"sync/atomic"

	"github.com/kursadbilgin/notify-dispatch/internal/config"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/kursadbilgin/notify-dispatch/internal/provider"
)

type fakeWhatsAppTransport struct {
	name      domain.ProviderName
	resolveFn func(req domain.Request) (config.Credentials, error)
	sendFn    func(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error)
	sends     atomic.Int32
}

func (f *fakeWhatsAppTransport) Name() domain.ProviderName { return f.name }

func (f *fakeWhatsAppTransport) Resolve(req domain.Request) (config.Credentials, error) {
	if f.resolveFn == nil {
		return config.Credentials{"ok": "1"}, nil
	}
	return f.resolveFn(req)
}

func (f *fakeWhatsAppTransport) Send(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error) {
	f.sends.Add(1)
	if f.sendFn == nil {
		return &domain.Result{Provider: f.name, StatusCode: 200}, nil
	}
	return f.sendFn(ctx, req, creds)
}

type fakeEmailTransport struct {
	resolveFn   func(req domain.Request) (config.Credentials, error)
	sendPlainFn func(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error)
	sendHTMLFn  func(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error)
	sends       atomic.Int32
}

func (f *fakeEmailTransport) Name() domain.ProviderName { return domain.ProviderSendGrid }

func (f *fakeEmailTransport) Resolve(req domain.Request) (config.Credentials, error) {
	if f.resolveFn == nil {
		return config.Credentials{"apiKey": "k", "to": "a@b.c", "from": "d@e.f"}, nil
	}
	return f.resolveFn(req)
}

func (f *fakeEmailTransport) SendPlain(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error) {
	f.sends.Add(1)
	if f.sendPlainFn == nil {
		return &domain.Result{Provider: domain.ProviderSendGrid, StatusCode: 202}, nil
	}
	return f.sendPlainFn(ctx, req, creds)
}

func (f *fakeEmailTransport) SendHTML(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error) {
	f.sends.Add(1)
	if f.sendHTMLFn == nil {
		return &domain.Result{Provider: domain.ProviderSendGrid, StatusCode: 202}, nil
	}
	return f.sendHTMLFn(ctx, req, creds)
}

func notConfigured(name domain.ProviderName) func(domain.Request) (config.Credentials, error) {
	return func(domain.Request) (config.Credentials, error) {
		return nil, &provider.DeliveryError{
			Kind:     provider.KindConfigMissing,
			Provider: name,
			Message:  "credentials not configured",
			Cause:    domain.ErrConfigMissing,
		}
	}
}

func rejectedWith(name domain.ProviderName, status int) func(context.Context, domain.Request, config.Credentials) (*domain.Result, error) {
	return func(context.Context, domain.Request, config.Credentials) (*domain.Result, error) {
		return nil, &provider.DeliveryError{
			Kind:       provider.KindProviderRejected,
			Provider:   name,
			StatusCode: status,
			Body:       "denied",
			Message:    "provider returned status",
		}
	}
}
