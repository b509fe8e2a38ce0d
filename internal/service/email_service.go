package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-dispatch/internal/config"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/kursadbilgin/notify-dispatch/internal/observability"
	"github.com/kursadbilgin/notify-dispatch/internal/provider"
	"go.uber.org/zap"
)

// EmailService sends single-recipient email through one transport. Errors
// from the transport are returned unchanged.
type EmailService struct {
	transport provider.EmailTransport
	recorder  attemptRecorder
}

func NewEmailService(transport provider.EmailTransport, logger *zap.Logger) (*EmailService, error) {
	if transport == nil {
		return nil, fmt.Errorf("email transport is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EmailService{
		transport: transport,
		recorder:  attemptRecorder{logger: logger, now: time.Now},
	}, nil
}

func (s *EmailService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.recorder.metrics = metrics
}

func (s *EmailService) SendEmail(ctx context.Context, req domain.Request) (*domain.Result, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}
	return s.send(ctx, req, s.transport.SendPlain)
}

// SendHTMLEmail sends req.HTML with req.Body as the plain-text alternative.
func (s *EmailService) SendHTMLEmail(ctx context.Context, req domain.Request) (*domain.Result, error) {
	return s.send(ctx, req, s.transport.SendHTML)
}

func (s *EmailService) Configured(req domain.Request) bool {
	_, err := s.transport.Resolve(req)
	return err == nil
}

type emailSendFunc func(ctx context.Context, req domain.Request, creds config.Credentials) (*domain.Result, error)

func (s *EmailService) send(ctx context.Context, req domain.Request, sendFn emailSendFunc) (*domain.Result, error) {
	if err := req.Validate(domain.ChannelEmail); err != nil {
		return nil, err
	}

	creds, err := s.transport.Resolve(req)
	if err != nil {
		s.recorder.unavailable(ctx, s.transport.Name(), err)
		return nil, err
	}

	attempt := s.recorder.run(ctx, s.transport.Name(), func() (*domain.Result, error) {
		return sendFn(ctx, req, creds)
	})
	return attempt.Result, attempt.Err
}
