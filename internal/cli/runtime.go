package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-dispatch/internal/config"
	"github.com/kursadbilgin/notify-dispatch/internal/observability"
	"github.com/kursadbilgin/notify-dispatch/internal/provider"
	"github.com/kursadbilgin/notify-dispatch/internal/service"
	"go.uber.org/zap"
)

// runtime holds everything a command needs to send notifications.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	email    *service.EmailService
	whatsapp *service.WhatsAppDispatcher

	metricsFile string
}

// bootstrap builds the runtime. Logs go to logOutput.
func (o *rootOptions) bootstrap(logOutput io.Writer, withRuntimeMetrics bool) (*runtime, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if strings.TrimSpace(o.logLevel) != "" {
		level = o.logLevel
	}
	logger, err := observability.NewLogger(observability.LoggerOptions{
		Level:    level,
		Encoding: o.logFormat,
		Output:   logOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	client := provider.NewHTTPClient(cfg.HTTPTimeout(), logger)
	resolver := config.NewResolver(config.EnvSource{})

	sendGrid, err := provider.NewSendGrid(client, cfg.SendGridBaseURL, resolver, cfg.EmailFromName)
	if err != nil {
		return nil, err
	}
	twilio, err := provider.NewTwilio(client, cfg.TwilioBaseURL, resolver)
	if err != nil {
		return nil, err
	}
	callMeBot, err := provider.NewCallMeBot(client, cfg.CallMeBotBaseURL, resolver)
	if err != nil {
		return nil, err
	}

	email, err := service.NewEmailService(sendGrid, logger)
	if err != nil {
		return nil, err
	}
	whatsapp, err := service.NewWhatsAppDispatcher(twilio, callMeBot, logger)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(withRuntimeMetrics)
	email.SetMetrics(metrics)
	whatsapp.SetMetrics(metrics)

	return &runtime{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		email:       email,
		whatsapp:    whatsapp,
		metricsFile: strings.TrimSpace(o.metricsFile),
	}, nil
}

// commandContext tags ctx with a fresh correlation id for a one-shot send.
func commandContext(ctx context.Context) context.Context {
	return observability.WithCorrelationID(contextOrBackground(ctx), uuid.NewString())
}

// close flushes the logger and writes the metrics textfile when requested.
func (r *runtime) close() error {
	defer r.logger.Sync() //nolint:errcheck

	if r.metricsFile == "" {
		return nil
	}
	if err := r.metrics.WriteTextfile(r.metricsFile); err != nil {
		r.logger.Error("metrics textfile write failed", zap.String("path", r.metricsFile), zap.Error(err))
		return err
	}
	return nil
}
