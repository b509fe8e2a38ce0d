package service

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/kursadbilgin/notify-dispatch/internal/observability"
	"github.com/kursadbilgin/notify-dispatch/internal/provider"
	"go.uber.org/zap"
)

// Attempt records what happened to one provider during a dispatch.
type Attempt struct {
	Provider domain.ProviderName
	// Skipped means the provider was not eligible and no request was made.
	Skipped  bool
	Result   *domain.Result
	Err      error
	Duration time.Duration
}

func (a Attempt) Succeeded() bool { return !a.Skipped && a.Err == nil && a.Result != nil }

type attemptRecorder struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// run performs one send and records its outcome.
func (r attemptRecorder) run(ctx context.Context, name domain.ProviderName, send func() (*domain.Result, error)) Attempt {
	start := r.now()
	result, err := send()
	attempt := Attempt{
		Provider: name,
		Result:   result,
		Err:      err,
		Duration: r.now().Sub(start),
	}
	if err == nil && result == nil {
		attempt.Err = errors.New("provider returned no result")
	}

	channel := name.Channel().String()
	provName := name.String()
	logger := observability.WithContextLogger(r.logger, ctx)

	r.metrics.ObserveNotificationSendDuration(channel, provName, attempt.Duration)
	if attempt.Err != nil {
		r.metrics.IncNotificationFailed(channel, provName, failureReason(attempt.Err))
		fields := []zap.Field{
			zap.String("provider", provName),
			zap.String("kind", failureReason(attempt.Err)),
			zap.Duration("duration", attempt.Duration),
			zap.Error(attempt.Err),
		}
		var deliveryErr *provider.DeliveryError
		if errors.As(attempt.Err, &deliveryErr) && deliveryErr.StatusCode > 0 {
			fields = append(fields, zap.Int("statusCode", deliveryErr.StatusCode))
		}
		logger.Warn("provider attempt failed", fields...)
		return attempt
	}

	r.metrics.IncNotificationSent(channel, provName)
	logger.Info("notification delivered",
		zap.String("provider", provName),
		zap.Int("statusCode", result.StatusCode),
		zap.String("messageId", result.MessageID),
		zap.Duration("duration", attempt.Duration),
	)
	return attempt
}

// unavailable records a provider that could not be attempted because its configuration is incomplete.
func (r attemptRecorder) unavailable(ctx context.Context, name domain.ProviderName, err error) {
	r.metrics.IncNotificationFailed(name.Channel().String(), name.String(), failureReason(err))
	observability.WithContextLogger(r.logger, ctx).Warn("provider not configured",
		zap.String("provider", name.String()),
		zap.Error(err),
	)
}

func failureReason(err error) string {
	if kind := provider.KindOf(err); kind != "" {
		return kind.String()
	}
	return "unknown"
}
