package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/kursadbilgin/notify-dispatch/internal/provider"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error          string `json:"error"`
	Kind           string `json:"kind,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ProviderStatus int    `json:"providerStatus,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		code := StatusCode(err)
		resp := errorResponse{Error: err.Error()}

		var deliveryErr *provider.DeliveryError
		if errors.As(err, &deliveryErr) {
			resp.Kind = deliveryErr.Kind.String()
			resp.Provider = deliveryErr.Provider.String()
			resp.ProviderStatus = deliveryErr.StatusCode
		}
		if requestID, ok := c.Locals("requestid").(string); ok {
			resp.RequestID = requestID
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		if resp.RequestID != "" {
			fields = append(fields, zap.String("correlationId", resp.RequestID))
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request error", fields...)
		} else {
			logger.Warn("request error", fields...)
		}

		return c.Status(code).JSON(resp)
	}
}

// StatusCode maps a dispatch error to the HTTP status returned to callers.
func StatusCode(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrConfigMissing), errors.Is(err, domain.ErrNoWhatsAppProvider):
		return fiber.StatusServiceUnavailable
	}

	switch provider.KindOf(err) {
	case provider.KindConfigMissing:
		return fiber.StatusServiceUnavailable
	case provider.KindProviderRejected, provider.KindTransportError:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
