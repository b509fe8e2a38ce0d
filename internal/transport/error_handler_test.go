package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/kursadbilgin/notify-dispatch/internal/provider"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatusCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "fiber error", err: fiber.NewError(fiber.StatusNotFound, "missing"), want: fiber.StatusNotFound},
		{name: "validation", err: fmt.Errorf("%w: subject is required", domain.ErrValidation), want: fiber.StatusBadRequest},
		{name: "config missing sentinel", err: domain.ErrConfigMissing, want: fiber.StatusServiceUnavailable},
		{name: "no whatsapp provider", err: domain.ErrNoWhatsAppProvider, want: fiber.StatusServiceUnavailable},
		{
			name: "config missing kind",
			err:  &provider.DeliveryError{Kind: provider.KindConfigMissing, Provider: domain.ProviderSendGrid},
			want: fiber.StatusServiceUnavailable,
		},
		{
			name: "provider rejected",
			err:  &provider.DeliveryError{Kind: provider.KindProviderRejected, Provider: domain.ProviderTwilio, StatusCode: 401},
			want: fiber.StatusBadGateway,
		},
		{
			name: "transport error",
			err:  &provider.DeliveryError{Kind: provider.KindTransportError, Provider: domain.ProviderCallMeBot},
			want: fiber.StatusBadGateway,
		},
		{name: "unknown", err: fmt.Errorf("boom"), want: fiber.StatusInternalServerError},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := StatusCode(tc.err); got != tc.want {
				t.Fatalf("StatusCode() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestErrorHandlerWritesDeliveryDetails(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.WarnLevel)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
	app.Get("/fail", func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-42")
		return &provider.DeliveryError{
			Kind:       provider.KindProviderRejected,
			Provider:   domain.ProviderSendGrid,
			StatusCode: 401,
			Message:    "provider returned status 401",
		}
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Kind != "PROVIDER_REJECTED" || parsed.Provider != "sendgrid" || parsed.ProviderStatus != 401 {
		t.Fatalf("response = %+v", parsed)
	}
	if parsed.RequestID != "req-42" {
		t.Fatalf("requestId = %q, want req-42", parsed.RequestID)
	}
	if parsed.Error != "sendgrid: provider returned status 401" {
		t.Fatalf("error = %q", parsed.Error)
	}

	entries := recorded.FilterMessage("request error").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("log entries = %+v, want one error-level entry", entries)
	}
}

func TestErrorHandlerLogsClientErrorsAtWarn(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.DebugLevel)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fmt.Errorf("%w: body is required", domain.ErrValidation)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/bad", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if got := recorded.FilterLevelExact(zapcore.WarnLevel).Len(); got != 1 {
		t.Fatalf("warn entries = %d, want 1", got)
	}
}
