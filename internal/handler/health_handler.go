package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
)

func RegisterHealthRoutes(app fiber.Router, email EmailSender, whatsapp WhatsAppSender) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(email, whatsapp))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler reports which providers can send with the default recipients.
// The service is ready when at least one provider is configured.
func ReadyzHandler(email EmailSender, whatsapp WhatsAppSender) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checks := fiber.Map{
			domain.ProviderSendGrid.String():  "missing",
			domain.ProviderTwilio.String():    "missing",
			domain.ProviderCallMeBot.String(): "missing",
		}
		configured := 0

		if email != nil && email.Configured(domain.Request{}) {
			checks[domain.ProviderSendGrid.String()] = "configured"
			configured++
		}
		if whatsapp != nil {
			for _, name := range whatsapp.Eligible(domain.Request{}) {
				checks[name.String()] = "configured"
				configured++
			}
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if configured == 0 {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status":    status,
			"providers": checks,
		})
	}
}
