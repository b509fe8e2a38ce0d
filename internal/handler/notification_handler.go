package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/kursadbilgin/notify-dispatch/internal/observability"
)

type EmailSender interface {
	SendEmail(ctx context.Context, req domain.Request) (*domain.Result, error)
	SendHTMLEmail(ctx context.Context, req domain.Request) (*domain.Result, error)
	Configured(req domain.Request) bool
}

type WhatsAppSender interface {
	Dispatch(ctx context.Context, req domain.Request) (*domain.Result, error)
	DispatchVia(ctx context.Context, name domain.ProviderName, req domain.Request) (*domain.Result, error)
	Eligible(req domain.Request) []domain.ProviderName
}

type NotificationHandler struct {
	email    EmailSender
	whatsapp WhatsAppSender
	validate *validator.Validate
}

func NewNotificationHandler(email EmailSender, whatsapp WhatsAppSender) (*NotificationHandler, error) {
	if email == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if whatsapp == nil {
		return nil, fmt.Errorf("whatsapp sender is required")
	}
	return &NotificationHandler{
		email:    email,
		whatsapp: whatsapp,
		validate: validator.New(),
	}, nil
}

func RegisterNotificationRoutes(router fiber.Router, email EmailSender, whatsapp WhatsAppSender) error {
	h, err := NewNotificationHandler(email, whatsapp)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/email", h.SendEmail)
	v1.Post("/whatsapp", h.SendWhatsApp)

	return nil
}

type sendEmailRequest struct {
	To      string `json:"to" validate:"omitempty,email"`
	From    string `json:"from" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required_without=HTML"`
	HTML    string `json:"html" validate:"required_without=Body"`
}

type sendWhatsAppRequest struct {
	To       string `json:"to"`
	Message  string `json:"message" validate:"required"`
	Provider string `json:"provider" validate:"omitempty,oneof=twilio callmebot"`
}

type deliveryResponse struct {
	Provider   string `json:"provider"`
	StatusCode int    `json:"statusCode"`
	MessageID  string `json:"messageId,omitempty"`
	Raw        any    `json:"raw,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func (h *NotificationHandler) SendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validateStruct(req); err != nil {
		return err
	}

	notification := domain.Request{
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		HTML:      req.HTML,
		Recipient: strings.TrimSpace(req.To),
		Sender:    strings.TrimSpace(req.From),
	}

	ctx := requestContext(c)
	var (
		result *domain.Result
		err    error
	)
	if strings.TrimSpace(notification.HTML) != "" {
		result, err = h.email.SendHTMLEmail(ctx, notification)
	} else {
		result, err = h.email.SendEmail(ctx, notification)
	}
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryResponse(result, requestCorrelationID(c)))
}

func (h *NotificationHandler) SendWhatsApp(c *fiber.Ctx) error {
	var req sendWhatsAppRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validateStruct(req); err != nil {
		return err
	}

	notification := domain.Request{
		Body:      req.Message,
		Recipient: strings.TrimSpace(req.To),
	}

	ctx := requestContext(c)
	var (
		result *domain.Result
		err    error
	)
	if strings.TrimSpace(req.Provider) != "" {
		name, parseErr := domain.ParseWhatsAppProvider(req.Provider)
		if parseErr != nil {
			return parseErr
		}
		result, err = h.whatsapp.DispatchVia(ctx, name, notification)
	} else {
		result, err = h.whatsapp.Dispatch(ctx, notification)
	}
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryResponse(result, requestCorrelationID(c)))
}

func (h *NotificationHandler) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(messages, ", "))
}

func toDeliveryResponse(result *domain.Result, requestID string) deliveryResponse {
	if result == nil {
		return deliveryResponse{RequestID: requestID}
	}
	return deliveryResponse{
		Provider:   result.Provider.String(),
		StatusCode: result.StatusCode,
		MessageID:  result.MessageID,
		Raw:        result.Raw,
		RequestID:  requestID,
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id := requestCorrelationID(c); id != "" {
		ctx = observability.WithCorrelationID(ctx, id)
	}
	return ctx
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
