package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-dispatch/internal/domain"
)

// Kind classifies why a delivery attempt failed.
type Kind string

const (
	KindConfigMissing    Kind = "CONFIG_MISSING"
	KindProviderRejected Kind = "PROVIDER_REJECTED"
	KindTransportError   Kind = "TRANSPORT_ERROR"
)

func (k Kind) String() string { return string(k) }

// DeliveryError is the typed failure of a single provider attempt.
type DeliveryError struct {
	Kind       Kind
	Provider   domain.ProviderName
	StatusCode int
	Body       string
	Message    string
	Cause      error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	if e.Provider != "" {
		parts = append(parts, e.Provider.String())
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		parts = append(parts, "delivery failed")
	}

	return strings.Join(parts, ": ")
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindOf returns the failure kind of err, or "" when err is not a DeliveryError.
func KindOf(err error) Kind {
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Kind
	}
	return ""
}

func configMissing(provider domain.ProviderName, cause error) *DeliveryError {
	return &DeliveryError{
		Kind:     KindConfigMissing,
		Provider: provider,
		Message:  cause.Error(),
		Cause:    cause,
	}
}

func rejected(provider domain.ProviderName, statusCode int, body string) *DeliveryError {
	return &DeliveryError{
		Kind:       KindProviderRejected,
		Provider:   provider,
		StatusCode: statusCode,
		Body:       body,
		Message:    providerErrorMessage(statusCode, body),
	}
}

func transportFailure(provider domain.ProviderName, cause error) *DeliveryError {
	return &DeliveryError{
		Kind:     KindTransportError,
		Provider: provider,
		Message:  cause.Error(),
		Cause:    cause,
	}
}

// providerErrorMessage trims the body for display only; DeliveryError.Body
// keeps the bytes the provider sent.
func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, trimmed)
}
