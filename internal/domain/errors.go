package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")

	// ErrConfigMissing marks a required credential or recipient that is absent.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrNoWhatsAppProvider is the single terminal failure of WhatsApp fallback dispatch.
	ErrNoWhatsAppProvider = errors.New("no WhatsApp provider configured or all providers failed")
)
