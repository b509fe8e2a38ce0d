package config

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-dispatch/internal/domain"
)

// Field binds a credential key to the configuration name it is read from.
type Field struct {
	Key      string
	Env      string
	Required bool
}

// Credentials holds the resolved, non-empty fields of one provider.
type Credentials map[string]string

func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// MissingError names the first required configuration value that could not be resolved.
type MissingError struct {
	Provider string
	Env      string
}

func (e *MissingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s not configured", e.Env)
}

func (e *MissingError) Unwrap() error { return domain.ErrConfigMissing }

// Resolver looks up provider credentials. It holds no state besides its source.
type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	if source == nil {
		source = EnvSource{}
	}
	return &Resolver{source: source}
}

// Resolve reads fields in order. The first required field that is absent or
// blank stops resolution with a *MissingError; optional blanks are omitted.
func (r *Resolver) Resolve(provider string, fields []Field) (Credentials, error) {
	creds := make(Credentials, len(fields))
	for _, field := range fields {
		value := r.lookup(field.Env)
		if value == "" {
			if field.Required {
				return nil, &MissingError{Provider: provider, Env: field.Env}
			}
			continue
		}
		creds[field.Key] = value
	}
	return creds, nil
}

// Complete reports whether every required field is present and non-empty.
func (r *Resolver) Complete(provider string, fields []Field) bool {
	_, err := r.Resolve(provider, fields)
	return err == nil
}

func (r *Resolver) lookup(name string) string {
	if r == nil || r.source == nil {
		return ""
	}
	value, ok := r.source.Lookup(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
