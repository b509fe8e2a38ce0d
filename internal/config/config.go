package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel           string `env:"LOG_LEVEL,default=info"`
	HTTPTimeoutSeconds int    `env:"HTTP_TIMEOUT_SECONDS,default=30"`
	SendGridBaseURL    string `env:"SENDGRID_BASE_URL,default=https://api.sendgrid.com"`
	TwilioBaseURL      string `env:"TWILIO_BASE_URL,default=https://api.twilio.com"`
	CallMeBotBaseURL   string `env:"CALLMEBOT_BASE_URL,default=https://api.callmebot.com"`
	EmailFromName      string `env:"NOTIFY_EMAIL_FROM_NAME,default=Clawdbot"`
	APIPort            int    `env:"API_PORT,default=8080"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom reads the configuration from an explicit variable set instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(env.EnvSet(vars), &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) validate() error {
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("failed to load config: HTTP_TIMEOUT_SECONDS must be positive (got %d)", c.HTTPTimeoutSeconds)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("failed to load config: API_PORT out of range (got %d)", c.APIPort)
	}
	return nil
}

// LoadDotEnv merges the given .env files into the process environment.
// Missing files are skipped and variables that are already set are left untouched.
func LoadDotEnv(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat env file %q: %w", path, err)
		}
		existing = append(existing, path)
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}
