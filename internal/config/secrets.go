package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Secrets are read only from the environment, never from files or flags
type Secrets struct {
	SMTPUsername string `env:"CAMPWATCH_SMTP_USERNAME"`
	SMTPPassword string `env:"CAMPWATCH_SMTP_PASSWORD"`
	RIDBAPIKey   string `env:"CAMPWATCH_RIDB_API_KEY"`
}

// String hides credentials
func (s Secrets) String() string {
	mask := func(v string) string {
		if v == "" {
			return "<unset>"
		}
		return "***REDACTED***"
	}
	return fmt.Sprintf("Secrets{SMTPUsername:%s SMTPPassword:%s RIDBAPIKey:%s}",
		s.SMTPUsername, mask(s.SMTPPassword), mask(s.RIDBAPIKey))
}

// LoadSecrets loads credentials from environment variables
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return Secrets{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
