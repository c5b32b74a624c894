// Package secrets resolves provider credentials from configuration or the OS keyring.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Source values accepted by autotask.secretSource.
const (
	SourceConfig  = "config"
	SourceKeyring = "keyring"
)

// DefaultService is the keyring service name secrets are stored under.
const DefaultService = "partner-metrics"

// Resolve returns the secret for user. With SourceConfig the configured value is
// returned as-is; with SourceKeyring the value is read from the OS keyring.
func Resolve(source, service, user, configured string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "", SourceConfig, "env":
		return configured, nil
	case SourceKeyring:
		return fromKeyring(service, user)
	default:
		return "", utils.ConfigurationError("secrets.resolve", fmt.Sprintf("unknown secret source %q", source))
	}
}

// Store writes secret into the keyring for user.
func Store(service, user, secret string) error {
	if strings.TrimSpace(user) == "" {
		return utils.ConfigurationError("secrets.store", "user must not be empty")
	}
	if secret == "" {
		return utils.ConfigurationError("secrets.store", "secret must not be empty")
	}
	if err := keyring.Set(serviceName(service), user, secret); err != nil {
		return fmt.Errorf("store secret for %s: %w", user, err)
	}
	return nil
}

func fromKeyring(service, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", utils.ConfigurationError("secrets.keyring", "keyring lookup needs a username")
	}
	secret, err := keyring.Get(serviceName(service), user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", utils.ConfigurationError("secrets.keyring", fmt.Sprintf("no secret stored for %s", user))
		}
		return "", fmt.Errorf("read keyring secret for %s: %w", user, err)
	}
	return secret, nil
}

func serviceName(service string) string {
	if strings.TrimSpace(service) == "" {
		return DefaultService
	}
	return service
}
