// Package autotask is a read-only client for the Autotask REST API. It resolves the
// tenant's zone once, caches query responses by request signature and exposes the
// entity queries the sales report needs.
package autotask

import (
	"strings"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Credentials identify the API user. They are supplied by configuration or the secret
// store and sent as headers on every request.
type Credentials struct {
	Username        string
	Secret          string
	IntegrationCode string
}

// Validate reports which credential is missing, if any.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(c.Secret) == "" {
		missing = append(missing, "secret")
	}
	if strings.TrimSpace(c.IntegrationCode) == "" {
		missing = append(missing, "integration code")
	}
	if len(missing) > 0 {
		return utils.ConfigurationError("autotask.credentials", "missing "+strings.Join(missing, ", "))
	}
	return nil
}

// Configured is true when all three credentials are present.
func (c Credentials) Configured() bool {
	return c.Validate() == nil
}
