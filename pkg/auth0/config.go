package auth0

import (
	"strings"
	"time"
)

// Config represents the configuration for the Auth0 client
type Config struct {
	// Domain is the tenant domain, e.g. example.eu.auth0.com
	Domain string

	// ClientID and ClientSecret identify the machine-to-machine application
	// used for the management API.
	ClientID     string
	ClientSecret string

	// Audience of the management API. Defaults to https://<Domain>/api/v2/
	Audience string

	// BaseURL overrides https://<Domain>. Tests point it at a local server.
	BaseURL string

	// Timeout bounds each HTTP call. Defaults to 10s.
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Domain == "" && c.BaseURL == "" {
		return ErrInvalidConfig
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrInvalidConfig
	}
	return nil
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://" + strings.TrimRight(c.Domain, "/")
}

func (c Config) audience() string {
	if c.Audience != "" {
		return c.Audience
	}
	return c.baseURL() + "/api/v2/"
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}
