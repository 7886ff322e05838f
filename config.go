package mandrill

import (
	"os"
	"strings"
	"time"

	"github.com/hyperengineering/mandrill/internal/api"
)

// Config configures the Mandrill client.
type Config struct {
	// BaseURL is the template API root.
	// Defaults to https://mandrillapp.com/api/1.0.
	BaseURL string

	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// KeyPolicy selects the credential source. Defaults to KeyPolicyDirect.
	KeyPolicy KeyPolicy

	// SanitizePolicy selects which matches make Fix publish. Defaults to SanitizeAny.
	SanitizePolicy SanitizePolicy

	// Debug enables request/response logging.
	Debug bool

	// DebugLogPath is the file debug logs are appended to.
	// Defaults to stderr if empty.
	DebugLogPath string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:        api.DefaultBaseURL,
		Timeout:        api.DefaultTimeout,
		UserAgent:      "mandrill-cli/dev",
		KeyPolicy:      KeyPolicyDirect,
		SanitizePolicy: SanitizeAny,
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	MANDRILL_BASE_URL        → BaseURL
//	MANDRILL_TIMEOUT         → Timeout (Go duration, e.g. "10s")
//	MANDRILL_KEY_POLICY      → KeyPolicy (direct | file)
//	MANDRILL_SANITIZE_POLICY → SanitizePolicy (any | merge-tag)
//	MANDRILL_DEBUG           → Debug (see ParseSwitch)
//	MANDRILL_DEBUG_LOG       → DebugLogPath
//
// The API key is not part of Config; see CredentialSource.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:        os.Getenv("MANDRILL_BASE_URL"),
		Timeout:        ParseTimeout(os.Getenv("MANDRILL_TIMEOUT")),
		KeyPolicy:      KeyPolicy(strings.ToLower(os.Getenv("MANDRILL_KEY_POLICY"))),
		SanitizePolicy: SanitizePolicy(strings.ToLower(os.Getenv("MANDRILL_SANITIZE_POLICY"))),
		Debug:          ParseSwitch(os.Getenv("MANDRILL_DEBUG")),
		DebugLogPath:   os.Getenv("MANDRILL_DEBUG_LOG"),
	}
}

// ParseTimeout reads a Go duration such as "10s". Empty yields 0 (use the
// default); anything unparsable yields -1, which Validate rejects.
func ParseTimeout(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return -1
	}
	return d
}

// ParseSwitch reports whether s turns a setting on: any non-empty value
// except 0, false, no and off (case-insensitive).
func ParseSwitch(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "f", "false", "no", "off":
		return false
	default:
		return true
	}
}

// WithDefaults fills in default values for unset fields.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.KeyPolicy == "" {
		c.KeyPolicy = defaults.KeyPolicy
	}
	if c.SanitizePolicy == "" {
		c.SanitizePolicy = defaults.SanitizePolicy
	}
	return c
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return &ValidationError{Field: "BaseURL", Message: "required"}
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return &ValidationError{Field: "BaseURL", Message: "must start with http:// or https://"}
	}
	if c.Timeout < 0 {
		return &ValidationError{Field: "Timeout", Message: "must be a positive duration"}
	}
	if _, err := ParseKeyPolicy(string(c.KeyPolicy)); err != nil {
		return err
	}
	if _, err := ParseSanitizePolicy(string(c.SanitizePolicy)); err != nil {
		return err
	}
	return nil
}
