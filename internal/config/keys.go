package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/luka-loehr/promptx-cli/internal/models"
)

// ErrInvalidAPIKey is returned when a credential does not carry the
// provider's required prefix.
var ErrInvalidAPIKey = errors.New("invalid API key format")

// ErrEmptyAPIKey is returned for blank credentials.
var ErrEmptyAPIKey = errors.New("API key cannot be empty")

var keyPrefixes = map[models.Provider]string{
	models.ProviderOpenAI:    "sk-",
	models.ProviderAnthropic: "sk-ant-",
	models.ProviderXAI:       "xai-",
	models.ProviderGoogle:    "AIza",
}

var keyEnv = map[models.Provider][]string{
	models.ProviderOpenAI:    {"OPENAI_API_KEY"},
	models.ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	models.ProviderXAI:       {"XAI_API_KEY"},
	models.ProviderGoogle:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// KeyPrefix returns the required credential prefix for p, or "" when p
// takes no credential.
func KeyPrefix(p models.Provider) string {
	return keyPrefixes[p]
}

// KeyEnv lists the environment variables consulted for p's credential.
func KeyEnv(p models.Provider) []string {
	return keyEnv[p]
}

// KeyURL is where a credential for p can be created.
func KeyURL(p models.Provider) string {
	switch p {
	case models.ProviderOpenAI:
		return "https://platform.openai.com/api-keys"
	case models.ProviderAnthropic:
		return "https://console.anthropic.com/settings/keys"
	case models.ProviderXAI:
		return "https://console.x.ai"
	case models.ProviderGoogle:
		return "https://aistudio.google.com/apikey"
	default:
		return ""
	}
}

// ValidateAPIKey checks a credential client-side. Providers without a
// credential accept anything.
func ValidateAPIKey(p models.Provider, key string) error {
	if !p.NeedsAPIKey() {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%s: %w", p.DisplayName(), ErrEmptyAPIKey)
	}
	prefix := keyPrefixes[p]
	if !strings.HasPrefix(key, prefix) {
		return fmt.Errorf("%w: %s API keys start with %q", ErrInvalidAPIKey, p.DisplayName(), prefix)
	}
	return nil
}

// APIKey returns the credential for p. Environment variables take precedence
// over the stored value.
func (c *Config) APIKey(p models.Provider) string {
	for _, name := range keyEnv[p] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return c.APIKeys[string(p)]
}

// HasAPIKey reports whether a credential is available for p.
func (c *Config) HasAPIKey(p models.Provider) bool {
	return !p.NeedsAPIKey() || c.APIKey(p) != ""
}

// SetAPIKey validates and stores a credential. It does not save.
func (c *Config) SetAPIKey(p models.Provider, key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateAPIKey(p, key); err != nil {
		return err
	}
	if c.APIKeys == nil {
		c.APIKeys = map[string]string{}
	}
	c.APIKeys[string(p)] = key
	return nil
}
