package refine

import (
	"context"
	"errors"

	"github.com/luka-loehr/promptx-cli/internal/client"
	"github.com/luka-loehr/promptx-cli/internal/config"
	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/ollama"
	"github.com/luka-loehr/promptx-cli/internal/setup"
)

// Remediation turns an error into the message shown to the user.
func Remediation(err error) string {
	var de *ollama.DiscoveryError
	var pe *client.ProviderError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrInvalidAPIKey), errors.Is(err, config.ErrEmptyAPIKey):
		return err.Error() + `. Run "promptx reset" or "promptx /model" to enter a new key.`
	case errors.Is(err, setup.ErrNotConfigured):
		return err.Error() + `. Set the key in the environment or run "promptx" in a terminal to set it up.`
	case errors.Is(err, setup.ErrNotInteractive):
		return err.Error() + "."
	case errors.Is(err, setup.ErrCancelled):
		return "Cancelled."
	case errors.Is(err, client.ErrAuthentication):
		return `Invalid API key. Please run "promptx reset" to update your API key.`
	case errors.Is(err, client.ErrRateLimit):
		return "Rate limit exceeded. Please try again later."
	case errors.Is(err, client.ErrRuntimeUnavailable):
		return "Ollama is not reachable. Start it with: ollama serve"
	case errors.Is(err, client.ErrResourceExhausted):
		return `The local model ran out of memory. Pick a smaller one with "promptx /model".`
	case errors.Is(err, client.ErrModelNotFound):
		if errors.As(err, &pe) && pe.Provider == models.ProviderLocal {
			return `The model is not available locally. Pull it with "ollama pull <model>" or pick another with "promptx /model".`
		}
		return `The model was not found. Pick another with "promptx /model".`
	case errors.As(err, &de):
		return de.Remediation()
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.As(err, &pe):
		return "Error: " + pe.Err.Error()
	default:
		return "Error: " + err.Error()
	}
}
