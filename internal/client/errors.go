package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/luka-loehr/promptx-cli/internal/models"
)

// Failure classes. Every error leaving an adapter matches exactly one of
// these with errors.Is.
var (
	ErrAuthentication     = errors.New("authentication failed")
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrModelNotFound      = errors.New("model not found")
	ErrRuntimeUnavailable = errors.New("local runtime unavailable")
	ErrResourceExhausted  = errors.New("local runtime out of resources")
	ErrUnknownProvider    = errors.New("provider request failed")
)

// ProviderError is a classified backend failure. Err keeps the raw error
// for diagnostics.
type ProviderError struct {
	Kind     error
	Provider models.Provider
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify maps a raw SDK or transport error onto the failure classes.
func Classify(p models.Provider, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	status := statusOf(err)
	return &ProviderError{
		Kind:     kindOf(p, status, err),
		Provider: p,
		Status:   status,
		Err:      err,
	}
}

func statusOf(err error) int {
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return 0
}

func kindOf(p models.Provider, status int, err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusBadRequest && strings.Contains(msg, "api key not valid"):
		return ErrAuthentication
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status == http.StatusNotFound:
		return ErrModelNotFound
	}

	if p != models.ProviderLocal {
		return ErrUnknownProvider
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(msg, "connection refused"):
		return ErrRuntimeUnavailable
	case isOutOfMemory(msg):
		return ErrResourceExhausted
	case strings.Contains(msg, "model") && strings.Contains(msg, "not found"):
		return ErrModelNotFound
	}
	return ErrUnknownProvider
}

func isOutOfMemory(msg string) bool {
	for _, marker := range []string{
		"out of memory",
		"requires more system memory",
		"insufficient memory",
		"cudamalloc failed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
