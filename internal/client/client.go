// Package client adapts the canonical refinement request to each backend
// family and exposes the answer as an ordered stream of text chunks.
package client

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/stream"
)

const (
	xaiBaseURL         = "https://api.x.ai/v1/"
	defaultOllamaHost  = "http://localhost:11434"
	ollamaPlaceholder  = "ollama"
	ollamaHostVariable = "OLLAMA_HOST"
)

// Request is the provider-neutral description of one refinement call.
type Request struct {
	System  string
	Prompt  string
	Model   models.Descriptor
	Dialect models.Dialect
	APIKey  string
}

// Adapter streams a completion from one backend family. The returned
// channel yields chunks in arrival order and is closed after a chunk with
// Done or Error set.
type Adapter interface {
	Stream(ctx context.Context, req Request) <-chan stream.Chunk
}

// Options configure adapter construction.
type Options struct {
	// BaseURL overrides the provider endpoint.
	BaseURL    string
	HTTPClient *http.Client
	// MaxRetries is passed to the SDKs; zero disables SDK retries.
	MaxRetries int
}

// New returns the adapter serving provider p.
func New(p models.Provider, optFns ...func(o *Options)) (Adapter, error) {
	opts := Options{HTTPClient: getHTTPClient()}
	for _, fn := range optFns {
		fn(&opts)
	}

	switch p {
	case models.ProviderOpenAI:
		return &OpenAI{provider: p, baseURL: opts.BaseURL, opts: opts}, nil
	case models.ProviderXAI:
		return &OpenAI{provider: p, baseURL: or(opts.BaseURL, xaiBaseURL), opts: opts}, nil
	case models.ProviderLocal:
		return &OpenAI{
			provider:    p,
			baseURL:     or(opts.BaseURL, OllamaHost()+"/v1/"),
			placeholder: ollamaPlaceholder,
			opts:        opts,
		}, nil
	case models.ProviderAnthropic:
		return &Anthropic{baseURL: opts.BaseURL, opts: opts}, nil
	case models.ProviderGoogle:
		return &Google{baseURL: opts.BaseURL, opts: opts}, nil
	default:
		return nil, fmt.Errorf("no adapter for provider %q", p)
	}
}

// OllamaHost returns the local runtime address, honouring OLLAMA_HOST.
func OllamaHost() string {
	host := strings.TrimRight(os.Getenv(ollamaHostVariable), "/")
	if host == "" {
		return defaultOllamaHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// failed returns a chunk stream that only carries err.
func failed(ctx context.Context, err error) <-chan stream.Chunk {
	p := stream.NewParser(ctx)
	go p.Process(errSource{err: err})
	return p.Chunks()
}

type errSource struct{ err error }

func (s errSource) Next() bool   { return false }
func (s errSource) Text() string { return "" }
func (s errSource) Err() error   { return s.err }
func (s errSource) Close() error { return nil }
