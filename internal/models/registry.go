// Package models holds the catalog of models promptx can talk to and the
// rules that decide how a request to each of them must be shaped.
package models

import (
	"sort"
	"strings"
)

// Provider identifies the backend family that serves a model.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderXAI       Provider = "xai"
	ProviderGoogle    Provider = "google"
	ProviderLocal     Provider = "local"
)

// Providers lists every provider in display order.
var Providers = []Provider{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderXAI,
	ProviderGoogle,
	ProviderLocal,
}

// DisplayName returns the human readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderXAI:
		return "xAI"
	case ProviderGoogle:
		return "Google"
	case ProviderLocal:
		return "Ollama"
	default:
		return string(p)
	}
}

// NeedsAPIKey reports whether requests to the provider carry a credential.
func (p Provider) NeedsAPIKey() bool {
	return p != ProviderLocal
}

// DefaultModelID is used whenever a configured model cannot be resolved.
const DefaultModelID = "gpt-4o"

// Descriptor is the resolved metadata record of a model. Descriptors are
// values and are never mutated after construction.
type Descriptor struct {
	ID       string
	Name     string
	Provider Provider
	Thinking bool

	// Dialect hints. Zero values defer to the provider rules in Capabilities.
	TokenField TokenField
	MaxTokens  int64
}

// Label renders the descriptor for menus, e.g. "GPT-4o (OpenAI)".
func (d Descriptor) Label() string {
	return d.Name + " (" + d.Provider.DisplayName() + ")"
}

var openAIModels = []Descriptor{
	{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: ProviderOpenAI},
	{ID: "gpt-4.1", Name: "GPT-4.1", Provider: ProviderOpenAI},
	{ID: "o3", Name: "o3", Provider: ProviderOpenAI, Thinking: true},
	{ID: "o4-mini", Name: "o4-mini", Provider: ProviderOpenAI, Thinking: true},
}

// Anthropic output ceilings are per model tier, not derivable from the id.
var anthropicModels = []Descriptor{
	{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", Provider: ProviderAnthropic, MaxTokens: 32000},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Provider: ProviderAnthropic, MaxTokens: 64000},
	{ID: "claude-3-7-sonnet-20250219", Name: "Claude 3.7 Sonnet", Provider: ProviderAnthropic, MaxTokens: 64000},
	{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Provider: ProviderAnthropic, MaxTokens: 8192},
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Provider: ProviderAnthropic, MaxTokens: 8192},
	{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Provider: ProviderAnthropic, MaxTokens: 4096},
}

var xaiModels = []Descriptor{
	{ID: "grok-4", Name: "Grok 4", Provider: ProviderXAI, Thinking: true},
	{ID: "grok-3", Name: "Grok 3", Provider: ProviderXAI},
	{ID: "grok-3-mini", Name: "Grok 3 Mini", Provider: ProviderXAI},
}

var googleModels = []Descriptor{
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: ProviderGoogle, Thinking: true},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: ProviderGoogle},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: ProviderGoogle},
}

// Catalog is an immutable view over the static provider tables merged with
// the most recent local-runtime discovery result.
type Catalog struct {
	local map[string]Descriptor
}

// NewCatalog builds a catalog. Local descriptors whose id collides with a
// static entry are ignored.
func NewCatalog(local map[string]Descriptor) Catalog {
	merged := make(map[string]Descriptor, len(local))
	for id, d := range local {
		if _, ok := lookupStatic(id); ok {
			continue
		}
		d.ID = id
		d.Provider = ProviderLocal
		merged[id] = d
	}
	return Catalog{local: merged}
}

// WithLocal returns a new catalog using the given discovery result. The
// receiver is left untouched.
func (c Catalog) WithLocal(local map[string]Descriptor) Catalog {
	return NewCatalog(local)
}

// Lookup finds a model by id. An untagged local id matches its ":latest"
// tag, as the local runtime does.
func (c Catalog) Lookup(id string) (Descriptor, bool) {
	if d, ok := lookupStatic(id); ok {
		return d, true
	}
	if d, ok := c.local[id]; ok {
		return d, true
	}
	if id != "" && !strings.Contains(id, ":") {
		d, ok := c.local[id+":latest"]
		return d, ok
	}
	return Descriptor{}, false
}

// Resolve finds a model by id, falling back to the default descriptor when
// the id is unknown. The boolean is false when the fallback was used so the
// caller can surface a warning.
func (c Catalog) Resolve(id string) (Descriptor, bool) {
	if d, ok := c.Lookup(id); ok {
		return d, true
	}
	d, _ := lookupStatic(DefaultModelID)
	return d, false
}

// ByProvider returns the models of one provider in display order.
func (c Catalog) ByProvider(p Provider) []Descriptor {
	if p == ProviderLocal {
		out := make([]Descriptor, 0, len(c.local))
		for _, d := range c.local {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}
	return append([]Descriptor(nil), staticTable(p)...)
}

// All returns every model grouped by provider.
func (c Catalog) All() []Descriptor {
	var out []Descriptor
	for _, p := range Providers {
		out = append(out, c.ByProvider(p)...)
	}
	return out
}

// IsStatic reports whether id belongs to one of the hosted provider tables.
func IsStatic(id string) bool {
	_, ok := lookupStatic(id)
	return ok
}

// LocalDescriptor builds the descriptor for a model pulled into the local
// runtime. The display name drops the ":tag" suffix.
func LocalDescriptor(id string) Descriptor {
	name := id
	if base, _, ok := strings.Cut(id, ":"); ok && base != "" {
		name = base
	}
	return Descriptor{ID: id, Name: name, Provider: ProviderLocal}
}

func staticTable(p Provider) []Descriptor {
	switch p {
	case ProviderOpenAI:
		return openAIModels
	case ProviderAnthropic:
		return anthropicModels
	case ProviderXAI:
		return xaiModels
	case ProviderGoogle:
		return googleModels
	default:
		return nil
	}
}

func lookupStatic(id string) (Descriptor, bool) {
	for _, p := range Providers {
		for _, d := range staticTable(p) {
			if d.ID == id {
				return d, true
			}
		}
	}
	return Descriptor{}, false
}
