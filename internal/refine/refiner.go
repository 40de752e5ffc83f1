// Package refine drives one refinement: it resolves the model, checks the
// credential, streams the answer through the renderer and reports failures.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luka-loehr/promptx-cli/internal/client"
	"github.com/luka-loehr/promptx-cli/internal/config"
	"github.com/luka-loehr/promptx-cli/internal/logging"
	"github.com/luka-loehr/promptx-cli/internal/models"
)

// ErrEmptyPrompt is returned when there is nothing to refine.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// Renderer receives the streamed answer.
type Renderer interface {
	Begin() error
	Write(p []byte) (int, error)
	End() error
	Notice(msg string)
}

// Indicator is shown while a thinking model has not produced output yet.
type Indicator interface {
	Start()
	Stop()
}

// Credentials supplies the API key for a provider.
type Credentials interface {
	APIKey(p models.Provider) string
}

// Discoverer lists local models on demand.
type Discoverer interface {
	Discover(ctx context.Context) (map[string]models.Descriptor, error)
}

// AdapterFactory returns the adapter serving a provider.
type AdapterFactory func(p models.Provider) (client.Adapter, error)

// Refiner runs refinements. A Refiner is used for a single invocation.
type Refiner struct {
	catalog      models.Catalog
	credentials  Credentials
	newAdapter   AdapterFactory
	discoverer   Discoverer
	newIndicator func(label string) Indicator
	renderer     Renderer
	logger       logging.Logger
}

// Options configure a Refiner.
type Options struct {
	Catalog      models.Catalog
	Credentials  Credentials
	NewAdapter   AdapterFactory
	Discoverer   Discoverer
	NewIndicator func(label string) Indicator
	Renderer     Renderer
	Logger       logging.Logger
}

// New creates a Refiner. Missing collaborators get working defaults except
// for Credentials and Renderer, which are required.
func New(opts Options) *Refiner {
	r := &Refiner{
		catalog:      opts.Catalog,
		credentials:  opts.Credentials,
		newAdapter:   opts.NewAdapter,
		discoverer:   opts.Discoverer,
		newIndicator: opts.NewIndicator,
		renderer:     opts.Renderer,
		logger:       opts.Logger,
	}
	if r.newAdapter == nil {
		r.newAdapter = func(p models.Provider) (client.Adapter, error) { return client.New(p) }
	}
	if r.newIndicator == nil {
		r.newIndicator = func(string) Indicator { return noIndicator{} }
	}
	if r.logger == nil {
		r.logger = logging.NoOpLogger{}
	}
	return r
}

// Result describes a completed refinement.
type Result struct {
	Model models.Descriptor
	// FellBack is set when the requested model was unknown.
	FellBack bool
	Text     string
}

// Resolve finds the descriptor for id. Unknown ids that could be local
// models trigger one discovery attempt; anything still unknown falls back to
// the default model.
func (r *Refiner) Resolve(ctx context.Context, id string) (models.Descriptor, bool) {
	if d, ok := r.catalog.Lookup(id); ok {
		return d, true
	}
	if r.discoverer != nil && !models.IsStatic(id) {
		local, err := r.discoverer.Discover(ctx)
		if err != nil {
			r.logger.Debug("local discovery failed", "model", id, "error", err)
		} else {
			r.catalog = r.catalog.WithLocal(local)
		}
	}
	return r.catalog.Resolve(id)
}

// Refine rewrites prompt with the model named by modelID and streams the
// answer to the renderer.
func (r *Refiner) Refine(ctx context.Context, prompt, modelID string) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d, ok := r.Resolve(ctx, modelID)
	res := Result{Model: d, FellBack: !ok}
	if !ok {
		r.logger.Warn("unknown model, using default", "requested", modelID, "model", d.ID)
		r.renderer.Notice(fmt.Sprintf("Model %q is not available, using %s instead.", modelID, d.Name))
	}

	key := r.credentials.APIKey(d.Provider)
	if err := config.ValidateAPIKey(d.Provider, key); err != nil {
		return res, err
	}

	adapter, err := r.newAdapter(d.Provider)
	if err != nil {
		return res, err
	}

	dialect := models.Capabilities(d)
	r.logger.Debug("dispatching",
		"model", d.ID,
		"provider", d.Provider,
		"token_field", dialect.TokenField,
		"max_tokens", dialect.MaxTokens,
		"temperature", dialect.Temperature,
	)

	indicator := Indicator(noIndicator{})
	if models.IsThinking(d) {
		indicator = r.newIndicator(fmt.Sprintf("%s is thinking...", d.Name))
		indicator.Start()
	}
	defer indicator.Stop()

	chunks := adapter.Stream(ctx, client.Request{
		System:  SystemPrompt,
		Prompt:  prompt,
		Model:   d,
		Dialect: dialect,
		APIKey:  key,
	})

	var text strings.Builder
	begun := false
	begin := func() error {
		if begun {
			return nil
		}
		begun = true
		indicator.Stop()
		return r.renderer.Begin()
	}

	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			indicator.Stop()
			r.logger.Debug("stream failed", "model", d.ID, "error", chunk.Error)
			res.Text = text.String()
			return res, chunk.Error
		case chunk.Done:
			if err := begin(); err != nil {
				return res, err
			}
			if err := r.renderer.End(); err != nil {
				return res, err
			}
			res.Text = text.String()
			return res, nil
		case chunk.Content != "":
			if err := begin(); err != nil {
				return res, err
			}
			text.WriteString(chunk.Content)
			if _, err := r.renderer.Write([]byte(chunk.Content)); err != nil {
				return res, err
			}
		}
	}

	res.Text = text.String()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, fmt.Errorf("%s stream ended unexpectedly: %w", d.Provider, client.ErrUnknownProvider)
}

type noIndicator struct{}

func (noIndicator) Start() {}
func (noIndicator) Stop()  {}
