package client

import (
	"context"
	"iter"

	"google.golang.org/genai"

	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/stream"
)

// Google speaks the Gemini generative-content API.
type Google struct {
	baseURL string
	opts    Options
}

// Stream implements Adapter.
func (a *Google) Stream(ctx context.Context, req Request) <-chan stream.Chunk {
	cfg := &genai.ClientConfig{
		APIKey:     req.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.opts.HTTPClient,
	}
	if a.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: a.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return failed(ctx, Classify(models.ProviderGoogle, err))
	}

	seq := client.Models.GenerateContentStream(ctx, req.Model.ID, genai.Text(req.Prompt), buildContentConfig(req))
	next, stop := iter.Pull2(seq)

	p := stream.NewParser(ctx)
	go p.Process(&contentSource{next: next, stop: stop})
	return p.Chunks()
}

// buildContentConfig applies the model dialect to a generate-content call.
func buildContentConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		MaxOutputTokens:   int32(req.Dialect.MaxTokens),
	}
	if req.Dialect.Temperature {
		cfg.Temperature = genai.Ptr[float32](models.DefaultTemperature)
	}
	return cfg
}

type contentSource struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	current *genai.GenerateContentResponse
	err     error
}

func (s *contentSource) Next() bool {
	resp, err, ok := s.next()
	if !ok {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	s.current = resp
	return true
}

func (s *contentSource) Text() string {
	if s.current == nil {
		return ""
	}
	return s.current.Text()
}

func (s *contentSource) Err() error { return Classify(models.ProviderGoogle, s.err) }

func (s *contentSource) Close() error {
	s.stop()
	return nil
}
