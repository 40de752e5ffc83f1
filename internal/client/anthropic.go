package client

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/stream"
)

// Anthropic speaks the Messages API.
type Anthropic struct {
	baseURL string
	opts    Options
}

// Stream implements Adapter.
func (a *Anthropic) Stream(ctx context.Context, req Request) <-chan stream.Chunk {
	opts := []option.RequestOption{
		option.WithAPIKey(req.APIKey),
		option.WithMaxRetries(a.opts.MaxRetries),
	}
	if a.baseURL != "" {
		opts = append(opts, option.WithBaseURL(a.baseURL))
	}
	if a.opts.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(a.opts.HTTPClient))
	}

	client := anthropic.NewClient(opts...)
	s := client.Messages.NewStreaming(ctx, buildMessageParams(req))

	p := stream.NewParser(ctx)
	go p.Process(&messageSource{stream: s})
	return p.Chunks()
}

// buildMessageParams applies the model dialect to a Messages request.
func buildMessageParams(req Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model.ID),
		MaxTokens: req.Dialect.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Dialect.Temperature {
		params.Temperature = anthropic.Float(models.DefaultTemperature)
	}
	return params
}

type messageSource struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (s *messageSource) Next() bool { return s.stream.Next() }

// Text extracts text deltas; every other event type carries no output.
func (s *messageSource) Text() string {
	event := s.stream.Current()
	switch ev := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
			return delta.Text
		}
	}
	return ""
}

func (s *messageSource) Err() error   { return Classify(models.ProviderAnthropic, s.stream.Err()) }
func (s *messageSource) Close() error { return s.stream.Close() }
