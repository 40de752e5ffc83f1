package client

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/stream"
)

// OpenAI speaks the chat-completions protocol. It serves OpenAI itself and
// every compatible backend reachable through a base URL (xAI, Ollama).
type OpenAI struct {
	provider models.Provider
	baseURL  string
	// placeholder is sent when the backend ignores credentials
	placeholder string
	opts        Options
}

// Stream implements Adapter.
func (a *OpenAI) Stream(ctx context.Context, req Request) <-chan stream.Chunk {
	client := openai.NewClient(a.clientOptions(req.APIKey)...)
	s := client.Chat.Completions.NewStreaming(ctx, buildChatParams(req))

	p := stream.NewParser(ctx)
	go p.Process(&chatSource{stream: s, provider: a.provider})
	return p.Chunks()
}

func (a *OpenAI) clientOptions(apiKey string) []option.RequestOption {
	if apiKey == "" {
		apiKey = a.placeholder
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(a.opts.MaxRetries),
	}
	if a.baseURL != "" {
		opts = append(opts, option.WithBaseURL(a.baseURL))
	}
	if a.opts.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(a.opts.HTTPClient))
	}
	return opts
}

// buildChatParams applies the model dialect to a chat-completions request.
func buildChatParams(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model.ID,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Dialect.Temperature {
		params.Temperature = openai.Float(models.DefaultTemperature)
	}
	if req.Dialect.MaxTokens > 0 {
		if req.Dialect.TokenField == models.TokenFieldMaxCompletionTokens {
			params.MaxCompletionTokens = openai.Int(req.Dialect.MaxTokens)
		} else {
			params.MaxTokens = openai.Int(req.Dialect.MaxTokens)
		}
	}
	return params
}

type chatSource struct {
	stream   *ssestream.Stream[openai.ChatCompletionChunk]
	provider models.Provider
}

func (s *chatSource) Next() bool { return s.stream.Next() }

func (s *chatSource) Text() string {
	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}

func (s *chatSource) Err() error   { return Classify(s.provider, s.stream.Err()) }
func (s *chatSource) Close() error { return s.stream.Close() }
