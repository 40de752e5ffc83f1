package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/stream"
)

func collect(t *testing.T, ch <-chan stream.Chunk) (string, error) {
	t.Helper()
	var b strings.Builder
	for chunk := range ch {
		if chunk.Error != nil {
			return b.String(), chunk.Error
		}
		if chunk.Done {
			return b.String(), nil
		}
		b.WriteString(chunk.Content)
	}
	t.Fatal("stream closed without a terminal chunk")
	return "", nil
}

func request(t *testing.T, id string) Request {
	t.Helper()
	d, ok := models.NewCatalog(nil).Lookup(id)
	require.True(t, ok, id)
	return Request{
		System:  "system",
		Prompt:  "fix my login bug",
		Model:   d,
		Dialect: models.Capabilities(d),
		APIKey:  "sk-test",
	}
}

// chatServer replays deltas as an OpenAI chat-completions event stream and
// records the decoded request body.
func chatServer(t *testing.T, deltas []string, body *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, body))

		w.Header().Set("Content-Type", "text/event-stream")
		for i, d := range deltas {
			chunk := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   "gpt-4o",
				"choices": []map[string]any{{
					"index": 0,
					"delta": map[string]any{"content": d},
				}},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			if i == 0 {
				w.(http.Flusher).Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func withServer(url string) func(*Options) {
	return func(o *Options) {
		o.BaseURL = url + "/"
		o.MaxRetries = 0
	}
}

func TestNew_Dispatch(t *testing.T) {
	for _, p := range models.Providers {
		a, err := New(p)
		require.NoError(t, err, p)
		switch p {
		case models.ProviderAnthropic:
			assert.IsType(t, &Anthropic{}, a)
		case models.ProviderGoogle:
			assert.IsType(t, &Google{}, a)
		default:
			assert.IsType(t, &OpenAI{}, a)
		}
	}

	_, err := New(models.Provider("acme"))
	assert.Error(t, err)
}

func TestNew_CompatibleEndpoints(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "127.0.0.1:9999")

	a, err := New(models.ProviderXAI)
	require.NoError(t, err)
	assert.Equal(t, "https://api.x.ai/v1/", a.(*OpenAI).baseURL)

	a, err = New(models.ProviderLocal)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999/v1/", a.(*OpenAI).baseURL)
	assert.Equal(t, "ollama", a.(*OpenAI).placeholder)
}

func TestOllamaHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	assert.Equal(t, "http://localhost:11434", OllamaHost())

	t.Setenv("OLLAMA_HOST", "https://gpu-box:11434/")
	assert.Equal(t, "https://gpu-box:11434", OllamaHost())
}

func TestOpenAI_StreamsStandardDialect(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, []string{"Fix ", "", "the login ", "bug."}, &body)
	defer srv.Close()

	a, err := New(models.ProviderOpenAI, withServer(srv.URL))
	require.NoError(t, err)

	text, err := collect(t, a.Stream(context.Background(), request(t, "gpt-4o")))
	require.NoError(t, err)
	assert.Equal(t, "Fix the login bug.", text)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, 0.3, body["temperature"])
	assert.Equal(t, float64(2000), body["max_tokens"])
	assert.NotContains(t, body, "max_completion_tokens")
	assert.Equal(t, true, body["stream"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAI_ThinkingDialect(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, []string{"ok"}, &body)
	defer srv.Close()

	a, err := New(models.ProviderOpenAI, withServer(srv.URL))
	require.NoError(t, err)

	_, err = collect(t, a.Stream(context.Background(), request(t, "o3")))
	require.NoError(t, err)

	assert.NotContains(t, body, "temperature")
	assert.NotContains(t, body, "max_tokens")
	assert.Equal(t, float64(8000), body["max_completion_tokens"])
}

func TestOpenAI_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	a, err := New(models.ProviderOpenAI, withServer(srv.URL))
	require.NoError(t, err)

	_, err = collect(t, a.Stream(context.Background(), request(t, "gpt-4o")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Equal(t, models.ProviderOpenAI, pe.Provider)
}

func TestOpenAI_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	}))
	defer srv.Close()

	a, err := New(models.ProviderXAI, withServer(srv.URL))
	require.NoError(t, err)

	_, err = collect(t, a.Stream(context.Background(), request(t, "grok-3")))
	assert.ErrorIs(t, err, ErrRateLimit)
}

func TestLocal_RuntimeDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a, err := New(models.ProviderLocal, withServer(url+"/v1"))
	require.NoError(t, err)

	req := Request{
		System:  "system",
		Prompt:  "hi",
		Model:   models.LocalDescriptor("llama3:8b"),
		Dialect: models.Capabilities(models.LocalDescriptor("llama3:8b")),
	}
	_, err = collect(t, a.Stream(context.Background(), req))
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
}

func TestAnthropic_Streams(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "text/event-stream")
		events := []struct{ name, data string }{
			{"message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}}`},
			{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
			{"ping", `{"type":"ping"}`},
			{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Refactor "}}`},
			{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"the handler."}}`},
			{"content_block_stop", `{"type":"content_block_stop","index":0}`},
			{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":4}}`},
			{"message_stop", `{"type":"message_stop"}`},
		}
		for _, e := range events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, e.data)
		}
	}))
	defer srv.Close()

	a, err := New(models.ProviderAnthropic, withServer(srv.URL))
	require.NoError(t, err)

	req := request(t, "claude-3-5-sonnet-20241022")
	req.APIKey = "sk-ant-test"
	text, err := collect(t, a.Stream(context.Background(), req))
	require.NoError(t, err)
	assert.Equal(t, "Refactor the handler.", text)

	assert.Equal(t, "claude-3-5-sonnet-20241022", body["model"])
	assert.Equal(t, 0.3, body["temperature"])
	assert.Equal(t, float64(8192), body["max_tokens"])
	system := body["system"].([]any)
	assert.Equal(t, "system", system[0].(map[string]any)["text"])
}

func TestAnthropic_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	a, err := New(models.ProviderAnthropic, withServer(srv.URL))
	require.NoError(t, err)

	_, err = collect(t, a.Stream(context.Background(), request(t, "claude-3-5-sonnet-20241022")))
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestGoogle_Streams(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "AIza-test", r.Header.Get("X-Goog-Api-Key"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Fix ", "the SSO", ""} {
			chunk := map[string]any{
				"candidates": []map[string]any{{
					"index": 0,
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"text": part}},
					},
				}},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
	}))
	defer srv.Close()

	a, err := New(models.ProviderGoogle, withServer(srv.URL))
	require.NoError(t, err)

	req := request(t, "gemini-2.0-flash")
	req.APIKey = "AIza-test"
	text, err := collect(t, a.Stream(context.Background(), req))
	require.NoError(t, err)
	assert.Equal(t, "Fix the SSO", text)

	cfg := body["generationConfig"].(map[string]any)
	assert.InDelta(t, 0.3, cfg["temperature"], 1e-6)
	assert.Equal(t, float64(4096), cfg["maxOutputTokens"])
	require.Contains(t, body, "systemInstruction")
}

func TestGoogle_InvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	a, err := New(models.ProviderGoogle, withServer(srv.URL))
	require.NoError(t, err)

	req := request(t, "gemini-2.0-flash")
	req.APIKey = "AIza-wrong"
	_, err = collect(t, a.Stream(context.Background(), req))
	assert.ErrorIs(t, err, ErrAuthentication)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Equal(t, models.ProviderGoogle, pe.Provider)
}

func TestBuildContentConfig(t *testing.T) {
	cfg := buildContentConfig(request(t, "gemini-2.0-flash"))
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	assert.Equal(t, int32(4096), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "system", cfg.SystemInstruction.Parts[0].Text)

	cfg = buildContentConfig(request(t, "gemini-2.5-pro"))
	assert.Nil(t, cfg.Temperature)
	assert.Equal(t, int32(16000), cfg.MaxOutputTokens)
}
