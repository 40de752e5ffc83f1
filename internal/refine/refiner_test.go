package refine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luka-loehr/promptx-cli/internal/client"
	"github.com/luka-loehr/promptx-cli/internal/config"
	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/render"
	"github.com/luka-loehr/promptx-cli/internal/stream"
)

type keys map[models.Provider]string

func (k keys) APIKey(p models.Provider) string { return k[p] }

type fakeAdapter struct {
	chunks []stream.Chunk
	calls  int
	req    client.Request
}

func (f *fakeAdapter) Stream(_ context.Context, req client.Request) <-chan stream.Chunk {
	f.calls++
	f.req = req
	ch := make(chan stream.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch
}

type recorder struct {
	events  []string
	written strings.Builder
	notices []string
}

func (r *recorder) Begin() error { r.events = append(r.events, "begin"); return nil }
func (r *recorder) End() error   { r.events = append(r.events, "end"); return nil }
func (r *recorder) Notice(msg string) {
	r.notices = append(r.notices, msg)
}
func (r *recorder) Write(p []byte) (int, error) {
	r.events = append(r.events, "write")
	return r.written.Write(p)
}

type fakeIndicator struct {
	log *[]string
}

func (f fakeIndicator) Start() { *f.log = append(*f.log, "start") }
func (f fakeIndicator) Stop()  { *f.log = append(*f.log, "stop") }

type fakeDiscoverer struct {
	found map[string]models.Descriptor
	err   error
	calls int
}

func (f *fakeDiscoverer) Discover(context.Context) (map[string]models.Descriptor, error) {
	f.calls++
	return f.found, f.err
}

func deltas(parts ...string) []stream.Chunk {
	out := make([]stream.Chunk, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, stream.Chunk{Content: p})
	}
	return append(out, stream.Chunk{Done: true})
}

func factory(a client.Adapter, seen *models.Provider) AdapterFactory {
	return func(p models.Provider) (client.Adapter, error) {
		if seen != nil {
			*seen = p
		}
		return a, nil
	}
}

func TestRefine_EndToEnd(t *testing.T) {
	adapter := &fakeAdapter{chunks: deltas(
		"Fix the login bug that occurs when ",
		"", "signing in with Google SSO. ",
		"Identify why the redirect loops and propose a fix.",
	)}
	var provider models.Provider
	var out bytes.Buffer

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{models.ProviderOpenAI: "sk-test"},
		NewAdapter:  factory(adapter, &provider),
		Renderer:    render.NewTerminalRenderer(&out, true, 30),
	})

	res, err := r.Refine(context.Background(), "fix my login bug its broken when i use google sso", "gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, models.ProviderOpenAI, provider)
	assert.Equal(t, "gpt-4o", adapter.req.Model.ID)
	assert.True(t, adapter.req.Dialect.Temperature)
	assert.Equal(t, models.TokenFieldMaxTokens, adapter.req.Dialect.TokenField)
	assert.Equal(t, SystemPrompt, adapter.req.System)
	assert.Equal(t, "sk-test", adapter.req.APIKey)
	assert.False(t, res.FellBack)
	assert.NotEmpty(t, res.Text)

	body := out.String()
	assert.Contains(t, body, "REFINED PROMPT:")
	for _, line := range strings.Split(body, "\n") {
		assert.LessOrEqual(t, render.VisibleWidth(line), 30)
	}
	joined := strings.Join(strings.Fields(body), " ")
	assert.Contains(t, joined, strings.Join(strings.Fields(res.Text), " "))
}

func TestRefine_RejectsKeyBeforeDispatch(t *testing.T) {
	adapter := &fakeAdapter{chunks: deltas("never")}
	called := false
	rec := &recorder{}

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{models.ProviderOpenAI: "pk-wrong"},
		NewAdapter: func(p models.Provider) (client.Adapter, error) {
			called = true
			return adapter, nil
		},
		Renderer: rec,
	})

	_, err := r.Refine(context.Background(), "fix my login bug its broken when i use google sso", "gpt-4o")
	assert.ErrorIs(t, err, config.ErrInvalidAPIKey)
	assert.False(t, called)
	assert.Zero(t, adapter.calls)
	assert.Empty(t, rec.events)
}

func TestRefine_UnknownModelFallsBack(t *testing.T) {
	adapter := &fakeAdapter{chunks: deltas("ok")}
	rec := &recorder{}
	disc := &fakeDiscoverer{err: errors.New("not installed")}

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{models.ProviderOpenAI: "sk-test"},
		NewAdapter:  factory(adapter, nil),
		Discoverer:  disc,
		Renderer:    rec,
	})

	res, err := r.Refine(context.Background(), "tidy this", "gpt-9-ultra")
	require.NoError(t, err)
	assert.True(t, res.FellBack)
	assert.Equal(t, models.DefaultModelID, res.Model.ID)
	assert.Equal(t, 1, disc.calls)
	require.Len(t, rec.notices, 1)
	assert.Contains(t, rec.notices[0], "gpt-9-ultra")
}

func TestRefine_DiscoversLocalModel(t *testing.T) {
	adapter := &fakeAdapter{chunks: deltas("ok")}
	var provider models.Provider
	disc := &fakeDiscoverer{found: map[string]models.Descriptor{
		"llama3.2:latest": models.LocalDescriptor("llama3.2:latest"),
	}}

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{},
		NewAdapter:  factory(adapter, &provider),
		Discoverer:  disc,
		Renderer:    &recorder{},
	})

	res, err := r.Refine(context.Background(), "tidy this", "llama3.2:latest")
	require.NoError(t, err)
	assert.False(t, res.FellBack)
	assert.Equal(t, models.ProviderLocal, provider)
	assert.Empty(t, adapter.req.APIKey)
}

func TestRefine_NoFlushOnError(t *testing.T) {
	boom := &client.ProviderError{Kind: client.ErrRateLimit, Provider: models.ProviderOpenAI, Status: 429, Err: errors.New("slow down")}
	adapter := &fakeAdapter{chunks: []stream.Chunk{{Content: "partial "}, {Error: boom}}}
	rec := &recorder{}

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{models.ProviderOpenAI: "sk-test"},
		NewAdapter:  factory(adapter, nil),
		Renderer:    rec,
	})

	res, err := r.Refine(context.Background(), "tidy this", "gpt-4o")
	assert.ErrorIs(t, err, client.ErrRateLimit)
	assert.Equal(t, []string{"begin", "write"}, rec.events)
	assert.Equal(t, "partial ", res.Text)
}

func TestRefine_ThinkingIndicator(t *testing.T) {
	adapter := &fakeAdapter{chunks: deltas("", "first", " second")}
	rec := &recorder{}
	var log []string

	r := New(Options{
		Catalog:      models.NewCatalog(nil),
		Credentials:  keys{models.ProviderOpenAI: "sk-test"},
		NewAdapter:   factory(adapter, nil),
		NewIndicator: func(string) Indicator { return fakeIndicator{log: &log} },
		Renderer:     rec,
	})

	res, err := r.Refine(context.Background(), "tidy this", "o3")
	require.NoError(t, err)
	assert.Equal(t, "first second", res.Text)
	assert.Equal(t, "first second", rec.written.String())
	require.GreaterOrEqual(t, len(log), 2)
	assert.Equal(t, []string{"start", "stop"}, log[:2])
	assert.False(t, adapter.req.Dialect.Temperature)
	assert.Equal(t, models.TokenFieldMaxCompletionTokens, adapter.req.Dialect.TokenField)
}

func TestRefine_StandardModelSkipsIndicator(t *testing.T) {
	adapter := &fakeAdapter{chunks: deltas("ok")}
	var log []string

	r := New(Options{
		Catalog:      models.NewCatalog(nil),
		Credentials:  keys{models.ProviderOpenAI: "sk-test"},
		NewAdapter:   factory(adapter, nil),
		NewIndicator: func(string) Indicator { return fakeIndicator{log: &log} },
		Renderer:     &recorder{},
	})

	_, err := r.Refine(context.Background(), "tidy this", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestRefine_EmptyPrompt(t *testing.T) {
	r := New(Options{Credentials: keys{}, Renderer: &recorder{}})
	_, err := r.Refine(context.Background(), "   ", "gpt-4o")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestRefine_EndsOnce(t *testing.T) {
	adapter := &fakeAdapter{chunks: deltas("a", "b")}
	rec := &recorder{}

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{models.ProviderAnthropic: "sk-ant-x"},
		NewAdapter:  factory(adapter, nil),
		Renderer:    rec,
	})

	_, err := r.Refine(context.Background(), "tidy", "claude-3-5-haiku-20241022")
	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "write", "write", "end"}, rec.events)
}

func TestRefine_CancelledWithoutTerminalChunk(t *testing.T) {
	// the stream closes after a delta without Done or Error, as happens when
	// the cancellation error cannot be handed over
	adapter := &fakeAdapter{chunks: []stream.Chunk{{Content: "partial"}}}
	rec := &recorder{}

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{models.ProviderOpenAI: "sk-test"},
		NewAdapter:  factory(adapter, nil),
		Renderer:    rec,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Refine(ctx, "tidy this", "gpt-4o")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Cancelled.", Remediation(err))
	assert.NotContains(t, rec.events, "end")
}

func TestRefine_StreamClosedEarly(t *testing.T) {
	adapter := &fakeAdapter{chunks: []stream.Chunk{{Content: "partial"}}}

	r := New(Options{
		Catalog:     models.NewCatalog(nil),
		Credentials: keys{models.ProviderOpenAI: "sk-test"},
		NewAdapter:  factory(adapter, nil),
		Renderer:    &recorder{},
	})

	_, err := r.Refine(context.Background(), "tidy this", "gpt-4o")
	assert.ErrorIs(t, err, client.ErrUnknownProvider)
}
