package models

import "regexp"

// TokenField names the request field that caps the completion length.
type TokenField string

const (
	TokenFieldMaxTokens           TokenField = "max_tokens"
	TokenFieldMaxCompletionTokens TokenField = "max_completion_tokens"
	TokenFieldMaxOutputTokens     TokenField = "maxOutputTokens"
)

// DefaultTemperature is sent to every model whose dialect accepts one.
const DefaultTemperature = 0.3

const (
	standardMaxTokens  int64 = 2000
	reasoningMaxTokens int64 = 8000
	xaiReasoningTokens int64 = 32000
	googleMaxTokens    int64 = 4096
	googleThinkTokens  int64 = 16000
	anthropicFallback  int64 = 4096
)

// OpenAI reasoning models are named o1, o3, o4-mini, ...
var openAIReasoningTier = regexp.MustCompile(`^o\d`)

// Dialect is the resolved shape of a completion request for one model.
type Dialect struct {
	TokenField  TokenField
	Temperature bool
	MaxTokens   int64
}

// IsThinking reports whether the model reasons before emitting output.
func IsThinking(d Descriptor) bool {
	if d.Thinking {
		return true
	}
	return d.Provider == ProviderOpenAI && openAIReasoningTier.MatchString(d.ID)
}

// Capabilities resolves the request dialect of a model.
func Capabilities(d Descriptor) Dialect {
	var dl Dialect
	switch d.Provider {
	case ProviderOpenAI:
		if IsThinking(d) {
			dl = Dialect{TokenField: TokenFieldMaxCompletionTokens, MaxTokens: reasoningMaxTokens}
		} else {
			dl = Dialect{TokenField: TokenFieldMaxTokens, Temperature: true, MaxTokens: standardMaxTokens}
		}
	case ProviderXAI:
		if IsThinking(d) {
			dl = Dialect{TokenField: TokenFieldMaxCompletionTokens, MaxTokens: xaiReasoningTokens}
		} else {
			dl = Dialect{TokenField: TokenFieldMaxTokens, Temperature: true, MaxTokens: standardMaxTokens}
		}
	case ProviderAnthropic:
		dl = Dialect{TokenField: TokenFieldMaxTokens, Temperature: true, MaxTokens: anthropicFallback}
	case ProviderGoogle:
		if IsThinking(d) {
			dl = Dialect{TokenField: TokenFieldMaxOutputTokens, MaxTokens: googleThinkTokens}
		} else {
			dl = Dialect{TokenField: TokenFieldMaxOutputTokens, Temperature: true, MaxTokens: googleMaxTokens}
		}
	default:
		dl = Dialect{TokenField: TokenFieldMaxTokens, Temperature: true, MaxTokens: standardMaxTokens}
	}

	if d.TokenField != "" {
		dl.TokenField = d.TokenField
	}
	if d.MaxTokens > 0 {
		dl.MaxTokens = d.MaxTokens
	}
	return dl
}
