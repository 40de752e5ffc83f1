// Package changelog holds the release notes shown by /whats-new.
package changelog

import (
	"fmt"
	"strings"
)

// Entry is one release.
type Entry struct {
	Version string
	Changes []string
}

// Entries lists releases, newest first.
var Entries = []Entry{
	{
		Version: "2.0.0",
		Changes: []string{
			"Streaming output: the refined prompt is printed as it is generated, wrapped to your terminal",
			"xAI Grok and Google Gemini models",
			"Local models through Ollama, discovered automatically",
			"Thinking models show an indicator until the first words arrive",
			"`--copy` puts the refined prompt on your clipboard",
			"API keys can come from environment variables",
		},
	},
	{
		Version: "1.1.0",
		Changes: []string{
			"Multi-model support: choose between GPT-4o, GPT-4o Mini, O3, Claude 3.5 Sonnet, and Claude 3 Opus",
			"`/model` command: switch models on the fly",
			"Interactive setup wizard for model and API key configuration",
			"`/whats-new` command: see the latest updates",
			"Support for both OpenAI and Anthropic API keys",
		},
	},
	{
		Version: "1.0.2",
		Changes: []string{
			"Improved installation instructions",
			"Post-install warnings for local installation",
		},
	},
}

// Markdown renders the entries sharing the major version of current.
func Markdown(current string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# What's new in promptx v%s\n\n", current)

	major := majorOf(current)
	for _, e := range Entries {
		if majorOf(e.Version) != major {
			continue
		}
		fmt.Fprintf(&b, "## v%s\n\n", e.Version)
		for _, c := range e.Changes {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}
	b.WriteString("For more info: https://github.com/luka-loehr/promptx-cli\n")
	return b.String()
}

func majorOf(version string) string {
	major, _, _ := strings.Cut(strings.TrimPrefix(version, "v"), ".")
	return major
}
