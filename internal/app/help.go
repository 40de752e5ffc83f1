package app

const helpMarkdown = `# promptx

Transform messy prompts into structured, clear prompts for AI agents.

## Usage

    promptx "fix my login bug its broken when i use google sso"
    git diff | promptx "write a commit message prompt for this"
    promptx            # type the prompt interactively

## Commands

- ` + "`/model`" + ` switch the AI model (OpenAI, Anthropic, xAI, Google, or local Ollama models)
- ` + "`/whats-new`" + ` show recent changes (also ` + "`/whatsnew`, `/changelog`" + `)
- ` + "`/help`" + ` show this page
- ` + "`promptx reset`" + ` forget the selected model and all stored API keys

## Flags

- ` + "`-m, --model <id>`" + ` use a model for one request without saving it
- ` + "`-c, --copy`" + ` copy the refined prompt to the clipboard
- ` + "`--plain`" + ` disable colors and the thinking indicator
- ` + "`--verbose`" + ` log diagnostics to stderr

## Environment

API keys are read from ` + "`OPENAI_API_KEY`, `ANTHROPIC_API_KEY`, `XAI_API_KEY`" + ` and
` + "`GEMINI_API_KEY`" + ` before the stored configuration. ` + "`PROMPTX_MODEL`" + ` overrides the
selected model and ` + "`OLLAMA_HOST`" + ` points at a non-default Ollama server.
`
