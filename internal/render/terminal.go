package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/cli/go-gh/v2/pkg/markdown"
	"github.com/cli/go-gh/v2/pkg/term"
)

var (
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TerminalRenderer frames and word-wraps a refined prompt as it streams in.
type TerminalRenderer struct {
	out       io.Writer
	plainText bool
	width     int
	wrapper   *Wrapper
}

func NewTerminalRenderer(out io.Writer, usePlainText bool, width int) *TerminalRenderer {
	return &TerminalRenderer{
		out:       out,
		plainText: usePlainText,
		width:     width,
		wrapper:   NewWrapper(out, width),
	}
}

// TerminalWidth returns the wrap width for the current terminal.
func TerminalWidth() int {
	cols, _, err := term.FromEnv().Size()
	if err != nil {
		return WrapWidth(0)
	}
	return WrapWidth(cols)
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.FromEnv().IsTerminalOutput()
}

// ShouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func ShouldUsePlainText() bool {
	if !IsTerminal() {
		return true
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}
	return false
}

// Begin prints the header above the refined prompt.
func (t *TerminalRenderer) Begin() error {
	rule := t.style(ruleStyle, strings.Repeat("─", t.width))
	_, err := fmt.Fprintf(t.out, "\n%s\n%s\n%s\n\n", rule, t.style(labelStyle, "REFINED PROMPT:"), rule)
	return err
}

// Write feeds streamed text to the word wrapper.
func (t *TerminalRenderer) Write(p []byte) (int, error) {
	return t.wrapper.Write(p)
}

// End flushes the wrapper and prints the closing rule. It must only be
// called once the stream completed successfully.
func (t *TerminalRenderer) End() error {
	if err := t.wrapper.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(t.out, "\n%s\n\n", t.style(ruleStyle, strings.Repeat("─", t.width)))
	return err
}

// Notice prints a highlighted informational line.
func (t *TerminalRenderer) Notice(msg string) {
	fmt.Fprintln(t.out, t.style(noticeStyle, msg))
}

// Success prints a confirmation line.
func (t *TerminalRenderer) Success(msg string) {
	fmt.Fprintln(t.out, t.style(successStyle, msg))
}

// Muted prints a de-emphasised line.
func (t *TerminalRenderer) Muted(msg string) {
	fmt.Fprintln(t.out, t.style(mutedStyle, msg))
}

// Markdown renders a static page such as help or the changelog.
func (t *TerminalRenderer) Markdown(content string) error {
	if t.plainText {
		_, err := fmt.Fprintln(t.out, strings.TrimSpace(content))
		return err
	}

	rendered, err := markdown.Render(content,
		markdown.WithWrap(t.width),
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = fmt.Fprintln(t.out, strings.TrimRight(rendered, "\n"))
	return err
}

func (t *TerminalRenderer) style(s lipgloss.Style, text string) string {
	if t.plainText {
		return text
	}
	return s.Render(text)
}

// Error formats an error line for stderr.
func Error(plain bool, msg string) string {
	if plain {
		return msg
	}
	return errorStyle.Render(msg)
}
