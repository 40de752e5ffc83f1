package render

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const (
	// DefaultColumns is assumed when the terminal width cannot be read.
	DefaultColumns = 80
	// WrapMargin is kept free on the right edge of the terminal.
	WrapMargin = 4
	// MaxWrapWidth caps the width on very wide terminals.
	MaxWrapWidth = 100
)

// WrapWidth applies the width policy to a terminal column count.
func WrapWidth(columns int) int {
	if columns <= 0 {
		columns = DefaultColumns
	}
	w := columns - WrapMargin
	if w > MaxWrapWidth {
		w = MaxWrapWidth
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Wrapper re-flows streamed text into lines no wider than its width. Text is
// buffered until a line is known to be complete, then written to the
// underlying writer with a trailing newline.
type Wrapper struct {
	out   io.Writer
	width int
	buf   strings.Builder
	// open is set while the current logical line has received any bytes,
	// including ones already written by an eager wrap.
	open bool
	// softTail is set when the buffer is empty because an eager wrap ended
	// on a break that consumed a trailing space.
	softTail bool
}

// NewWrapper creates a Wrapper writing to out. A width below 1 disables
// wrapping.
func NewWrapper(out io.Writer, width int) *Wrapper {
	return &Wrapper{out: out, width: width}
}

// Write appends a fragment. Every complete line in the buffer is wrapped and
// written; a buffered tail wider than the width is wrapped eagerly so only
// its last physical line stays pending.
func (w *Wrapper) Write(p []byte) (int, error) {
	// a line that ended on a consumed space is already fully written
	skipFirst := w.softTail && len(p) > 0 && p[0] == '\n'
	if len(p) > 0 {
		w.softTail = false
	}

	w.buf.Write(p)
	pending := w.buf.String()

	segments := strings.Split(pending, "\n")
	tail := segments[len(segments)-1]
	complete := segments[:len(segments)-1]
	if skipFirst {
		complete = complete[1:]
	}
	for _, seg := range complete {
		if err := w.emit(WrapLine(seg, w.width)); err != nil {
			return 0, err
		}
	}

	if w.width > 0 && VisibleWidth(tail) > w.width {
		segs := wrapSegments(tail, w.width)
		for _, s := range segs[:len(segs)-1] {
			if err := w.emit([]string{s.text}); err != nil {
				return 0, err
			}
		}
		tail = segs[len(segs)-1].text
		w.softTail = tail == "" && segs[len(segs)-2].soft
	}

	w.buf.Reset()
	w.buf.WriteString(tail)
	if i := strings.LastIndexByte(string(p), '\n'); i >= 0 {
		w.open = i < len(p)-1
	} else if len(p) > 0 {
		w.open = true
	}
	return len(p), nil
}

// Flush wraps and writes whatever is still buffered.
func (w *Wrapper) Flush() error {
	if !w.open {
		return nil
	}
	rest := w.buf.String()
	w.buf.Reset()
	w.open = false
	if w.softTail && rest == "" {
		w.softTail = false
		return nil
	}
	return w.emit(WrapLine(rest, w.width))
}

// Buffered returns the text not yet written.
func (w *Wrapper) Buffered() string {
	return w.buf.String()
}

func (w *Wrapper) emit(lines []string) error {
	for _, l := range lines {
		if _, err := io.WriteString(w.out, l+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// VisibleWidth is the printed width of s, ignoring ANSI escape sequences.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}

// WrapLine splits one logical line into physical lines of at most width
// columns. A break at a word boundary consumes exactly one space; a word
// wider than the line is split without dropping anything. Escape sequences
// do not count towards the width. A line ending in a space at the width
// boundary yields no trailing empty line.
func WrapLine(line string, width int) []string {
	segs := wrapSegments(line, width)
	if n := len(segs); n > 1 && segs[n-1].text == "" && segs[n-2].soft {
		segs = segs[:n-1]
	}
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.text
	}
	return out
}

// segment is one physical line. soft is set when the break after it
// consumed a space.
type segment struct {
	text string
	soft bool
}

func wrapSegments(line string, width int) []segment {
	if width < 1 || VisibleWidth(line) <= width {
		return []segment{{text: line}}
	}

	var out []segment
	for {
		cut, lastSpace := fitPrefix(line, width)
		if cut >= len(line) {
			return append(out, segment{text: line})
		}

		switch {
		case line[cut] == ' ':
			out = append(out, segment{text: line[:cut], soft: true})
			line = line[cut+1:]
		case lastSpace > 0:
			out = append(out, segment{text: line[:lastSpace], soft: true})
			line = line[lastSpace+1:]
		default:
			if cut == 0 {
				// a single rune wider than the line
				_, size := utf8.DecodeRuneInString(line)
				cut = size
			}
			out = append(out, segment{text: line[:cut]})
			line = line[cut:]
		}

		if VisibleWidth(line) <= width {
			return append(out, segment{text: line})
		}
	}
}

// fitPrefix returns the byte length of the longest prefix of s whose visible
// width fits in width, and the byte offset of the last space inside it.
// Escape sequences directly following the prefix are folded into it.
func fitPrefix(s string, width int) (cut, lastSpace int) {
	cols := 0
	i := 0
	lastSpace = -1
	for i < len(s) {
		if n := escapeLen(s[i:]); n > 0 {
			i += n
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		rw := runewidth.RuneWidth(r)
		if cols+rw > width {
			break
		}
		if r == ' ' {
			lastSpace = i
		}
		cols += rw
		i += size
	}
	return i, lastSpace
}

// escapeLen returns the length of the escape sequence at the start of s, or
// zero when s does not start with one.
func escapeLen(s string) int {
	if len(s) < 2 || s[0] != ansi.ESC {
		return 0
	}
	switch s[1] {
	case '[':
		for j := 2; j < len(s); j++ {
			if s[j] >= 0x40 && s[j] <= 0x7e {
				return j + 1
			}
		}
		return len(s)
	case ']':
		for j := 2; j < len(s); j++ {
			if s[j] == ansi.BEL {
				return j + 1
			}
			if s[j] == ansi.ESC && j+1 < len(s) && s[j+1] == '\\' {
				return j + 2
			}
		}
		return len(s)
	default:
		return 2
	}
}
