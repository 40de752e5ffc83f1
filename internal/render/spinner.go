package render

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner shows a waiting indicator on a single terminal line until it is
// stopped. It is purely a side display and never touches stream content.
type Spinner struct {
	out    io.Writer
	label  string
	frames []string
	fps    time.Duration

	started bool
	once    sync.Once
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a spinner with the bubbles MiniDot animation.
func NewSpinner(out io.Writer, label string) *Spinner {
	return &Spinner{
		out:    out,
		label:  label,
		frames: spinner.MiniDot.Frames,
		fps:    spinner.MiniDot.FPS,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins drawing frames in the background.
func (s *Spinner) Start() {
	s.started = true
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.fps)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := noticeStyle.Render(s.frames[i%len(s.frames)])
		fmt.Fprintf(s.out, "\r%s %s", frame, mutedStyle.Render(s.label))
		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r\x1b[2K")
			return
		case <-ticker.C:
		}
	}
}

// Stop clears the spinner line. It is safe to call more than once and
// blocks until the line has been cleared.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		if s.started {
			<-s.done
		}
	})
}
