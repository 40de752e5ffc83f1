package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cli/go-gh/v2/pkg/term"

	"github.com/luka-loehr/promptx-cli/internal/app"
	"github.com/luka-loehr/promptx-cli/internal/render"
)

// main wires the process streams into the app and exits with its status.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	t := term.FromEnv()
	code := app.Run(ctx, app.Env{
		Args:             os.Args[1:],
		Stdin:            os.Stdin,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		StdinIsTerminal:  isTerminal(os.Stdin),
		StdoutIsTerminal: t.IsTerminalOutput(),
		PlainText:        render.ShouldUsePlainText(),
		Width:            render.TerminalWidth(),
	}, app.Deps{})

	stop()
	os.Exit(code)
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}
