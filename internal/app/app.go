// Package app wires configuration, argument parsing and the refinement flow
// into a single entry point.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/atotto/clipboard"

	"github.com/luka-loehr/promptx-cli/internal/args"
	"github.com/luka-loehr/promptx-cli/internal/changelog"
	"github.com/luka-loehr/promptx-cli/internal/client"
	"github.com/luka-loehr/promptx-cli/internal/config"
	"github.com/luka-loehr/promptx-cli/internal/logging"
	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/ollama"
	"github.com/luka-loehr/promptx-cli/internal/refine"
	"github.com/luka-loehr/promptx-cli/internal/render"
	"github.com/luka-loehr/promptx-cli/internal/setup"
)

// Version is set at build time.
var Version = "2.0.0"

// Env describes the process the application runs in.
type Env struct {
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	StdinIsTerminal  bool
	StdoutIsTerminal bool
	// PlainText is the detected default for --plain.
	PlainText bool
	Width     int

	// ConfigDir overrides the XDG config location.
	ConfigDir string
}

// Deps are the collaborators that talk to the outside world.
type Deps struct {
	NewAdapter refine.AdapterFactory
	Discoverer setup.Discoverer
	Prompter   setup.Prompter
	Clipboard  func(text string) error
}

func (d *Deps) fill(env Env) {
	if d.NewAdapter == nil {
		d.NewAdapter = func(p models.Provider) (client.Adapter, error) { return client.New(p) }
	}
	if d.Discoverer == nil {
		d.Discoverer = ollama.NewProber(client.OllamaHost(), nil)
	}
	if d.Prompter == nil {
		d.Prompter = setup.NewTeaPrompter(env.Stdin, env.Stdout)
	}
	if d.Clipboard == nil {
		d.Clipboard = clipboard.WriteAll
	}
}

// Run executes one invocation and returns the process exit status.
func Run(ctx context.Context, env Env, deps Deps) int {
	deps.fill(env)

	var stdin io.Reader
	if !env.StdinIsTerminal {
		stdin = env.Stdin
	}
	a, err := args.ParseArgs(env.Args, args.Options{
		Stdin:     stdin,
		Out:       env.Stdout,
		Err:       env.Stderr,
		PlainText: env.PlainText,
	})
	if err != nil {
		fmt.Fprintln(env.Stderr, render.Error(env.PlainText, "Error: "+err.Error()))
		return 1
	}

	r := &runner{
		env:    env,
		deps:   deps,
		args:   a,
		logger: logging.New(env.Stderr, a.Verbose || logging.VerboseFromEnv()),
		out:    render.NewTerminalRenderer(env.Stdout, a.UsePlainText, env.Width),
	}
	if err := r.run(ctx); err != nil {
		r.logger.Debug("invocation failed", "error", err)
		fmt.Fprintln(env.Stderr, render.Error(a.UsePlainText, refine.Remediation(err)))
		return 1
	}
	return 0
}

type runner struct {
	env    Env
	deps   Deps
	args   args.Arguments
	logger logging.Logger
	out    *render.TerminalRenderer
	cfg    *config.Config
	wizard *setup.Wizard
}

func (r *runner) run(ctx context.Context) error {
	switch r.args.Command {
	case args.CommandHandled:
		return nil
	case args.CommandVersion:
		_, err := fmt.Fprintln(r.env.Stdout, "promptx "+Version)
		return err
	case args.CommandHelp:
		return r.out.Markdown(helpMarkdown)
	case args.CommandWhatsNew:
		return r.out.Markdown(changelog.Markdown(Version))
	}

	if err := r.loadConfig(ctx); err != nil {
		return err
	}

	switch r.args.Command {
	case args.CommandReset:
		if err := r.cfg.Reset(); err != nil {
			return err
		}
		r.out.Success("Configuration has been reset. You'll go through setup next time.")
		return nil
	case args.CommandModel:
		return r.wizard.ChangeModel(ctx)
	default:
		return r.refine(ctx)
	}
}

func (r *runner) loadConfig(ctx context.Context) error {
	var err error
	if r.env.ConfigDir != "" {
		r.cfg, err = config.LoadFrom(ctx, r.env.ConfigDir)
	} else {
		r.cfg, err = config.LoadConfig(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	interactive := r.env.StdinIsTerminal && r.env.StdoutIsTerminal
	r.wizard = setup.NewWizard(r.cfg, r.deps.Prompter, r.out, r.deps.Discoverer, interactive)
	return nil
}

func (r *runner) modelID() string {
	if r.args.Model != "" {
		return r.args.Model
	}
	return r.cfg.SelectedModel()
}

func (r *runner) refine(ctx context.Context) error {
	if err := r.wizard.EnsureConfigured(ctx, r.modelID()); err != nil {
		return err
	}

	refiner := refine.New(refine.Options{
		Catalog:      models.NewCatalog(nil),
		Credentials:  r.cfg,
		NewAdapter:   r.deps.NewAdapter,
		Discoverer:   r.deps.Discoverer,
		NewIndicator: r.indicator,
		Renderer:     r.out,
		Logger:       r.logger,
	})

	prompt := r.args.Prompt
	if prompt == "" {
		d, _ := refiner.Resolve(ctx, r.modelID())
		typed, err := r.wizard.ReadPrompt(d.Name)
		if errors.Is(err, setup.ErrNotInteractive) {
			return refine.ErrEmptyPrompt
		}
		if err != nil {
			return err
		}
		if c, ok := args.ParseCommand(typed); ok {
			r.args.Command = c
			return r.run(ctx)
		}
		prompt = typed
	}

	res, err := refiner.Refine(ctx, prompt, r.modelID())
	if err != nil {
		return err
	}

	if r.args.Copy && res.Text != "" {
		if err := r.deps.Clipboard(res.Text); err != nil {
			r.logger.Debug("clipboard copy failed", "error", err)
			r.out.Notice("Could not copy to clipboard: " + err.Error())
		} else {
			r.out.Success("Copied to clipboard.")
		}
	}
	return nil
}

func (r *runner) indicator(label string) refine.Indicator {
	if r.args.UsePlainText {
		return nopIndicator{}
	}
	return render.NewSpinner(r.env.Stderr, label)
}

type nopIndicator struct{}

func (nopIndicator) Start() {}
func (nopIndicator) Stop()  {}
