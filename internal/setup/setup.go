// Package setup runs the interactive flows: the first-run wizard, the model
// switcher and prompt entry.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luka-loehr/promptx-cli/internal/config"
	"github.com/luka-loehr/promptx-cli/internal/models"
	"github.com/luka-loehr/promptx-cli/internal/ollama"
)

var (
	// ErrNotConfigured is returned when configuration is missing and no
	// terminal is available to ask for it.
	ErrNotConfigured = errors.New("promptx is not configured")
	// ErrNotInteractive is returned by flows that need a terminal.
	ErrNotInteractive = errors.New("this command needs an interactive terminal")
	// ErrCancelled is returned when the user leaves a prompt.
	ErrCancelled = errors.New("cancelled")
)

// Prompter asks the user for input.
type Prompter interface {
	Select(title string, items []models.Descriptor, current string) (models.Descriptor, error)
	Input(title, hint string, secret bool, validate func(string) error) (string, error)
}

// Notifier prints status lines.
type Notifier interface {
	Notice(msg string)
	Success(msg string)
	Muted(msg string)
}

// Discoverer lists local models.
type Discoverer interface {
	Discover(ctx context.Context) (map[string]models.Descriptor, error)
}

// TeaPrompter runs each prompt as a bubbletea program.
type TeaPrompter struct {
	in  io.Reader
	out io.Writer
}

func NewTeaPrompter(in io.Reader, out io.Writer) *TeaPrompter {
	return &TeaPrompter{in: in, out: out}
}

func (p *TeaPrompter) run(m tea.Model) (tea.Model, error) {
	final, err := tea.NewProgram(m, tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run prompt: %w", err)
	}
	return final, nil
}

// Select implements Prompter.
func (p *TeaPrompter) Select(title string, items []models.Descriptor, current string) (models.Descriptor, error) {
	if len(items) == 0 {
		return models.Descriptor{}, errors.New("no models to choose from")
	}
	final, err := p.run(newPicker(title, items, current))
	if err != nil {
		return models.Descriptor{}, err
	}
	m := final.(pickerModel)
	if m.cancelled {
		return models.Descriptor{}, ErrCancelled
	}
	return m.Selected(), nil
}

// Input implements Prompter.
func (p *TeaPrompter) Input(title, hint string, secret bool, validate func(string) error) (string, error) {
	final, err := p.run(newInput(title, hint, secret, validate))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.value, nil
}

// Wizard owns the interactive configuration flows.
type Wizard struct {
	cfg         *config.Config
	prompter    Prompter
	notifier    Notifier
	discoverer  Discoverer
	interactive bool
}

// NewWizard creates a wizard. When interactive is false every flow that
// would prompt fails instead.
func NewWizard(cfg *config.Config, prompter Prompter, notifier Notifier, discoverer Discoverer, interactive bool) *Wizard {
	return &Wizard{
		cfg:         cfg,
		prompter:    prompter,
		notifier:    notifier,
		discoverer:  discoverer,
		interactive: interactive,
	}
}

// EnsureConfigured runs the setup wizard when no usable configuration
// exists for modelID.
func (w *Wizard) EnsureConfigured(ctx context.Context, modelID string) error {
	provider := w.providerOf(ctx, modelID)
	hasKey := w.cfg.HasAPIKey(provider)
	if hasKey && (w.cfg.SetupComplete || !w.interactive) {
		return nil
	}
	if !w.interactive {
		return fmt.Errorf("no %s API key found in %s or the config file: %w",
			provider.DisplayName(), strings.Join(config.KeyEnv(provider), "/"), ErrNotConfigured)
	}

	if w.cfg.SetupComplete {
		w.notifier.Notice(fmt.Sprintf("%s API key not found. Running setup...", provider.DisplayName()))
	}
	return w.Run(ctx)
}

// Run is the first-run wizard: choose a model, supply its credential, save.
func (w *Wizard) Run(ctx context.Context) error {
	if !w.interactive {
		return ErrNotInteractive
	}
	w.notifier.Notice("Welcome to promptx!")
	w.notifier.Muted("Let's set up your AI model preferences.")

	d, err := w.chooseModel(ctx, "Which AI model would you like to use?")
	if err != nil {
		return err
	}

	w.cfg.Model = d.ID
	w.cfg.SetupComplete = true
	if err := w.cfg.Save(); err != nil {
		return err
	}

	w.notifier.Success("Setup complete!")
	w.notifier.Muted("Model: " + d.Name)
	w.notifier.Muted("You can change your model anytime by typing /model")
	return nil
}

// ChangeModel lets the user switch the stored model.
func (w *Wizard) ChangeModel(ctx context.Context) error {
	if !w.interactive {
		return ErrNotInteractive
	}
	current, _ := models.NewCatalog(nil).Lookup(w.cfg.Model)
	if current.Name != "" {
		w.notifier.Muted("Current model: " + current.Name)
	} else {
		w.notifier.Muted("Current model: " + w.cfg.Model)
	}

	d, err := w.chooseModel(ctx, "Select a new model:")
	if err != nil {
		return err
	}

	w.cfg.Model = d.ID
	w.cfg.SetupComplete = true
	if err := w.cfg.Save(); err != nil {
		return err
	}
	w.notifier.Success("Switched to " + d.Name)
	return nil
}

// ReadPrompt asks for the text to refine.
func (w *Wizard) ReadPrompt(modelName string) (string, error) {
	if !w.interactive {
		return "", ErrNotInteractive
	}
	w.notifier.Muted("Using " + modelName)
	return w.prompter.Input("Enter your messy prompt:", "", false, func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("prompt cannot be empty")
		}
		return nil
	})
}

func (w *Wizard) chooseModel(ctx context.Context, title string) (models.Descriptor, error) {
	catalog := models.NewCatalog(nil)
	if w.discoverer != nil {
		local, err := w.discoverer.Discover(ctx)
		if err == nil {
			catalog = catalog.WithLocal(local)
		} else {
			var de *ollama.DiscoveryError
			if errors.As(err, &de) && de.Status != ollama.StatusNotInstalled {
				w.notifier.Muted(de.Remediation())
			}
		}
	}

	d, err := w.prompter.Select(title, catalog.All(), w.cfg.Model)
	if err != nil {
		return models.Descriptor{}, err
	}
	if err := w.ensureKey(d); err != nil {
		return models.Descriptor{}, err
	}
	return d, nil
}

// ensureKey asks for a credential when d's provider has none.
func (w *Wizard) ensureKey(d models.Descriptor) error {
	p := d.Provider
	if w.cfg.HasAPIKey(p) {
		return nil
	}

	w.notifier.Notice(fmt.Sprintf("You'll need a %s API key to use %s", p.DisplayName(), d.Name))
	hint := fmt.Sprintf("Get one at: %s (keys start with %q)", config.KeyURL(p), config.KeyPrefix(p))
	key, err := w.prompter.Input(fmt.Sprintf("Enter your %s API key:", p.DisplayName()), hint, true, func(s string) error {
		return config.ValidateAPIKey(p, s)
	})
	if err != nil {
		return err
	}
	return w.cfg.SetAPIKey(p, key)
}

// providerOf finds the provider serving modelID. Ids that are not in the
// hosted tables are looked up among the local models before falling back.
func (w *Wizard) providerOf(ctx context.Context, modelID string) models.Provider {
	catalog := models.NewCatalog(nil)
	if d, ok := catalog.Lookup(modelID); ok {
		return d.Provider
	}
	if modelID != "" && w.discoverer != nil {
		if local, err := w.discoverer.Discover(ctx); err == nil {
			if d, ok := catalog.WithLocal(local).Lookup(modelID); ok {
				return d.Provider
			}
		}
	}
	if strings.Contains(modelID, ":") {
		return models.ProviderLocal
	}
	d, _ := catalog.Resolve(modelID)
	return d.Provider
}
