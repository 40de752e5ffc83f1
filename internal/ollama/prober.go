// Package ollama discovers the models available in a local Ollama runtime.
package ollama

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/luka-loehr/promptx-cli/internal/models"
)

// Status tags the reason discovery failed.
type Status string

const (
	StatusNotInstalled      Status = "not_installed"
	StatusServiceNotRunning Status = "service_not_running"
	StatusNoModels          Status = "no_models"
	StatusUnknown           Status = "unknown"
)

// PingTimeout bounds the liveness check against the local API.
const PingTimeout = 3 * time.Second

// DiscoveryError is the tagged failure returned by Discover.
type DiscoveryError struct {
	Status  Status
	Message string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("ollama %s: %s", e.Status, e.Message)
}

// Remediation returns the user-facing hint for the failure.
func (e *DiscoveryError) Remediation() string {
	switch e.Status {
	case StatusNotInstalled:
		return "Ollama is not installed. Install it from https://ollama.com/download"
	case StatusServiceNotRunning:
		return "Ollama is installed but not running. Start it with: ollama serve"
	case StatusNoModels:
		return "No local models found. Pull one with: ollama pull llama3.2"
	default:
		return "Could not list Ollama models: " + e.Message
	}
}

// Runner executes the model listing command and returns its stdout.
type Runner func(ctx context.Context) ([]byte, error)

// Pinger checks whether the local API answers.
type Pinger func(ctx context.Context) error

// Prober queries the local runtime.
type Prober struct {
	run  Runner
	ping Pinger
}

// NewProber returns a prober that shells out to the ollama CLI and pings the
// API at host.
func NewProber(host string, client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{
		run:  listCommand,
		ping: httpPing(strings.TrimRight(host, "/")+"/api/tags", client),
	}
}

// NewProberWith builds a prober from explicit collaborators.
func NewProberWith(run Runner, ping Pinger) *Prober {
	return &Prober{run: run, ping: ping}
}

// Discover lists the installed models. The result is a fresh map; callers
// merge it into a models.Catalog.
func (p *Prober) Discover(ctx context.Context) (map[string]models.Descriptor, error) {
	out, err := p.run(ctx)
	if err != nil {
		return nil, p.diagnose(ctx, err)
	}

	ids := parseList(string(out))
	if len(ids) == 0 {
		return nil, &DiscoveryError{Status: StatusNoModels, Message: "ollama list returned no models"}
	}

	found := make(map[string]models.Descriptor, len(ids))
	for _, id := range ids {
		found[id] = models.LocalDescriptor(id)
	}
	return found, nil
}

func (p *Prober) diagnose(ctx context.Context, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return &DiscoveryError{Status: StatusNotInstalled, Message: err.Error()}
	}

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if pingErr := p.ping(pingCtx); pingErr != nil {
		return &DiscoveryError{Status: StatusServiceNotRunning, Message: pingErr.Error()}
	}
	return &DiscoveryError{Status: StatusUnknown, Message: err.Error()}
}

// parseList extracts model ids from `ollama list` output, skipping the
// header row.
func parseList(out string) []string {
	var ids []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	header := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if header {
			header = false
			if strings.HasPrefix(strings.ToUpper(line), "NAME") {
				continue
			}
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			ids = append(ids, fields[0])
		}
	}
	return ids
}

func listCommand(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ollama", "list")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("ollama list: %s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return nil, fmt.Errorf("ollama list: %w", err)
	}
	return out, nil
}

func httpPing(url string, client *http.Client) Pinger {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		return nil
	}
}
