package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/luka-loehr/promptx-cli/internal/models"
)

const (
	configDirName = "promptx"
	defaultConfig = ".config"
	loadTimeout   = 10 * time.Second
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
}

// Config represents the persisted state of the application.
type Config struct {
	Model         string            `yaml:"model" default:"gpt-4o"`
	APIKeys       map[string]string `yaml:"api_keys,omitempty"`
	SetupComplete bool              `yaml:"setup_complete"`

	// path is where the config was read from and where Save writes to.
	path string
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// newDefaultConfig creates a configuration with struct defaults applied.
func newDefaultConfig(path string) *Config {
	cfg := &Config{APIKeys: map[string]string{}, path: path}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return cfg
}

// Dir retrieves the configuration directory based on the XDG_CONFIG_HOME environment variable.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// tryLoadConfig attempts to load a configuration file from the specified path.
func tryLoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := newDefaultConfig(path)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = map[string]string{}
	}
	if cfg.Model == "" {
		cfg.Model = models.DefaultModelID
	}

	return cfg, nil
}

// LoadConfig loads the configuration from the user's config directory, with a timeout.
func LoadConfig(ctx context.Context) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(ctx, dir)
}

// LoadFrom loads the configuration stored in dir.
func LoadFrom(ctx context.Context, dir string) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx, dir)
		result <- configResult{config: cfg, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-result:
		return r.config, r.err
	}
}

// loadConfigFiles loads the first configuration file found in dir.
func loadConfigFiles(ctx context.Context, dir string) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	defaultPath := filepath.Join(dir, configFiles[0])

	// Return default config early if directory doesn't exist
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return newDefaultConfig(defaultPath), nil
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := tryLoadConfig(filepath.Join(dir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return newDefaultConfig(defaultPath), nil
}

// Path returns the file Save writes to.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration atomically with owner-only permissions.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// Reset removes every stored config file in the config directory and
// restores the in-memory defaults.
func (c *Config) Reset() error {
	if c.path == "" {
		return fmt.Errorf("config has no path")
	}
	dir := filepath.Dir(c.path)
	for _, filename := range configFiles {
		err := os.Remove(filepath.Join(dir, filename))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filename, err)
		}
	}
	*c = *newDefaultConfig(c.path)
	return nil
}

// SelectedModel returns the model to use, honouring PROMPTX_MODEL.
func (c *Config) SelectedModel() string {
	if m := os.Getenv("PROMPTX_MODEL"); m != "" {
		return m
	}
	return c.Model
}
