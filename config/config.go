// Package config — .stringsync.yaml configuration file support.
//
// The project file names the source .strings file, the target language
// list, and the translation backend. Every value can be overridden by
// a CLI flag; the config file merely sets the project's defaults. There
// is no ambient global state: the loaded Config is passed explicitly to
// the pipeline at construction.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".stringsync.yaml"

// Duration wraps time.Duration so YAML can use "90s" / "2m" notation.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Backend selects and configures a translation backend.
type Backend struct {
	// Type: "local" (Ollama) or "remote" (OpenAI-compatible endpoint).
	Type string `yaml:"type"`
	// BaseURL overrides the backend's API base URL.
	BaseURL string `yaml:"base_url,omitempty"`
	// Model is the model identifier.
	Model string `yaml:"model,omitempty"`
	// Timeout is the per-request timeout.
	Timeout Duration `yaml:"timeout,omitempty"`
	// MaxRetries is the retry budget for rate limits and 5xx.
	MaxRetries int `yaml:"max_retries,omitempty"`
	// Prompt overrides the system prompt ({{targetLang}} placeholder).
	Prompt string `yaml:"prompt,omitempty"`
}

// BackendLocal and BackendRemote are the valid Backend.Type values.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config is the top-level .stringsync.yaml structure.
type Config struct {
	// Source is the source-language .strings file, relative to the
	// config file's directory (e.g. "en.lproj/Localizable.strings").
	Source string `yaml:"source"`
	// SourceLang is the source language code (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the target language list.
	Languages []string `yaml:"languages"`
	// Ref is the git revision to diff against (default "HEAD").
	Ref string `yaml:"ref,omitempty"`
	// MaxTokens is the per-batch estimated token ceiling (default 1024).
	MaxTokens int `yaml:"max_tokens,omitempty"`
	// Parallel is the language fan-out (default 1, sequential).
	Parallel int `yaml:"parallel,omitempty"`
	// Backend configures the translation backend.
	Backend Backend `yaml:"backend,omitempty"`

	// Dir is the directory the config was loaded from (not serialized).
	Dir string `yaml:"-"`
}

// Default returns the built-in defaults used when no config file exists.
func Default() *Config {
	return &Config{
		SourceLang: "en",
		Ref:        "HEAD",
		MaxTokens:  1024,
		Parallel:   1,
		Backend:    Backend{Type: BackendLocal},
	}
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)

	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find walks up from dir looking for a .stringsync.yaml. It returns the
// defaults (with Dir set to dir) when none is found.
func Find(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for cur := abs; ; {
		path := filepath.Join(cur, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	cfg := Default()
	cfg.Dir = abs
	return cfg, nil
}

func (c *Config) validate(path string) error {
	switch c.Backend.Type {
	case "", BackendLocal, BackendRemote:
	default:
		return fmt.Errorf("%s: unknown backend type %q (valid: local, remote)", path, c.Backend.Type)
	}
	if c.Backend.Type == "" {
		c.Backend.Type = BackendLocal
	}
	if c.Backend.Type == BackendRemote && c.Backend.BaseURL == "" {
		return fmt.Errorf("%s: remote backend requires base_url", path)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%s: max_tokens must not be negative", path)
	}
	if c.Parallel < 0 {
		return fmt.Errorf("%s: parallel must not be negative", path)
	}
	for _, lang := range c.Languages {
		if lang == c.SourceLang {
			return fmt.Errorf("%s: source language %q listed as a target", path, lang)
		}
	}
	return nil
}

// SourcePath resolves the source file against the config directory.
func (c *Config) SourcePath() string {
	if c.Source == "" || filepath.IsAbs(c.Source) {
		return c.Source
	}
	return filepath.Join(c.Dir, c.Source)
}
