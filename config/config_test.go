package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func write(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, `source: en.lproj/Localizable.strings
source_lang: en
languages: [de, fr, ja]
ref: origin/main
max_tokens: 2048
parallel: 4
backend:
  type: remote
  base_url: https://example.com/v1
  model: gpt-4o
  timeout: 90s
  max_retries: 5
  prompt: "Translate to {{targetLang}}."
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Source != "en.lproj/Localizable.strings" {
		t.Fatalf("Source = %q", cfg.Source)
	}
	if !reflect.DeepEqual(cfg.Languages, []string{"de", "fr", "ja"}) {
		t.Fatalf("Languages = %v", cfg.Languages)
	}
	if cfg.Ref != "origin/main" {
		t.Fatalf("Ref = %q", cfg.Ref)
	}
	if cfg.MaxTokens != 2048 || cfg.Parallel != 4 {
		t.Fatalf("MaxTokens/Parallel = %d/%d", cfg.MaxTokens, cfg.Parallel)
	}
	if cfg.Backend.Type != BackendRemote || cfg.Backend.BaseURL != "https://example.com/v1" {
		t.Fatalf("Backend = %+v", cfg.Backend)
	}
	if time.Duration(cfg.Backend.Timeout) != 90*time.Second {
		t.Fatalf("Timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Backend.MaxRetries != 5 {
		t.Fatalf("MaxRetries = %d", cfg.Backend.MaxRetries)
	}
	if cfg.Dir != dir {
		t.Fatalf("Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "source: en.lproj/Localizable.strings\nlanguages: [de]\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SourceLang != "en" {
		t.Fatalf("SourceLang = %q, want en", cfg.SourceLang)
	}
	if cfg.Ref != "HEAD" {
		t.Fatalf("Ref = %q, want HEAD", cfg.Ref)
	}
	if cfg.MaxTokens != 1024 {
		t.Fatalf("MaxTokens = %d, want 1024", cfg.MaxTokens)
	}
	if cfg.Parallel != 1 {
		t.Fatalf("Parallel = %d, want 1", cfg.Parallel)
	}
	if cfg.Backend.Type != BackendLocal {
		t.Fatalf("Backend.Type = %q, want local", cfg.Backend.Type)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown backend type",
			content: "backend:\n  type: carrier-pigeon\n",
			wantErr: "unknown backend type",
		},
		{
			name:    "remote without base_url",
			content: "backend:\n  type: remote\n",
			wantErr: "requires base_url",
		},
		{
			name:    "negative max_tokens",
			content: "max_tokens: -1\n",
			wantErr: "max_tokens",
		},
		{
			name:    "source language as target",
			content: "source_lang: en\nlanguages: [de, en]\n",
			wantErr: "listed as a target",
		},
		{
			name:    "broken yaml",
			content: "languages: [de\n",
			wantErr: "parsing",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := Load(write(t, dir, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, root, "source: en.lproj/Localizable.strings\nlanguages: [de]\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Find(nested)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if cfg.Dir != root {
		t.Fatalf("Dir = %q, want %q", cfg.Dir, root)
	}
	if got := cfg.SourcePath(); got != filepath.Join(root, "en.lproj", "Localizable.strings") {
		t.Fatalf("SourcePath = %q", got)
	}
}

func TestFindWithoutFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Find(dir)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if cfg.Dir != dir {
		t.Fatalf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.Ref != "HEAD" || cfg.Backend.Type != BackendLocal {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Languages) != 0 {
		t.Fatalf("Languages = %v, want empty", cfg.Languages)
	}
}

func TestSourcePathAbsoluteUntouched(t *testing.T) {
	abs := filepath.Join(string(filepath.Separator), "tmp", "x.strings")
	cfg := &Config{Source: abs, Dir: "/elsewhere"}
	if got := cfg.SourcePath(); got != abs {
		t.Fatalf("SourcePath = %q, want %q", got, abs)
	}
}

func TestDurationRoundTrip(t *testing.T) {
	var d Duration
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: "2m30s"}
	if err := d.UnmarshalYAML(node); err != nil {
		t.Fatalf("UnmarshalYAML error: %v", err)
	}
	if time.Duration(d) != 2*time.Minute+30*time.Second {
		t.Fatalf("d = %v", time.Duration(d))
	}
	out, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML error: %v", err)
	}
	if out != "2m30s" {
		t.Fatalf("MarshalYAML = %v, want 2m30s", out)
	}
}
