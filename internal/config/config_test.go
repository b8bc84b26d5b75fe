package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api-version: v1Beta
environment:
  - key: EXCHANGE_INSTANCE
    value: "test"
  - key: PHEMEX_API_KEY
    value-source: SYSTEM_ENV
feedhandlers:
  - exchange: Phemex
order_placers:
  - exchange: Phemex
strategies:
  - name: trend-follower
    module: builtins
    strategy-class: SMACross
    environment:
      - key: SMA_SYMBOL
        value: "BTCUSD"
`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if doc.APIVersion != "v1Beta" {
		t.Errorf("APIVersion = %q, want %q", doc.APIVersion, "v1Beta")
	}
	if len(doc.Environment) != 2 {
		t.Fatalf("len(Environment) = %d, want 2", len(doc.Environment))
	}
	if doc.Environment[0].Value == nil || *doc.Environment[0].Value != "test" {
		t.Error("Environment[0] literal value not parsed")
	}
	if doc.Environment[1].ValueSource != SourceSystemEnv {
		t.Errorf("Environment[1].ValueSource = %q, want %q",
			doc.Environment[1].ValueSource, SourceSystemEnv)
	}
	if len(doc.FeedHandlers) != 1 || doc.FeedHandlers[0].Exchange != "Phemex" {
		t.Errorf("FeedHandlers = %+v, want one Phemex entry", doc.FeedHandlers)
	}
	if len(doc.Strategies) != 1 {
		t.Fatalf("len(Strategies) = %d, want 1", len(doc.Strategies))
	}
	s := doc.Strategies[0]
	if s.Name != "trend-follower" || s.Module != "builtins" || s.Class != "SMACross" {
		t.Errorf("strategy declaration not parsed: %+v", s)
	}
}

func TestLoadUnsupportedVersion(t *testing.T) {
	path := writeConfig(t, `
api-version: v2
environment:
  - key: SHOULD_NOT_MATTER
    value: "x"
`)

	_, err := Load(path)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("Load() error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() on missing file returned nil error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "api-version: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() on malformed YAML returned nil error")
	}
}
