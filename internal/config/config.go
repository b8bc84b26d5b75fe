// Package config loads the declarative engine configuration document and
// resolves layered environment scopes from it.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SupportedAPIVersion is the single configuration schema version this build
// understands. There is no backward or forward compatibility shim: any other
// declared version is rejected before the document is interpreted.
const SupportedAPIVersion = "v1Beta"

// ErrUnsupportedVersion is returned by Load when the document declares an
// api-version other than SupportedAPIVersion.
var ErrUnsupportedVersion = errors.New("unsupported api-version")

// ---------------------------------------------------------------------------
// Document structs
// ---------------------------------------------------------------------------

// Document is the top-level declarative configuration for the engine.
type Document struct {
	APIVersion   string          `yaml:"api-version"`
	Environment  []Entry         `yaml:"environment"`
	FeedHandlers []ConnectorDecl `yaml:"feedhandlers"`
	OrderPlacers []ConnectorDecl `yaml:"order_placers"`
	Strategies   []StrategyDecl  `yaml:"strategies"`
}

// Entry is a single environment entry. Exactly one of Value or ValueSource
// must be set: a literal value, or an indirection resolved at construction
// time (currently only SourceSystemEnv).
type Entry struct {
	Key         string  `yaml:"key"`
	Value       *string `yaml:"value"`
	ValueSource string  `yaml:"value-source"`
}

// ConnectorDecl declares one connector (feed handler or order placer) by its
// exchange identifier.
type ConnectorDecl struct {
	Exchange string `yaml:"exchange"`
}

// StrategyDecl declares one strategy to load, the registered (module, class)
// pair that resolves its implementation, and its own environment scope.
type StrategyDecl struct {
	Name        string  `yaml:"name"`
	Module      string  `yaml:"module"`
	Class       string  `yaml:"strategy-class"`
	Environment []Entry `yaml:"environment"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration document at the given path and verifies
// its declared api-version. The version check happens before anything else in
// the document is interpreted, so an incompatible document fails fast.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if doc.APIVersion != SupportedAPIVersion {
		return nil, fmt.Errorf("%w: %q (supported: %q)",
			ErrUnsupportedVersion, doc.APIVersion, SupportedAPIVersion)
	}

	return doc, nil
}
