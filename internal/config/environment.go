package config

import (
	"errors"
	"fmt"
	"os"
)

// SourceSystemEnv marks an entry whose value is resolved by reading the
// process environment variable named by the entry key.
const SourceSystemEnv = "SYSTEM_ENV"

// ErrMalformedEntry is returned when an environment entry carries neither a
// literal value nor a recognized value-source, or both.
var ErrMalformedEntry = errors.New("malformed environment entry")

// Environment is an immutable layered key/value scope. A child scope is
// seeded from a snapshot of its parent's resolved values at construction time
// and then overlaid with its own entries; later entries win on key collision.
// Child overlays never mutate the parent.
//
// Indirect (SYSTEM_ENV) entries are resolved exactly once, at construction:
// later changes to the process environment do not retroactively change
// already-resolved values. An unset system variable resolves to an explicit
// absent value, not an error; callers supply defaults at lookup time.
type Environment struct {
	values map[string]entryValue
}

// entryValue distinguishes a resolved string from an explicit absent value
// (an indirect entry whose system variable was unset).
type entryValue struct {
	s       string
	present bool
}

// NewEnvironment resolves a list of entries against an optional parent scope.
// Entries are applied in declaration order.
func NewEnvironment(entries []Entry, parent *Environment) (*Environment, error) {
	values := make(map[string]entryValue, len(entries))
	if parent != nil {
		for k, v := range parent.values {
			values[k] = v
		}
	}

	for _, entry := range entries {
		switch {
		case entry.Value != nil && entry.ValueSource != "":
			return nil, fmt.Errorf("%w: key %q declares both value and value-source",
				ErrMalformedEntry, entry.Key)
		case entry.Value != nil:
			values[entry.Key] = entryValue{s: *entry.Value, present: true}
		case entry.ValueSource == SourceSystemEnv:
			if v, ok := os.LookupEnv(entry.Key); ok {
				values[entry.Key] = entryValue{s: v, present: true}
			} else {
				values[entry.Key] = entryValue{}
			}
		case entry.ValueSource != "":
			return nil, fmt.Errorf("%w: key %q has unknown value-source %q",
				ErrMalformedEntry, entry.Key, entry.ValueSource)
		default:
			return nil, fmt.Errorf("%w: key %q declares neither value nor value-source",
				ErrMalformedEntry, entry.Key)
		}
	}

	return &Environment{values: values}, nil
}

// Getenv returns the resolved value for key, or defaultVal if the key is
// unknown or resolved to an absent value. It never fails.
func (e *Environment) Getenv(key, defaultVal string) string {
	if v, ok := e.values[key]; ok && v.present {
		return v.s
	}
	return defaultVal
}

// Lookup reports the resolved value for key and whether it is present.
func (e *Environment) Lookup(key string) (string, bool) {
	v, ok := e.values[key]
	if !ok || !v.present {
		return "", false
	}
	return v.s, true
}
