// Package strategy defines the Strategy contract, the per-strategy runtime
// Context, and the Loader that maps configuration declarations onto compiled
// strategy factories.
//
// Strategies are resolved through a registration table rather than reflection
// or plugin loading: each implementation registers a factory under its
// "module.class" key at init time, the way database/sql drivers register
// themselves. A configuration entry naming an unregistered strategy fails at
// load time, before anything starts.
package strategy

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"helios/internal/config"
	"helios/internal/instrument"
	"helios/internal/marketdata"
	"helios/internal/scheduler"
	"helios/internal/trading"
)

// ErrNotRegistered is returned when a configuration entry names a strategy
// class with no registered factory.
var ErrNotRegistered = errors.New("strategy not registered")

// Context is the runtime handed to every strategy instance. It scopes the
// engine's shared services plus the strategy's own layered environment.
type Context struct {
	Scheduler   *scheduler.Scheduler
	Instruments *instrument.Cache
	MarketData  *marketdata.Service
	Trading     *trading.Service
	StrategyDir string
	Log         *slog.Logger

	env *config.Environment
}

// NewContext assembles a strategy context around the given environment.
func NewContext(env *config.Environment) *Context {
	return &Context{env: env, Log: slog.Default()}
}

// Getenv resolves key in the strategy's environment, falling back to
// defaultVal when the key is unset or declared-but-absent.
func (c *Context) Getenv(key, defaultVal string) string {
	if c.env == nil {
		return defaultVal
	}
	return c.env.Getenv(key, defaultVal)
}

// Strategy is one trading strategy instance. Init wires subscriptions and
// validates configuration; Start begins trading. Both run during the engine's
// activation phase, after all feed handlers are connected.
type Strategy interface {
	// Init prepares the strategy using the services in ctx. Returning an
	// error aborts engine startup.
	Init(ctx *Context) error

	// Start begins trading. It must not block.
	Start() error
}

// Factory constructs one strategy instance.
type Factory func() Strategy

// ---------------------------------------------------------------------------
// Registration table
// ---------------------------------------------------------------------------

// Loader resolves configuration declarations to registered factories.
type Loader struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{factories: make(map[string]Factory)}
}

// Register adds a factory under module and class. Registering the same key
// twice panics; it indicates conflicting init-time registrations.
func (l *Loader) Register(module, class string, factory Factory) {
	key := loaderKey(module, class)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.factories[key]; dup {
		panic(fmt.Sprintf("strategy: duplicate registration for %q", key))
	}
	l.factories[key] = factory
}

// Load instantiates the strategy declared by module and class.
func (l *Loader) Load(module, class string) (Strategy, error) {
	key := loaderKey(module, class)
	l.mu.RLock()
	factory, ok := l.factories[key]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, key)
	}
	return factory(), nil
}

// Registered returns the sorted list of registered strategy keys.
func (l *Loader) Registered() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.factories))
	for k := range l.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func loaderKey(module, class string) string {
	return module + "." + class
}

// ---------------------------------------------------------------------------
// Package-level default loader
// ---------------------------------------------------------------------------

var defaultLoader = NewLoader()

// Register adds a factory to the package default loader. Built-in strategies
// call this from init.
func Register(module, class string, factory Factory) {
	defaultLoader.Register(module, class, factory)
}

// DefaultLoader returns the loader that init-time registrations target.
func DefaultLoader() *Loader {
	return defaultLoader
}
