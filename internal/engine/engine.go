// Package engine orchestrates system startup: it loads the configuration
// document, resolves the layered environments, builds the connector
// registries, binds declared strategies, and drives the phased launch
// sequence up to the point where trading is live.
//
// Startup is strictly ordered and fail-fast. Any configuration error, any
// unknown exchange or strategy, and any missing credential aborts before a
// single connector starts. Once running, the first fault reported by a
// supervised goroutine terminates the whole engine; there is no partial
// degradation mode.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"helios/internal/config"
	"helios/internal/connector"
	"helios/internal/instrument"
	"helios/internal/marketdata"
	"helios/internal/recorder"
	"helios/internal/scheduler"
	"helios/internal/strategy"
	"helios/internal/trading"
)

// ReadyMarker is logged exactly once, after every strategy has been activated.
const ReadyMarker = "<READY FOR TRADING>"

// defaultStartDelay is the settling window between connector launch and
// strategy activation. Feed handlers use it to finish connecting and
// subscribing before strategies begin reacting to data.
const defaultStartDelay = 5 * time.Second

// Options configures engine construction.
type Options struct {
	// ConfigPath locates the YAML configuration document. Required.
	ConfigPath string

	// StrategyDir is the working directory exposed to strategies for their
	// auxiliary data files. Defaults to ".".
	StrategyDir string

	// Log is the engine logger. Defaults to slog.Default().
	Log *slog.Logger

	// Loader resolves strategy declarations. Defaults to the package
	// default loader that built-in strategies register with.
	Loader *strategy.Loader

	// StartDelay overrides the settling window before strategy activation.
	// Zero means the default of five seconds.
	StartDelay time.Duration
}

// binding pairs a loaded strategy instance with its declaration and runtime
// context, in configuration document order.
type binding struct {
	decl     config.StrategyDecl
	instance strategy.Strategy
	ctx      *strategy.Context
}

// Engine is the assembled system, ready to start.
type Engine struct {
	log        *slog.Logger
	env        *config.Environment
	instanceID string
	startDelay time.Duration

	sched       *scheduler.Scheduler
	instruments *instrument.Cache
	feeds       *connector.Registry[connector.FeedHandler]
	placers     *connector.Registry[connector.OrderPlacer]
	marketData  *marketdata.Service
	trading     *trading.Service
	recorder    *recorder.TradeRecorder
	health      *healthServer
	bindings    []binding
}

// New performs the configuration and binding phases: it loads and verifies
// the document, resolves the engine environment, builds both connector
// registries, and binds every declared strategy. All fail-fast validation
// happens here; nothing has started when New returns.
func New(opts Options) (*Engine, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	loader := opts.Loader
	if loader == nil {
		loader = strategy.DefaultLoader()
	}
	strategyDir := opts.StrategyDir
	if strategyDir == "" {
		strategyDir = "."
	}
	startDelay := opts.StartDelay
	if startDelay == 0 {
		startDelay = defaultStartDelay
	}

	doc, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", "path", opts.ConfigPath, "api-version", doc.APIVersion)

	env, err := config.NewEnvironment(doc.Environment, nil)
	if err != nil {
		return nil, fmt.Errorf("resolving engine environment: %w", err)
	}
	instanceID := env.Getenv("EXCHANGE_INSTANCE", "prod")

	instruments, err := instrument.Open(env.Getenv("INSTRUMENT_DB_PATH", "instruments.db"))
	if err != nil {
		return nil, fmt.Errorf("opening instrument cache: %w", err)
	}
	log.Info("instrument cache ready", "instruments", instruments.Len())

	sched := scheduler.New()
	deps := connector.Deps{
		Scheduler:   sched,
		Instruments: instruments,
		Env:         env,
		Log:         log,
	}

	feeds, err := connector.BuildFeedHandlers(doc.FeedHandlers, deps, instanceID)
	if err != nil {
		return nil, fmt.Errorf("building feed handlers: %w", err)
	}
	placers, err := connector.BuildOrderPlacers(doc.OrderPlacers, deps, instanceID)
	if err != nil {
		return nil, fmt.Errorf("building order placers: %w", err)
	}
	log.Info("connectors registered",
		"instance", instanceID,
		"feedhandlers", feeds.Keys(),
		"order_placers", placers.Keys(),
	)

	e := &Engine{
		log:         log,
		env:         env,
		instanceID:  instanceID,
		startDelay:  startDelay,
		sched:       sched,
		instruments: instruments,
		feeds:       feeds,
		placers:     placers,
		marketData:  marketdata.NewService(feeds, log),
		trading:     trading.NewService(placers, instanceID, log),
	}

	if dir, ok := env.Lookup("MD_RECORD_DIR"); ok && dir != "" {
		e.recorder = recorder.NewTradeRecorder(dir, log)
		log.Info("trade recording enabled", "dir", dir)
	}
	if addr, ok := env.Lookup("HEALTH_ADDR"); ok && addr != "" {
		e.health = newHealthServer(addr, log)
	}

	if err := e.bindStrategies(doc.Strategies, loader, strategyDir); err != nil {
		return nil, err
	}
	return e, nil
}

// bindStrategies loads every declared strategy in document order. Loading is
// all-or-nothing: the first unknown declaration or malformed environment
// aborts construction.
func (e *Engine) bindStrategies(decls []config.StrategyDecl, loader *strategy.Loader, strategyDir string) error {
	for _, decl := range decls {
		env, err := config.NewEnvironment(decl.Environment, e.env)
		if err != nil {
			return fmt.Errorf("strategy %q environment: %w", decl.Name, err)
		}

		instance, err := loader.Load(decl.Module, decl.Class)
		if err != nil {
			return fmt.Errorf("strategy %q: %w", decl.Name, err)
		}

		ctx := strategy.NewContext(env)
		ctx.Scheduler = e.sched
		ctx.Instruments = e.instruments
		ctx.MarketData = e.marketData
		ctx.Trading = e.trading
		ctx.StrategyDir = strategyDir
		ctx.Log = e.log.With("strategy", decl.Name)

		e.bindings = append(e.bindings, binding{decl: decl, instance: instance, ctx: ctx})
		e.log.Info("strategy bound", "name", decl.Name, "module", decl.Module, "class", decl.Class)
	}
	return nil
}

// Run launches the engine and blocks until ctx is cancelled or a supervised
// fault terminates it. A clean shutdown returns nil; a fault returns the
// fault's error.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer e.instruments.Close()

	// Launch every feed handler in registration order. Handlers run under
	// supervision: a permanent failure surfaces as a fault below.
	for _, fh := range e.feeds.All() {
		fh := fh
		if e.recorder != nil {
			fh.Tap(e.recorder.Record)
		}
		e.log.Info("starting feedhandler", "exchange", fh.Exchange())
		e.sched.Go(runCtx, "feedhandler:"+fh.Exchange(), fh.Start)
	}

	if e.recorder != nil {
		e.sched.Every(runCtx, 10*time.Second, "recorder", func(context.Context) error {
			return e.recorder.Flush()
		})
	}
	if e.health != nil {
		e.sched.Go(runCtx, "health", e.health.serve)
	}

	// Strategies activate after the settling window, in document order.
	// Init and Start errors are faults: a strategy that cannot start takes
	// the engine down rather than trading with a partial roster.
	e.log.Info("connectors launched, delaying strategy activation", "delay", e.startDelay)
	e.sched.CallLater(runCtx, e.startDelay, "activation", e.activate)

	var runErr error
	select {
	case <-ctx.Done():
		e.log.Info("shutdown requested")
	case fault := <-e.sched.Faults():
		e.log.Error("fatal fault", "origin", fault.Origin, "err", fault.Err)
		runErr = fmt.Errorf("fault in %s: %w", fault.Origin, fault.Err)
	}

	if e.health != nil {
		e.health.setNotServing()
	}
	cancel()
	e.sched.Wait()
	if e.health != nil {
		e.health.stop()
	}
	if e.recorder != nil {
		if err := e.recorder.Flush(); err != nil {
			e.log.Warn("final trade flush failed", "err", err)
		}
	}
	e.log.Info("engine stopped")
	return runErr
}

// activate runs Init then Start for every bound strategy in document order.
func (e *Engine) activate(context.Context) error {
	for _, b := range e.bindings {
		if err := b.instance.Init(b.ctx); err != nil {
			return fmt.Errorf("strategy %q init: %w", b.decl.Name, err)
		}
		if err := b.instance.Start(); err != nil {
			return fmt.Errorf("strategy %q start: %w", b.decl.Name, err)
		}
		e.log.Info("strategy started", "name", b.decl.Name)
	}

	if e.health != nil {
		e.health.setServing()
	}
	e.log.Info(ReadyMarker, "strategies", len(e.bindings))
	return nil
}

// InstanceID returns the exchange instance this engine is scoped to.
func (e *Engine) InstanceID() string { return e.instanceID }
