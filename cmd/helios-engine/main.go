// Command helios-engine boots the trading engine from a declarative YAML
// configuration document.
//
// Usage:
//
//	helios-engine [-strategy-dir DIR] CONFIG
//
// The process terminates on SIGINT/SIGTERM with a clean shutdown, and exits
// non-zero on any configuration error or runtime fault.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"helios/internal/engine"
	"helios/internal/strategy"
	_ "helios/internal/strategy/builtins"
	"helios/internal/util"
)

func main() {
	strategyDir := flag.String("strategy-dir", ".", "working directory for strategy data files")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-strategy-dir DIR] CONFIG\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	configPath := flag.Arg(0)

	logger := util.NewLogger(os.Getenv("LOG_LEVEL"))
	util.SetDefault(logger)

	// A local .env can seed the process environment for SYSTEM_ENV entries.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("loading .env", "err", err)
	}

	e, err := engine.New(engine.Options{
		ConfigPath:  configPath,
		StrategyDir: *strategyDir,
		Log:         logger,
		Loader:      strategy.DefaultLoader(),
	})
	if err != nil {
		logger.Error("engine construction failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := e.Run(ctx); err != nil {
		logger.Error("engine terminated", "err", err)
		os.Exit(1)
	}
}
