/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/reactor/engine"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/testbed"
)

func main() {
	configPath := flag.String("config", "reactor.toml", "path to the TOML configuration")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := core.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}

	tb := testbed.NewTestGame(core.ComponentLogger(logger, "testbed"))

	e, err := engine.New(cfg, tb.Game, logger)
	if err != nil {
		logger.Fatal("failed to create engine", "err", err)
	}

	// signal context to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	exitCode := 0
	if err := e.Initialize(); err != nil {
		logger.Error("failed to initialize engine", "err", err)
		exitCode = 1
	} else if err := e.Run(ctx); err != nil {
		logger.Error("engine stopped", "err", err)
		exitCode = 1
	}

	if err := e.Shutdown(); err != nil {
		logger.Error("shutdown failed", "err", err)
		exitCode = 1
	}
	stop()
	os.Exit(exitCode)
}
