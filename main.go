/*
This is an example of application that will use the
engine package to render a glTF scene
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/testbed"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err.Error())
	}

	tb := testbed.NewTestGame(engine.NewApplicationConfig(cfg))

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize the engine: %s", err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err.Error())
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
