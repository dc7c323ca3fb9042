package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/EdoardoFiore/madmin-strongswan/app"
	"github.com/EdoardoFiore/madmin-strongswan/cmd"
	"github.com/EdoardoFiore/madmin-strongswan/config"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
)

func runApp() {
	a := app.NewApp()
	err := a.Init()
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
	err = a.Start()
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	// Accept SIGHUP to restart, SIGTERM/SIGINT to shut down.
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh
		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP, restarting...")
			a.RestartApp()
		default:
			a.Stop()
			logger.Info(config.GetName(), " exited")
			return
		}
	}
}

func main() {
	if len(os.Args) < 2 {
		runApp()
		return
	}

	switch os.Args[1] {
	case "settings":
		cmd.ShowSettings()
	case "version":
		fmt.Println(config.GetVersion())
	default:
		fmt.Println("Usage: madmin-strongswan [settings|version]")
	}
}
