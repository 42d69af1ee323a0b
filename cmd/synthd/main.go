package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dougsko/synthd/pkg/config"
	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/verbose"
)

var (
	configPath = flag.String("config", "config.yaml", "Configuration file path")
	version    = flag.Bool("version", false, "Show version information")
	verboseBus = flag.Bool("verbose", false, "Trace every bus transfer")
)

const (
	Version = "0.1.0-dev"
	Build   = "development"
)

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) && path == "config.yaml" {
		log.Printf("No %s found, running with simulated hardware", path)
		return config.Default(), nil
	}
	return cfg, err
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("synthd version %s (%s)\n", Version, Build)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	verbose.SetEnabled(*verboseBus)

	if err := logging.InitGlobalLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseGlobalLogger()

	logging.Info("main", fmt.Sprintf("synthd version %s starting...", Version))
	logging.Info("main", fmt.Sprintf("Backends: AD9850 %s, ADF4351 %s, Si5351 %s",
		busName(cfg.DDS.Disabled, cfg.DDS.UseHardware, "gpio"),
		busName(cfg.PLL.Disabled, cfg.PLL.UseHardware, "spi"),
		busName(cfg.VFO.Disabled, cfg.VFO.UseHardware, "i2c")))
	logging.Info("main", fmt.Sprintf("Web interface: http://%s:%d", cfg.Web.BindAddress, cfg.Web.Port))

	daemon, err := NewSynthDaemon(cfg)
	if err != nil {
		logging.Error("main", fmt.Sprintf("Failed to create daemon: %v", err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := daemon.Start(); err != nil {
		logging.Error("main", fmt.Sprintf("Failed to start daemon: %v", err))
		os.Exit(1)
	}

	logging.Info("main", "synthd started successfully")

	<-sigChan
	logging.Info("main", "Shutting down...")

	if err := daemon.Stop(); err != nil {
		logging.Error("main", fmt.Sprintf("Error during shutdown: %v", err))
	}

	logging.Info("main", "synthd stopped")
}

func busName(disabled, hardware bool, bus string) string {
	switch {
	case disabled:
		return "disabled"
	case hardware:
		return "on " + bus
	}
	return "simulated"
}
