package main

import (
	"flag"

	"TurtleControl/internal/server"
)

func main() {
	addr := flag.String("addr", "", "address to listen on (e.g., 127.0.0.1:8080)")
	configPath := flag.String("config", "configs/server.json", "path to server configuration JSON")
	machineKey := flag.String("machine-key", "", "override the machine API key")
	concurrency := flag.Int("concurrency", 0, "override task queue max concurrency")
	logLevel := flag.String("log-level", "", "override log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath, server.DefaultAppConfig())
	if err != nil {
		panic(err)
	}

	var overrides server.ConfigOverrides
	if *addr != "" {
		overrides.Addr = addr
	}
	if *machineKey != "" {
		overrides.MachineAPIKey = machineKey
	}
	if *concurrency > 0 {
		overrides.MaxConcurrency = concurrency
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	server.StartApp(server.ApplyOverrides(cfg, overrides))
}
