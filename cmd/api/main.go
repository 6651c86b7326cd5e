package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	_ "time/tzdata"

	"catabus.org/transit/internal/appconf"
)

func main() {
	startupLogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := appconf.LoadDotEnv(); err != nil {
		startupLogger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	fileCfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		startupLogger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	cfg := fileCfg.ToAppConfig()
	feeds := fileCfg.ToGtfsConfigData()

	coreApp, err := BuildApplication(context.Background(), cfg, GtfsConfigFrom(feeds), RealtimeConfigFrom(feeds))
	if err != nil {
		startupLogger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	srv := CreateServer(coreApp, cfg)

	if err := Run(srv, coreApp); err != nil {
		coreApp.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
