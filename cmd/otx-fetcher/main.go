package main

import (
	"context"
	"flag"
	"log"

	"github.com/carverauto/threatradar/pkg/config"
	"github.com/carverauto/threatradar/pkg/config/kvnats"
	"github.com/carverauto/threatradar/pkg/lifecycle"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/otx"
)

func main() {
	configPath := flag.String("config", "/etc/threatradar/otx-fetcher.json", "Path to config file")
	flag.Parse()

	ctx := context.Background()

	bootLogger, err := lifecycle.CreateComponentLogger(ctx, "otx-fetcher-config", nil)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfgLoader := config.NewConfig(bootLogger)

	closeKV, err := kvnats.AttachFromEnv(ctx, cfgLoader, bootLogger)
	if err != nil {
		log.Fatalf("Failed to connect to config KV: %v", err)
	}

	var cfg otx.OTXFetcherConfig

	err = cfgLoader.LoadAndValidate(ctx, *configPath, &cfg)

	closeKV()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loggerConfig := cfg.Logging
	if loggerConfig == nil {
		loggerConfig = logger.DefaultConfig()
	}

	serviceLogger, err := lifecycle.CreateComponentLogger(ctx, "otx-fetcher", loggerConfig)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := lifecycle.InitializeTelemetry(ctx, loggerConfig, serviceLogger); err != nil {
		serviceLogger.Warn().Err(err).Msg("Telemetry disabled")
	}

	svc, err := otx.NewService(&cfg, serviceLogger)
	if err != nil {
		log.Fatalf("Failed to initialize OTX fetcher service: %v", err)
	}

	opts := &lifecycle.ServerOptions{
		ListenAddr:        cfg.ListenAddr,
		ServiceName:       "otx-fetcher",
		Service:           svc,
		Logger:            serviceLogger,
		EnableHealthCheck: true,
		Security:          cfg.Security,
	}

	if err := lifecycle.RunServer(ctx, opts); err != nil {
		serviceLogger.Error().Err(err).Msg("Server failed")
	}

	if err := lifecycle.ShutdownLogger(); err != nil {
		log.Printf("Failed to flush logger: %v", err)
	}
}
