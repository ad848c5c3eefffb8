package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/carverauto/threatradar/pkg/config"
	"github.com/carverauto/threatradar/pkg/config/kvnats"
	otxenricher "github.com/carverauto/threatradar/pkg/consumers/otx-enricher"
	"github.com/carverauto/threatradar/pkg/db"
	"github.com/carverauto/threatradar/pkg/lifecycle"
	"github.com/carverauto/threatradar/pkg/logger"
)

var ErrCNPGPasswordEmpty = errors.New("CNPG password file is empty")

func main() {
	configPath := flag.String("config", "/etc/threatradar/otx-enricher.json", "Path to config file")
	flag.Parse()

	ctx := context.Background()

	bootLogger, err := lifecycle.CreateComponentLogger(ctx, "otx-enricher-config", nil)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfgLoader := config.NewConfig(bootLogger)

	closeKV, err := kvnats.AttachFromEnv(ctx, cfgLoader, bootLogger)
	if err != nil {
		log.Fatalf("Failed to connect to config KV: %v", err)
	}

	var cfg otxenricher.OTXEnricherConfig

	err = cfgLoader.LoadAndValidate(ctx, *configPath, &cfg)

	closeKV()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.CNPG != nil && cfg.CNPG.TLS != nil && cfg.CNPG.CertDir != "" {
		config.NormalizeTLSPaths(cfg.CNPG.TLS, cfg.CNPG.CertDir, nil)
	}

	if err := applyCNPGPassword(&cfg); err != nil {
		log.Fatalf("OTX enricher config validation failed: %v", err)
	}

	loggerConfig := cfg.Logging
	if loggerConfig == nil {
		loggerConfig = logger.DefaultConfig()
	}

	serviceLogger, err := lifecycle.CreateComponentLogger(ctx, "otx-enricher", loggerConfig)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := lifecycle.InitializeTelemetry(ctx, loggerConfig, serviceLogger); err != nil {
		serviceLogger.Warn().Err(err).Msg("Telemetry disabled")
	}

	var sink otxenricher.RecordSink

	if cfg.CNPG != nil {
		dbLogger, err := lifecycle.CreateComponentLogger(ctx, "otx-enricher-db", loggerConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database logger: %v", err)
		}

		pool, err := db.NewCNPGPool(ctx, cfg.CNPG, dbLogger)
		if err != nil {
			log.Fatalf("Failed to initialize CNPG pool: %v", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool, dbLogger); err != nil {
			log.Fatalf("Failed to apply CNPG migrations: %v", err) //nolint:gocritic // process exits, pool teardown is moot
		}

		sink = db.NewEnrichedRecordStore(pool, dbLogger)
	}

	svc, err := otxenricher.NewService(&cfg, sink, serviceLogger)
	if err != nil {
		log.Fatalf("Failed to initialize OTX enricher service: %v", err)
	}

	opts := &lifecycle.ServerOptions{
		ListenAddr:        cfg.ListenAddr,
		ServiceName:       "otx-enricher",
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

// applyCNPGPassword reads the CNPG password from CNPG_PASSWORD_FILE when the
// config does not carry one.
func applyCNPGPassword(cfg *otxenricher.OTXEnricherConfig) error {
	if cfg == nil || cfg.CNPG == nil || cfg.CNPG.Password != "" {
		return nil
	}

	pwPath := os.Getenv("CNPG_PASSWORD_FILE")
	if pwPath == "" {
		return nil
	}

	data, err := os.ReadFile(pwPath)
	if err != nil {
		return fmt.Errorf("read CNPG password file: %w", err)
	}

	pwd := strings.TrimSpace(string(data))
	if pwd == "" {
		return fmt.Errorf("%w: %s", ErrCNPGPasswordEmpty, pwPath)
	}

	cfg.CNPG.Password = pwd

	return nil
}
