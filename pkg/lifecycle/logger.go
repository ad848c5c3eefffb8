/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/threatradar/pkg/logger"
)

// CreateLogger creates a logger from config. A nil config uses the
// environment driven defaults.
func CreateLogger(ctx context.Context, config *logger.Config) (logger.Logger, error) {
	zl, err := logger.Build(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.New(zl), nil
}

// CreateComponentLogger creates a logger tagged with the component name.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	zl, err := logger.Build(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.New(zl.With().Str("component", component).Logger()), nil
}

// InitializeTelemetry starts the OTLP metric and trace pipelines that config
// enables. Disabled pipelines are skipped silently.
func InitializeTelemetry(ctx context.Context, config *logger.Config, log logger.Logger) error {
	if config == nil {
		config = logger.DefaultConfig()
	}

	var errs []error

	if _, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{OTel: &config.OTel}); err != nil {
		if !errors.Is(err, logger.ErrOTelMetricsDisabled) {
			errs = append(errs, err)
		}
	} else {
		log.Info().Str("endpoint", config.OTel.Endpoint).Msg("OTLP metrics enabled")
	}

	if _, err := logger.InitializeTracing(ctx, &config.OTel); err != nil {
		if !errors.Is(err, logger.ErrOTelTracingDisabled) {
			errs = append(errs, err)
		}
	} else {
		log.Info().Str("endpoint", config.OTel.Endpoint).Msg("OTLP tracing enabled")
	}

	return errors.Join(errs...)
}

// ShutdownLogger flushes and stops the OTLP pipelines.
func ShutdownLogger() error {
	return logger.Shutdown()
}
