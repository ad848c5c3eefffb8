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

// Package lifecycle runs a threatradar service next to its gRPC health
// endpoint and handles process shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	ggrpc "github.com/carverauto/threatradar/pkg/grpc"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

const defaultShutdownTimeout = 10 * time.Second

var errServiceRequired = errors.New("service is required")

// Service is a long running component. Start must not block.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// GRPCServiceRegistrar registers additional services on the gRPC server.
type GRPCServiceRegistrar func(*grpc.Server) error

// ServerOptions holds configuration for RunServer.
type ServerOptions struct {
	ListenAddr           string
	ServiceName          string
	Service              Service
	Logger               logger.Logger
	RegisterGRPCServices []GRPCServiceRegistrar
	EnableHealthCheck    bool
	Security             *models.SecurityConfig
	ShutdownTimeout      time.Duration
}

// RunServer starts the service and, when ListenAddr is set, a gRPC server
// for health checks. It blocks until ctx is canceled, SIGINT or SIGTERM
// arrives, or the gRPC server fails, then stops both.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	if opts == nil || opts.Service == nil {
		return errServiceRequired
	}

	log := opts.Logger
	if log == nil {
		var err error

		log, err = CreateComponentLogger(ctx, opts.ServiceName, nil)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		srv      *ggrpc.Server
		provider ggrpc.SecurityProvider
	)

	if opts.ListenAddr != "" {
		var err error

		srv, provider, err = setupGRPCServer(ctx, opts, log)
		if err != nil {
			return err
		}

		defer func() {
			if err := provider.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close security provider")
			}
		}()
	}

	if err := opts.Service.Start(ctx); err != nil {
		if srv != nil {
			srv.Stop(context.Background())
		}

		return fmt.Errorf("failed to start %s: %w", opts.ServiceName, err)
	}

	errCh := make(chan error, 1)

	if srv != nil {
		go func() {
			errCh <- srv.Start()
		}()
	}

	log.Info().Str("service", opts.ServiceName).Str("addr", opts.ListenAddr).Msg("Service started")

	var runErr error

	select {
	case <-ctx.Done():
		log.Info().Str("service", opts.ServiceName).Msg("Shutdown requested")
	case err := <-errCh:
		runErr = err
		log.Error().Err(err).Msg("gRPC server exited")
	}

	return errors.Join(runErr, shutdown(opts, srv, log))
}

func setupGRPCServer(ctx context.Context, opts *ServerOptions, log logger.Logger) (*ggrpc.Server, ggrpc.SecurityProvider, error) {
	provider, err := ggrpc.NewSecurityProvider(ctx, opts.Security, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create security provider: %w", err)
	}

	creds, err := provider.GetServerCredentials(ctx)
	if err != nil {
		_ = provider.Close()

		return nil, nil, fmt.Errorf("failed to get server credentials: %w", err)
	}

	srv := ggrpc.NewServer(opts.ListenAddr, log, ggrpc.WithServerOptions(creds))

	for _, register := range opts.RegisterGRPCServices {
		if err := register(srv.GetGRPCServer()); err != nil {
			_ = provider.Close()

			return nil, nil, fmt.Errorf("failed to register gRPC service: %w", err)
		}
	}

	if opts.EnableHealthCheck {
		if err := srv.RegisterHealthServer(); err != nil {
			_ = provider.Close()

			return nil, nil, err
		}
	}

	if _, err := srv.Listen(ctx); err != nil {
		_ = provider.Close()

		return nil, nil, err
	}

	return srv, provider, nil
}

func shutdown(opts *ServerOptions, srv *ggrpc.Server, log logger.Logger) error {
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if srv != nil {
		srv.SetServingStatus(false)
	}

	err := opts.Service.Stop(ctx)
	if err != nil {
		log.Error().Err(err).Str("service", opts.ServiceName).Msg("Service stop failed")
	}

	if srv != nil {
		srv.Stop(ctx)
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service stopped")

	return err
}
