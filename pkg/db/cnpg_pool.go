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

package db

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

const (
	defaultCNPGPort = 5432

	sslModeDisable    = "disable"
	sslModeVerifyFull = "verify-full"
)

var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// NewCNPGPool dials the configured Postgres cluster and returns a pgx pool for
// the enriched record sink. A nil config yields a nil pool.
func NewCNPGPool(ctx context.Context, cfg *models.CNPGDatabase, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, nil
	}

	connURL, err := buildCNPGConnURL(cfg)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("cnpg: failed to parse connection string: %w", err)
	}

	applyCNPGPoolSettings(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("cnpg: failed to initialize pool: %w", err)
	}

	if log != nil {
		log.Info().
			Str("host", cfg.Host).
			Int("port", cnpgPort(cfg)).
			Str("database", cfg.Database).
			Int32("max_conns", poolConfig.MaxConns).
			Msg("connected to CNPG cluster")
	}

	return pool, nil
}

func cnpgPort(cfg *models.CNPGDatabase) int {
	if cfg.Port == 0 {
		return defaultCNPGPort
	}

	return cfg.Port
}

// buildCNPGConnURL renders the postgres:// URL pgx parses. TLS material is
// passed through sslcert/sslkey/sslrootcert so pgx builds the client config.
func buildCNPGConnURL(cfg *models.CNPGDatabase) (*url.URL, error) {
	sslMode, err := resolveCNPGSSLMode(cfg)
	if err != nil {
		return nil, err
	}

	connURL := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cnpgPort(cfg)),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	query := connURL.Query()
	query.Set("sslmode", sslMode)

	if cfg.ApplicationName != "" {
		query.Set("application_name", cfg.ApplicationName)
	}

	if cfg.TLS != nil {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" || cfg.TLS.CAFile == "" {
			return nil, ErrCNPGTLSFilesRequired
		}

		query.Set("sslcert", resolveCNPGPath(cfg.CertDir, cfg.TLS.CertFile))
		query.Set("sslkey", resolveCNPGPath(cfg.CertDir, cfg.TLS.KeyFile))
		query.Set("sslrootcert", resolveCNPGPath(cfg.CertDir, cfg.TLS.CAFile))
	}

	connURL.RawQuery = query.Encode()

	return connURL, nil
}

// resolveCNPGSSLMode picks the explicit ssl_mode, then runtime_params.sslmode,
// then a default that depends on whether client TLS is configured.
func resolveCNPGSSLMode(cfg *models.CNPGDatabase) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(cfg.ExtraRuntimeParams["sslmode"]))
	}

	if mode == "" {
		if cfg.TLS != nil {
			return sslModeVerifyFull, nil
		}

		return sslModeDisable, nil
	}

	if _, ok := validSSLModes[mode]; !ok {
		return "", fmt.Errorf("%w: %q", ErrCNPGInvalidSSLMode, mode)
	}

	if mode == sslModeDisable && cfg.TLS != nil {
		return "", ErrCNPGTLSDisabled
	}

	return mode, nil
}

func resolveCNPGPath(certDir, path string) string {
	if path == "" || filepath.IsAbs(path) || certDir == "" {
		return path
	}

	return filepath.Join(certDir, path)
}

func applyCNPGPoolSettings(poolConfig *pgxpool.Config, cfg *models.CNPGDatabase) {
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime)
	}

	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod)
	}

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}

	for k, v := range cfg.ExtraRuntimeParams {
		// sslmode is a client setting, not a server GUC.
		if k == "" || k == "sslmode" {
			continue
		}

		poolConfig.ConnConfig.RuntimeParams[k] = v
	}

	if cfg.StatementTimeout > 0 {
		ms := time.Duration(cfg.StatementTimeout).Milliseconds()
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(ms, 10)
	}
}
