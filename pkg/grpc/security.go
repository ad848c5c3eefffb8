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

package grpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/carverauto/threatradar/pkg/config"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/models"
)

const defaultWorkloadSocket = "unix:/run/spire/sockets/agent.sock"

// SecurityProvider supplies transport credentials for gRPC servers and clients.
type SecurityProvider interface {
	GetClientCredentials(ctx context.Context) (grpc.DialOption, error)
	GetServerCredentials(ctx context.Context) (grpc.ServerOption, error)
	Close() error
}

// NoSecurityProvider implements SecurityProvider with no security (development only).
type NoSecurityProvider struct{}

func (*NoSecurityProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	return grpc.Creds(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) Close() error {
	return nil
}

// MTLSProvider implements SecurityProvider with mutual TLS from PEM files.
type MTLSProvider struct {
	clientCreds credentials.TransportCredentials
	serverCreds credentials.TransportCredentials
}

// NewMTLSProvider loads both halves of the mTLS configuration. Relative paths
// are resolved against CertDir; ClientCAFile falls back to CAFile.
func NewMTLSProvider(sec *models.SecurityConfig, log logger.Logger) (*MTLSProvider, error) {
	if sec == nil {
		return nil, errSecurityConfigRequired
	}

	paths := sec.TLS
	config.NormalizeTLSPaths(&paths, sec.CertDir, log)

	if err := checkCertificateFiles(paths); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(paths.CertFile, paths.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadServerCert, err)
	}

	rootPool, err := loadCertPool(paths.CAFile)
	if err != nil {
		return nil, err
	}

	clientCAPool, err := loadCertPool(paths.ClientCAFile)
	if err != nil {
		return nil, err
	}

	return &MTLSProvider{
		clientCreds: credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      rootPool,
			ServerName:   sec.ServerName,
			MinVersion:   tls.VersionTLS13,
		}),
		serverCreds: credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			ClientCAs:    clientCAPool,
			ClientAuth:   tls.RequireAndVerifyClientCert,
			MinVersion:   tls.VersionTLS13,
		}),
	}, nil
}

// checkCertificateFiles reports every configured file that is unset or absent.
func checkCertificateFiles(paths models.TLSConfig) error {
	var missing []string

	for _, path := range []string{paths.CertFile, paths.KeyFile, paths.CAFile, paths.ClientCAFile} {
		if path == "" {
			missing = append(missing, "<unset>")
			continue
		}

		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingCertificates, strings.Join(missing, ", "))
	}

	return nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToReadCACert, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: %s", errFailedToAppendCACert, path)
	}

	return pool, nil
}

func (p *MTLSProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	return grpc.WithTransportCredentials(p.clientCreds), nil
}

func (p *MTLSProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	return grpc.Creds(p.serverCreds), nil
}

func (*MTLSProvider) Close() error {
	return nil
}

// SpiffeProvider implements SecurityProvider using the SPIFFE Workload API.
type SpiffeProvider struct {
	client         *workloadapi.Client
	source         *workloadapi.X509Source
	trustDomain    spiffeid.TrustDomain
	hasTrustDomain bool
	closeOnce      sync.Once
	logger         logger.Logger
}

func NewSpiffeProvider(ctx context.Context, sec *models.SecurityConfig, log logger.Logger) (*SpiffeProvider, error) {
	trustDomain, hasTrustDomain, err := parseTrustDomain(sec.TrustDomain)
	if err != nil {
		return nil, err
	}

	socket := sec.WorkloadSocket
	if socket == "" {
		socket = defaultWorkloadSocket
	}

	client, err := workloadapi.New(ctx, workloadapi.WithAddr(socket))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedWorkloadAPIClient, err)
	}

	source, err := workloadapi.NewX509Source(ctx, workloadapi.WithClient(client))
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("%w: %w", errFailedToCreateX509Source, err)
	}

	return &SpiffeProvider{
		client:         client,
		source:         source,
		trustDomain:    trustDomain,
		hasTrustDomain: hasTrustDomain,
		logger:         log,
	}, nil
}

// parseTrustDomain accepts "example.org" or a full "spiffe://example.org/..." id.
func parseTrustDomain(raw string) (spiffeid.TrustDomain, bool, error) {
	td := strings.TrimSpace(raw)
	if td == "" {
		return spiffeid.TrustDomain{}, false, nil
	}

	if strings.Contains(td, "://") {
		id, err := spiffeid.FromString(td)
		if err != nil {
			return spiffeid.TrustDomain{}, false, fmt.Errorf("%w: %w", errInvalidTrustDomain, err)
		}

		return id.TrustDomain(), true, nil
	}

	parsed, err := spiffeid.TrustDomainFromString(td)
	if err != nil {
		return spiffeid.TrustDomain{}, false, fmt.Errorf("%w: %w", errInvalidTrustDomain, err)
	}

	return parsed, true, nil
}

func (p *SpiffeProvider) authorizer() tlsconfig.Authorizer {
	if p.hasTrustDomain {
		return tlsconfig.AuthorizeMemberOf(p.trustDomain)
	}

	p.logger.Warn().Msg("No trust_domain configured; accepting any SPIFFE peer")

	return tlsconfig.AuthorizeAny()
}

func (p *SpiffeProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	tlsConfig := tlsconfig.MTLSClientConfig(p.source, p.source, p.authorizer())

	return grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)), nil
}

func (p *SpiffeProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	tlsConfig := tlsconfig.MTLSServerConfig(p.source, p.source, p.authorizer())

	return grpc.Creds(credentials.NewTLS(tlsConfig)), nil
}

func (p *SpiffeProvider) Close() error {
	var err error

	p.closeOnce.Do(func() {
		if e := p.source.Close(); e != nil {
			p.logger.Error().Err(e).Msg("Failed to close X.509 source")

			err = e
		}

		if e := p.client.Close(); e != nil {
			p.logger.Error().Err(e).Msg("Failed to close workload client")

			err = e
		}
	})

	return err
}

// NewSecurityProvider creates the provider for the configured mode. A nil
// config or empty mode means no transport security.
func NewSecurityProvider(ctx context.Context, sec *models.SecurityConfig, log logger.Logger) (SecurityProvider, error) {
	if sec == nil || sec.Mode == "" {
		log.Warn().Msg("No security mode configured, gRPC endpoint is plaintext")

		return &NoSecurityProvider{}, nil
	}

	mode := models.SecurityMode(strings.ToLower(string(sec.Mode)))

	log.Info().Str("mode", string(mode)).Msg("Creating security provider")

	switch mode {
	case models.SecurityModeNone:
		return &NoSecurityProvider{}, nil
	case models.SecurityModeMTLS:
		provider, err := NewMTLSProvider(sec, log)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToCreateMTLSProvider, err)
		}

		return provider, nil
	case models.SecurityModeSpiffe:
		return NewSpiffeProvider(ctx, sec, log)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownSecurityMode, sec.Mode)
	}
}
