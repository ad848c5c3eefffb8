package kvnats

import (
	"context"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/threatradar/pkg/config"
	"github.com/carverauto/threatradar/pkg/logger"
	"github.com/carverauto/threatradar/pkg/natsutil"
)

const (
	defaultKVURL    = "nats://127.0.0.1:4222"
	defaultKVBucket = "threatradar-config"
)

// AttachFromEnv wires a KV-backed store into cfg when CONFIG_SOURCE=kv.
// KV_NATS_URL, KV_DOMAIN and KV_BUCKET select the bucket. The returned close
// func is always safe to call.
func AttachFromEnv(ctx context.Context, cfg *config.Config, log logger.Logger) (func(), error) {
	if os.Getenv("CONFIG_SOURCE") != "kv" {
		return func() {}, nil
	}

	url := envOr("KV_NATS_URL", defaultKVURL)

	nc, err := natsutil.ConnectWithSecurity(url, nil, log, nats.Name("threatradar-config"))
	if err != nil {
		return func() {}, err
	}

	js, err := natsutil.NewJetStream(nc, os.Getenv("KV_DOMAIN"))
	if err != nil {
		nc.Close()
		return func() {}, err
	}

	client, err := New(ctx, js, envOr("KV_BUCKET", defaultKVBucket))
	if err != nil {
		nc.Close()
		return func() {}, err
	}

	cfg.SetKVStore(client)

	return nc.Close, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
