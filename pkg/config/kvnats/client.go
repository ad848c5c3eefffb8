// Package kvnats backs config.KVStore with a NATS JetStream key-value bucket.
package kvnats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/threatradar/pkg/config"
)

// Client reads configuration documents from one KV bucket.
type Client struct {
	kv     jetstream.KeyValue
	bucket string
}

// Ensure Client implements config.KVStore
var _ config.KVStore = (*Client)(nil)

// New binds to bucket, creating it if it does not exist yet.
func New(ctx context.Context, js jetstream.JetStream, bucket string) (*Client, error) {
	kvStore, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "threatradar service configuration",
		History:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}

	return &Client{kv: kvStore, bucket: bucket}, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return entry.Value(), true, nil
}

// Put stores value under key. Used to seed configuration.
func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.kv.Put(ctx, key, value)

	return err
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
