// Package natskv implements the statestore port using NATS JetStream KV.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/selfai-labs/selfai/internal/port/statestore"
)

// stateKey is the fixed key under which the session snapshot is stored.
const stateKey = "state"

// Store persists session snapshots in a NATS JetStream KV bucket.
type Store struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

var _ statestore.Store = (*Store)(nil)

// Open connects to NATS and binds (creating if needed) the given KV bucket.
func Open(ctx context.Context, url, bucket string) (*Store, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}

	return &Store{kv: kv, nc: nc}, nil
}

// New wraps an existing KV bucket. Used by tests and embedded setups.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Load reads the current snapshot. A missing key yields (nil, nil).
func (s *Store) Load(ctx context.Context) (*statestore.Snapshot, error) {
	entry, err := s.kv.Get(ctx, stateKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("kv get: %w", err)
	}

	var snap statestore.Snapshot
	if err := json.Unmarshal(entry.Value(), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot. Last write wins.
func (s *Store) Save(ctx context.Context, snap statestore.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := s.kv.Put(ctx, stateKey, data); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// Close releases the NATS connection if this store owns one.
func (s *Store) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
