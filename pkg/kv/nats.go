/*
 * Copyright 2026 Carver Automation Corporation.
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

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsStore backs Store with a JetStream key-value bucket.
type NatsStore struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

// NewNatsStore connects to NATS and creates (or binds to) the bucket.
func NewNatsStore(ctx context.Context, natsURL, bucket string) (*NatsStore, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("kv: connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("kv: create JetStream context: %w", err)
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		// Enables per-message TTLs so each lock expires on its own
		// schedule rather than at a bucket-wide horizon.
		LimitMarkerTTL: time.Second,
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("kv: create bucket %s: %w", bucket, err)
	}

	return &NatsStore{nc: nc, kv: kv}, nil
}

func (n *NatsStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("kv: get %s: %w", key, err)
	}

	return entry.Value(), true, nil
}

func (n *NatsStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var err error

	if ttl > 0 {
		// Put has no TTL variant; replace the key so the fresh TTL
		// applies.
		_ = n.Delete(ctx, key)
		_, err = n.kv.Create(ctx, key, value, jetstream.KeyTTL(ttl))
	} else {
		_, err = n.kv.Put(ctx, key, value)
	}

	if err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}

	return nil
}

func (n *NatsStore) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}

	return nil
}

// Acquire creates key with a TTL. Only one caller across all replicas
// wins; the rest see the key already present.
func (n *NatsStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	_, err := n.kv.Create(ctx, key, []byte("1"), jetstream.KeyTTL(ttl))
	if errors.Is(err, jetstream.ErrKeyExists) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("kv: acquire %s: %w", key, err)
	}

	return true, nil
}

func (n *NatsStore) Close() error {
	n.nc.Close()

	return nil
}

var _ Store = (*NatsStore)(nil)
