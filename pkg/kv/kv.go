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

// Package kv provides the shared key-value cache used for scheduler
// leader locks and short-lived query caching.
package kv

import (
	"context"
	"time"
)

// Store is the cache interface the rest of the system consumes.
type Store interface {
	// Get returns the value for key; found=false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Put writes key with a TTL (zero means no expiry).
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Acquire attempts an NX create with TTL. It returns true when this
	// caller created the key, false when another holder already has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}
