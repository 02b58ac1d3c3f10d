// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package assetstore provides raster asset storage for the composition
// pipeline: layer sources are fetched by their asset key, finished token
// renders are written back. Two implementations exist: an S3-compatible
// client for production and an in-memory store for tests and local runs.
package assetstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// NotFoundError reports a raster asset key with no stored object.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset %q not found", e.Key)
}

// Store is the asset capability the engine consumes.
type Store interface {
	// FetchRaster returns the stored raster bytes for a layer asset key.
	FetchRaster(ctx context.Context, key string) ([]byte, error)
	// PutRender stores a finished token image under the given key.
	PutRender(ctx context.Context, key string, data []byte) error
}

// MemoryStore keeps assets in a map. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores raster bytes under a layer asset key.
func (m *MemoryStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// FetchRaster returns the bytes for key or a *NotFoundError.
func (m *MemoryStore) FetchRaster(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return data, nil
}

// PutRender stores a finished render like any other object.
func (m *MemoryStore) PutRender(_ context.Context, key string, data []byte) error {
	m.Put(key, data)
	return nil
}

// Keys returns the stored keys sorted, for test assertions.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
