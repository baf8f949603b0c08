// SPDX-License-Identifier: MPL-2.0

// Package store persists small string values by key. The prompts service
// keeps its disabled-files sets here.
package store

import (
	"context"
	"sync"
)

type (
	// Storage is a string key/value store.
	Storage interface {
		// Get returns the value of key. ok is false when it is unset.
		Get(ctx context.Context, key string) (value string, ok bool, err error)
		// Set stores value under key. An empty value removes the key.
		Set(ctx context.Context, key, value string) error
	}

	// Memory is an in-process Storage. The zero value is ready to use.
	Memory struct {
		mu     sync.RWMutex
		values map[string]string
	}
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Get implements Storage.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Storage.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		delete(m.values, key)
		return nil
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}
