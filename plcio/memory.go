// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package plcio

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process process image. It serves simulations
// and tests; the PLC side is whoever else holds the backend.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryBackend creates a zeroed image of size bytes.
func NewMemoryBackend(size int) *MemoryBackend {
	return &MemoryBackend{data: make([]byte, size)}
}

func (m *MemoryBackend) ReadAt(ctx context.Context, addr uint32, buf []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return ErrClosed
	}
	if err := validateRange(len(m.data), addr, len(buf)); err != nil {
		return err
	}
	copy(buf, m.data[addr:])
	return nil
}

func (m *MemoryBackend) WriteAt(ctx context.Context, addr uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return ErrClosed
	}
	if err := validateRange(len(m.data), addr, len(data)); err != nil {
		return err
	}
	copy(m.data[addr:], data)
	return nil
}

// Update runs fn with exclusive access to the image, the way PLC logic
// would modify it between client accesses.
func (m *MemoryBackend) Update(fn func(image []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m.data)
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}
