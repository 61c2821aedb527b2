// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package plcio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// FileBackend keeps the process image in memory and persists every write
// to a plain file, so a simulated image survives restarts. Unlike
// MmapBackend, other processes do not see writes until they reread the
// file.
type FileBackend struct {
	path string

	mu   sync.RWMutex
	file *os.File
	data []byte
}

// NewFileBackend loads path, creating it or growing it to size bytes.
func NewFileBackend(path string, size int) (*FileBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize file: %w", err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return &FileBackend{path: path, file: f, data: data}, nil
}

func (fb *FileBackend) ReadAt(ctx context.Context, addr uint32, buf []byte) error {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	if fb.file == nil {
		return ErrClosed
	}
	if err := validateRange(len(fb.data), addr, len(buf)); err != nil {
		return err
	}
	copy(buf, fb.data[addr:])
	return nil
}

// WriteAt updates the image and writes the changed bytes through to disk.
func (fb *FileBackend) WriteAt(ctx context.Context, addr uint32, data []byte) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.file == nil {
		return ErrClosed
	}
	if err := validateRange(len(fb.data), addr, len(data)); err != nil {
		return err
	}
	copy(fb.data[addr:], data)
	if _, err := fb.file.WriteAt(data, int64(addr)); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := fb.file.Sync(); err != nil {
		slog.Error("Failed to sync file", "path", fb.path, "err", err)
	}
	return nil
}

func (fb *FileBackend) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.file == nil {
		return nil
	}
	err := fb.file.Close()
	fb.file = nil
	return err
}
