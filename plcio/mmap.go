// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package plcio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// MmapBackend is a process image shared through a memory-mapped file,
// e.g. a soft PLC exporting its image under /dev/shm.
type MmapBackend struct {
	path string

	mu   sync.RWMutex
	file *os.File
	data mmap.MMap
}

// NewMmapBackend maps path read-write, creating it or growing it to size
// bytes if needed. Existing larger files are mapped whole.
func NewMmapBackend(path string, size int) (*MmapBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmap file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize mmap file: %w", err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	slog.Debug("process image mapped", "path", path, "size", len(data))
	return &MmapBackend{path: path, file: f, data: data}, nil
}

func (mb *MmapBackend) ReadAt(ctx context.Context, addr uint32, buf []byte) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if mb.data == nil {
		return ErrClosed
	}
	if err := validateRange(len(mb.data), addr, len(buf)); err != nil {
		return err
	}
	copy(buf, mb.data[addr:])
	return nil
}

// WriteAt copies data into the mapping and flushes it, so readers of the
// file see the write as a whole.
func (mb *MmapBackend) WriteAt(ctx context.Context, addr uint32, data []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.data == nil {
		return ErrClosed
	}
	if err := validateRange(len(mb.data), addr, len(data)); err != nil {
		return err
	}
	copy(mb.data[addr:], data)
	if err := mb.data.Flush(); err != nil {
		slog.Error("Failed to flush mmap", "path", mb.path, "err", err)
	}
	return nil
}

// Close unmaps and closes the file.
func (mb *MmapBackend) Close() error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	var err error
	if mb.data != nil {
		if e := mb.data.Unmap(); e != nil {
			err = e
		}
		mb.data = nil
	}
	if mb.file != nil {
		if e := mb.file.Close(); e != nil {
			err = e
		}
		mb.file = nil
	}
	return err
}
