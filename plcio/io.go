// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package plcio provides typed, cached access to a PLC process image over
// a raw byte backend.
package plcio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ffutop/pils-client/device"
	"github.com/ffutop/pils-client/spec"
)

var _ device.PlcIO = (*IO)(nil)

const defaultTimeout = 2 * time.Second

// Option configures an IO.
type Option func(*IO)

// WithByteOrder sets the byte order of multi-byte values in the image.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(io *IO) { io.order = order }
}

// WithTimeout bounds every backend access.
func WithTimeout(d time.Duration) Option {
	return func(io *IO) { io.timeout = d }
}

// WithCache serves reads inside registered ranges from a per-range copy
// that is refetched once older than maxAge. Writes invalidate the ranges
// they touch.
func WithCache(maxAge time.Duration) Option {
	return func(io *IO) { io.maxAge = maxAge }
}

// span is one registered cache range.
type span struct {
	addr    uint32
	data    []byte
	fetched time.Time
}

func (s *span) end() uint32 { return s.addr + uint32(len(s.data)) }

func (s *span) covers(addr uint32, n int) bool {
	return addr >= s.addr && addr+uint32(n) <= s.end()
}

func (s *span) overlaps(addr uint32, n int) bool {
	return addr < s.end() && addr+uint32(n) > s.addr
}

// IO implements device.PlcIO on top of a Backend.
type IO struct {
	backend Backend
	order   binary.ByteOrder
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time

	mu    sync.Mutex
	spans []*span
}

// New wraps backend. Without options the image is big-endian and reads
// are not cached.
func New(backend Backend, opts ...Option) *IO {
	io := &IO{
		backend: backend,
		order:   binary.BigEndian,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(io)
	}
	return io
}

func (io *IO) opContext() (context.Context, context.CancelFunc) {
	if io.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), io.timeout)
}

// RegisterCacheRange declares [addr, addr+size) as one cache range.
func (io *IO) RegisterCacheRange(addr, size uint32) {
	if size == 0 {
		return
	}
	io.mu.Lock()
	defer io.mu.Unlock()

	io.spans = append(io.spans, &span{addr: addr, data: make([]byte, size)})
	sort.Slice(io.spans, func(i, j int) bool { return io.spans[i].addr < io.spans[j].addr })
}

func (io *IO) spanFor(addr uint32, n int) *span {
	for _, s := range io.spans {
		if s.covers(addr, n) {
			return s
		}
	}
	return nil
}

// fill refetches s. Caller must hold the mutex.
func (io *IO) fill(s *span) error {
	ctx, cancel := io.opContext()
	defer cancel()

	if err := io.backend.ReadAt(ctx, s.addr, s.data); err != nil {
		s.fetched = time.Time{}
		return fmt.Errorf("refresh cache range 0x%04X+%d: %w", s.addr, len(s.data), err)
	}
	s.fetched = io.now()
	return nil
}

// UpdateCache refetches every registered range.
func (io *IO) UpdateCache(ctx context.Context) error {
	io.mu.Lock()
	defer io.mu.Unlock()

	var errs []error
	for _, s := range io.spans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := io.fill(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (io *IO) read(addr uint32, n int) ([]byte, error) {
	out := make([]byte, n)
	if io.maxAge > 0 {
		io.mu.Lock()
		defer io.mu.Unlock()

		if s := io.spanFor(addr, n); s != nil {
			if s.fetched.IsZero() || io.now().Sub(s.fetched) > io.maxAge {
				if err := io.fill(s); err != nil {
					return nil, err
				}
			}
			copy(out, s.data[addr-s.addr:])
			return out, nil
		}
	}

	ctx, cancel := io.opContext()
	defer cancel()
	if err := io.backend.ReadAt(ctx, addr, out); err != nil {
		return nil, fmt.Errorf("read %d bytes at 0x%04X: %w", n, addr, err)
	}
	return out, nil
}

func (io *IO) write(addr uint32, data []byte) error {
	ctx, cancel := io.opContext()
	defer cancel()

	slog.Debug("plc write", "addr", fmt.Sprintf("0x%04X", addr), "len", len(data))
	err := io.backend.WriteAt(ctx, addr, data)

	io.mu.Lock()
	for _, s := range io.spans {
		if s.overlaps(addr, len(data)) {
			s.fetched = time.Time{}
		}
	}
	io.mu.Unlock()

	if err != nil {
		return fmt.Errorf("write %d bytes at 0x%04X: %w", len(data), addr, err)
	}
	return nil
}

func (io *IO) ReadU16(addr uint32) (uint16, error) {
	b, err := io.read(addr, 2)
	if err != nil {
		return 0, err
	}
	return io.order.Uint16(b), nil
}

func (io *IO) ReadU32(addr uint32) (uint32, error) {
	b, err := io.read(addr, 4)
	if err != nil {
		return 0, err
	}
	return io.order.Uint32(b), nil
}

func (io *IO) ReadU64(addr uint32) (uint64, error) {
	b, err := io.read(addr, 8)
	if err != nil {
		return 0, err
	}
	return io.order.Uint64(b), nil
}

func (io *IO) ReadF32(addr uint32) (float32, error) {
	v, err := io.ReadU32(addr)
	return math.Float32frombits(v), err
}

func (io *IO) ReadF64(addr uint32) (float64, error) {
	v, err := io.ReadU64(addr)
	return math.Float64frombits(v), err
}

// ReadF32s reads n consecutive floats in one access.
func (io *IO) ReadF32s(addr uint32, n int) ([]float32, error) {
	b, err := io.read(addr, 4*n)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(io.order.Uint32(b[4*i:]))
	}
	return out, nil
}

// ReadF64s reads n consecutive doubles in one access.
func (io *IO) ReadF64s(addr uint32, n int) ([]float64, error) {
	b, err := io.read(addr, 8*n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(io.order.Uint64(b[8*i:]))
	}
	return out, nil
}

func (io *IO) WriteU16(addr uint32, v uint16) error {
	return io.WriteFields(addr, spec.U16(v))
}

func (io *IO) WriteU32(addr uint32, v uint32) error {
	return io.WriteFields(addr, spec.U32(v))
}

func (io *IO) WriteU64(addr uint32, v uint64) error {
	return io.WriteFields(addr, spec.Field{Format: spec.FormatI64, Bits: v})
}

func (io *IO) WriteF32(addr uint32, v float32) error {
	return io.WriteFields(addr, spec.F32(v))
}

func (io *IO) WriteF64(addr uint32, v float64) error {
	return io.WriteFields(addr, spec.F64(v))
}

// WriteFields writes fields back to back in a single backend access.
func (io *IO) WriteFields(addr uint32, fields ...spec.Field) error {
	return io.write(addr, spec.PackFields(io.order, fields...))
}

// WriteF32ThenU16 writes a float followed by a 16 bit word, e.g. a
// target and its status request, in one transaction.
func (io *IO) WriteF32ThenU16(addr uint32, f float32, u uint16) error {
	return io.WriteFields(addr, spec.F32(f), spec.U16(u))
}

// WriteF32ThenU32 is WriteF32ThenU16 for 32 bit status words.
func (io *IO) WriteF32ThenU32(addr uint32, f float32, u uint32) error {
	return io.WriteFields(addr, spec.F32(f), spec.U32(u))
}

// Close closes the backend.
func (io *IO) Close() error {
	return io.backend.Close()
}
