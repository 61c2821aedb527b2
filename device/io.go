// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"

	"github.com/ffutop/pils-client/spec"
)

// PlcIO is the byte-addressable view of the PLC process image.
// Addresses are byte offsets; byte order is the implementation's concern.
type PlcIO interface {
	ReadU16(addr uint32) (uint16, error)
	ReadU32(addr uint32) (uint32, error)
	ReadU64(addr uint32) (uint64, error)
	ReadF32(addr uint32) (float32, error)
	ReadF64(addr uint32) (float64, error)
	ReadF32s(addr uint32, n int) ([]float32, error)
	ReadF64s(addr uint32, n int) ([]float64, error)

	WriteU16(addr uint32, v uint16) error
	WriteU32(addr uint32, v uint32) error
	WriteU64(addr uint32, v uint64) error
	WriteF32(addr uint32, v float32) error
	WriteF64(addr uint32, v float64) error

	// WriteFields writes fields back to back starting at addr in a single
	// transaction. The PLC must never observe a partial write.
	WriteFields(addr uint32, fields ...spec.Field) error

	// RegisterCacheRange declares [addr, addr+size) as belonging to one
	// device so reads can be cached and batched.
	RegisterCacheRange(addr, size uint32)
}

// encodeValue encodes v as f, rejecting NaN and values f cannot hold
// with ErrBadValue.
func encodeValue(f spec.ValueFormat, v float64, what string) (spec.Field, error) {
	fd, err := spec.Value(f, v)
	if err != nil {
		return spec.Field{}, fmt.Errorf("%w: %s: %w", ErrBadValue, what, err)
	}
	return fd, nil
}

func readRaw(io PlcIO, addr uint32, size int) (uint64, error) {
	switch size {
	case 2:
		v, err := io.ReadU16(addr)
		return uint64(v), err
	case 4:
		v, err := io.ReadU32(addr)
		return uint64(v), err
	case 8:
		return io.ReadU64(addr)
	}
	return 0, specError("unsupported field size %d", size)
}

func writeRaw(io PlcIO, addr uint32, f spec.Field) error {
	switch f.Size() {
	case 2:
		return io.WriteU16(addr, uint16(f.Bits))
	case 4:
		return io.WriteU32(addr, uint32(f.Bits))
	case 8:
		return io.WriteU64(addr, f.Bits)
	}
	return specError("unsupported field size %d", f.Size())
}
