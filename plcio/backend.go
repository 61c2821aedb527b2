// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package plcio

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned for accesses beyond the process image.
	ErrOutOfRange = errors.New("plcio: address range out of bounds")
	// ErrUnaligned is returned for writes a register based backend cannot
	// express.
	ErrUnaligned = errors.New("plcio: unaligned access")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("plcio: backend closed")
)

// Backend is raw byte access to the PLC process image.
//
// A single WriteAt must reach the PLC as one transaction.
type Backend interface {
	ReadAt(ctx context.Context, addr uint32, buf []byte) error
	WriteAt(ctx context.Context, addr uint32, data []byte) error
	Close() error
}

func validateRange(size int, addr uint32, n int) error {
	if n == 0 {
		return fmt.Errorf("plcio: empty access at 0x%04X", addr)
	}
	if int64(addr)+int64(n) > int64(size) {
		return fmt.Errorf("%w: 0x%04X+%d exceeds image size %d", ErrOutOfRange, addr, n, size)
	}
	return nil
}
