// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package spec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrValueRange is returned for values a format cannot represent.
var ErrValueRange = errors.New("value not representable")

// maxInt64Float is the largest float64 that converts to int64 without
// overflow. float64(math.MaxInt64) rounds up to 2^63.
const maxInt64Float = 0x1p63 - 1024

// ValueFormat is the scalar encoding of a device value.
type ValueFormat int

const (
	FormatNone ValueFormat = iota
	FormatU16
	FormatI16
	FormatU32
	FormatI32
	FormatI64
	FormatF32
	FormatF64
)

var formatNames = map[ValueFormat]string{
	FormatNone: "none",
	FormatU16:  "uint16",
	FormatI16:  "int16",
	FormatU32:  "uint32",
	FormatI32:  "int32",
	FormatI64:  "int64",
	FormatF32:  "float32",
	FormatF64:  "float64",
}

func (f ValueFormat) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("ValueFormat(%d)", int(f))
}

// Size returns the encoded size in bytes.
func (f ValueFormat) Size() int {
	switch f {
	case FormatU16, FormatI16:
		return 2
	case FormatU32, FormatI32, FormatF32:
		return 4
	case FormatI64, FormatF64:
		return 8
	}
	return 0
}

// IsFloat reports whether the format is an IEEE 754 encoding.
func (f ValueFormat) IsFloat() bool {
	return f == FormatF32 || f == FormatF64
}

// Limits returns the representable range of the format. Both bounds
// encode without wrapping.
func (f ValueFormat) Limits() (min, max float64) {
	switch f {
	case FormatU16:
		return 0, math.MaxUint16
	case FormatI16:
		return math.MinInt16, math.MaxInt16
	case FormatU32:
		return 0, math.MaxUint32
	case FormatI32:
		return math.MinInt32, math.MaxInt32
	case FormatI64:
		return math.MinInt64, maxInt64Float
	case FormatF32:
		return -math.MaxFloat32, math.MaxFloat32
	case FormatF64:
		return -math.MaxFloat64, math.MaxFloat64
	}
	return 0, 0
}

// ParamFormat returns the encoding of a parameter slot of the given width
// holding the parameter with protocol index idx.
func ParamFormat(width ValueFormat, idx int) ValueFormat {
	wide := width.Size() == 8
	if IsFloatIndex(idx) {
		if wide {
			return FormatF64
		}
		return FormatF32
	}
	if wide {
		return FormatI64
	}
	return FormatI32
}

// Decode converts raw bits (as read with the format's width) to a float64.
func (f ValueFormat) Decode(raw uint64) float64 {
	switch f {
	case FormatU16:
		return float64(uint16(raw))
	case FormatI16:
		return float64(int16(raw))
	case FormatU32:
		return float64(uint32(raw))
	case FormatI32:
		return float64(int32(raw))
	case FormatI64:
		return float64(int64(raw))
	case FormatF32:
		return float64(math.Float32frombits(uint32(raw)))
	case FormatF64:
		return math.Float64frombits(raw)
	}
	return 0
}

// Check reports an error wrapping ErrValueRange if v is NaN or outside
// Limits.
func (f ValueFormat) Check(v float64) error {
	min, max := f.Limits()
	if math.IsNaN(v) || v < min || v > max {
		return fmt.Errorf("%w: %v as %v", ErrValueRange, v, f)
	}
	return nil
}

// Encode converts v to raw bits of the format's width. Integer formats
// truncate toward zero. Callers check v first; unchecked values wrap.
func (f ValueFormat) Encode(v float64) uint64 {
	switch f {
	case FormatU16:
		return uint64(uint16(v))
	case FormatI16:
		return uint64(uint16(int16(v)))
	case FormatU32:
		return uint64(uint32(v))
	case FormatI32:
		return uint64(uint32(int32(v)))
	case FormatI64:
		return uint64(int64(v))
	case FormatF32:
		return uint64(math.Float32bits(float32(v)))
	case FormatF64:
		return math.Float64bits(v)
	}
	return 0
}

// Field is one element of a combined write. Fields are laid out
// back to back starting at the write address.
type Field struct {
	Format ValueFormat
	Bits   uint64
}

func U16(v uint16) Field  { return Field{Format: FormatU16, Bits: uint64(v)} }
func U32(v uint32) Field  { return Field{Format: FormatU32, Bits: uint64(v)} }
func F32(v float32) Field { return Field{Format: FormatF32, Bits: uint64(math.Float32bits(v))} }
func F64(v float64) Field { return Field{Format: FormatF64, Bits: math.Float64bits(v)} }

// Value builds a field holding v encoded as f.
func Value(f ValueFormat, v float64) (Field, error) {
	if err := f.Check(v); err != nil {
		return Field{}, err
	}
	return Field{Format: f, Bits: f.Encode(v)}, nil
}

// Size returns the encoded size of the field in bytes.
func (fd Field) Size() int { return fd.Format.Size() }

// Put encodes the field into b, which must be at least Size() bytes.
func (fd Field) Put(b []byte, order binary.ByteOrder) {
	switch fd.Size() {
	case 2:
		order.PutUint16(b, uint16(fd.Bits))
	case 4:
		order.PutUint32(b, uint32(fd.Bits))
	case 8:
		order.PutUint64(b, fd.Bits)
	}
}

// PackFields encodes fields contiguously.
func PackFields(order binary.ByteOrder, fields ...Field) []byte {
	n := 0
	for _, fd := range fields {
		n += fd.Size()
	}
	buf := make([]byte, n)
	off := 0
	for _, fd := range fields {
		fd.Put(buf[off:], order)
		off += fd.Size()
	}
	return buf
}
