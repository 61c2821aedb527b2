// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package spec

import (
	"errors"
	"math"
	"testing"
)

func TestFormatLimits(t *testing.T) {
	tests := []struct {
		f        ValueFormat
		min, max float64
	}{
		{FormatU16, 0, 65535},
		{FormatI16, -32768, 32767},
		{FormatU32, 0, 4294967295},
		{FormatI32, -2147483648, 2147483647},
		{FormatI64, -0x1p63, 0x1p63 - 1024},
		{FormatF32, -math.MaxFloat32, math.MaxFloat32},
		{FormatF64, -math.MaxFloat64, math.MaxFloat64},
	}
	for _, tt := range tests {
		min, max := tt.f.Limits()
		if min != tt.min || max != tt.max {
			t.Errorf("%v.Limits() = (%v, %v), want (%v, %v)", tt.f, min, max, tt.min, tt.max)
		}
		// Both bounds survive an encode/decode round trip unchanged.
		for _, v := range []float64{min, max} {
			fd, err := Value(tt.f, v)
			if err != nil {
				t.Errorf("Value(%v, %v): %v", tt.f, v, err)
				continue
			}
			if got := tt.f.Decode(fd.Bits); got != v {
				t.Errorf("%v: bound %v encoded as %v", tt.f, v, got)
			}
		}
	}
}

func TestValueRejectsUnrepresentable(t *testing.T) {
	tests := []struct {
		f ValueFormat
		v float64
	}{
		{FormatI16, math.NaN()},
		{FormatF32, math.NaN()},
		{FormatF64, math.NaN()},
		{FormatI16, 32768},
		{FormatU16, -1},
		{FormatI32, 1e10},
		{FormatU32, 1 << 32},
		{FormatI64, 0x1p63},
		{FormatI64, math.Inf(-1)},
		{FormatF32, 1e39},
		{FormatF64, math.Inf(1)},
	}
	for _, tt := range tests {
		if _, err := Value(tt.f, tt.v); !errors.Is(err, ErrValueRange) {
			t.Errorf("Value(%v, %v) err = %v, want ErrValueRange", tt.f, tt.v, err)
		}
	}
}
