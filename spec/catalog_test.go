// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package spec

import (
	"errors"
	"testing"
)

func TestCatalogSizesMatchTypeCode(t *testing.T) {
	for _, tc := range TypeCodes() {
		l, err := Lookup(tc)
		if err != nil {
			t.Fatalf("Lookup(0x%04X): %v", tc, err)
		}
		if err := l.Validate(); err != nil {
			t.Errorf("0x%04X: %v", tc, err)
		}
		if got, want := l.Size(), TypeCodeSize(tc); got != want {
			t.Errorf("0x%04X (%v): layout size %d, type code says %d", tc, l.Class, got, want)
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		tc     uint16
		class  Class
		format ValueFormat
		values int
		target bool
		status int
		params int
		pctrl  bool
	}{
		{"SimpleDiscreteInput16", 0x1201, ClassSimpleDiscreteInput, FormatI16, 1, false, 0, 0, false},
		{"Keyword", 0x1401, ClassKeyword, FormatU16, 1, false, 0, 0, false},
		{"SimpleAnalogOutput", 0x1604, ClassSimpleAnalogOutput, FormatF32, 1, true, 0, 0, false},
		{"StatusWord", 0x1801, ClassStatusWord, FormatU16, 0, false, 2, 0, false},
		{"AnalogInput64", 0x1B07, ClassAnalogInput, FormatF64, 1, false, 6, 0, false},
		{"ParamInput", 0x4006, ClassParamInput, FormatF32, 1, false, 2, 1, true},
		{"ParamOutput", 0x5008, ClassParamOutput, FormatF32, 1, true, 2, 1, true},
		{"GeneratedParamInput", 0x4007, ClassParamInput, FormatF32, 1, false, 4, 1, true},
		{"FlatInput3", 0x230A, ClassFlatInput, FormatF32, 1, false, 4, 3, false},
		{"FlatOutput0F64", 0x300B, ClassFlatOutput, FormatF64, 1, true, 6, 0, false},
		{"VectorInput4", 0x430D, ClassVectorInput, FormatF32, 4, false, 4, 1, true},
		{"VectorOutput4", 0x5315, ClassVectorOutput, FormatF32, 4, true, 4, 1, true},
		{"VectorOutput16", 0x5F45, ClassVectorOutput, FormatF32, 16, true, 4, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Lookup(tt.tc)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if l.Class != tt.class || l.Format != tt.format || l.NumValues != tt.values ||
				l.HasTarget != tt.target || l.StatusSize != tt.status ||
				l.NumParams != tt.params || l.HasParamControl != tt.pctrl {
				t.Errorf("Lookup(0x%04X) = %+v", tt.tc, l)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, tc := range []uint16{0x0000, 0x1200, 0x1205, 0x4008, 0xFFFF} {
		_, err := Lookup(tc)
		if !errors.Is(err, ErrUnknownTypeCode) {
			t.Errorf("Lookup(0x%04X) error = %v, want ErrUnknownTypeCode", tc, err)
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	bad := []Layout{
		{Class: ClassAnalogInput, Format: FormatF32, NumValues: 1, StatusSize: 3},
		{Class: ClassParamInput, Format: FormatF32, NumValues: 1, StatusSize: 2, NumParams: 2, HasParamControl: true},
		{Class: ClassStatusWord, Format: FormatU16},
		{Class: ClassAnalogInput, Format: FormatF32},
	}
	for i, l := range bad {
		if err := l.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, l)
		}
	}
}
