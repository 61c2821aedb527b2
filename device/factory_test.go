// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"errors"
	"testing"

	"github.com/ffutop/pils-client/spec"
)

func TestNewEveryTypeCode(t *testing.T) {
	for _, tc := range spec.TypeCodes() {
		l, _ := spec.Lookup(tc)
		info := Info{}
		if !l.HasParamControl && l.NumParams > 0 {
			info.Params = map[string]int{}
			for i := 0; i < l.NumParams; i++ {
				info.Params[string(rune('a'+i))] = i
			}
		}
		plc := newFakePLC()
		d, err := New(plc, tc, 0x100, "dev", 0, info)
		if err != nil {
			t.Errorf("New(0x%04X): %v", tc, err)
			continue
		}
		if len(plc.ranges) != 1 || plc.ranges[0][1] != uint32(spec.TypeCodeSize(tc)) {
			t.Errorf("0x%04X: cache ranges %v", tc, plc.ranges)
		}
		if d.Layout.Class == spec.ClassVectorOutput && d.Layout.NumValues < 2 {
			t.Errorf("0x%04X: vector with %d values", tc, d.Layout.NumValues)
		}
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		tc   uint16
		info Info
	}{
		{"UnknownTypeCode", 0x1234, Info{}},
		{"FlatCountMismatch", 0x2208, Info{Params: map[string]int{"a": 1}}},
		{"FlatWithFuncs", 0x2106, Info{Params: map[string]int{"a": 1}, Funcs: map[string]int{"f": 128}}},
		{"ParamsOnPlainDevice", 0x1302, Info{Params: map[string]int{"a": 1}}},
		{"ParamIndexTooLarge", 0x4006, Info{Params: map[string]int{"a": 200}}},
		{"FuncIndexTooSmall", 0x4006, Info{Funcs: map[string]int{"f": 12}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plc := newFakePLC()
			d, err := New(plc, tt.tc, 0, "dev", 0, tt.info)
			if !errors.Is(err, ErrSpec) {
				t.Fatalf("New() = %v, %v; want ErrSpec", d, err)
			}
			if len(plc.ranges) != 0 {
				t.Errorf("failed construction registered %v", plc.ranges)
			}
		})
	}
}

func TestNewUnknownTypeCodeWrapsCatalogError(t *testing.T) {
	_, err := New(newFakePLC(), 0x0000, 0, "dev", 0, Info{})
	if !errors.Is(err, spec.ErrUnknownTypeCode) {
		t.Errorf("err = %v, want ErrUnknownTypeCode in chain", err)
	}
}

func TestShapes(t *testing.T) {
	tests := []struct {
		tc         uint16
		target     bool
		status     bool
		params     bool
		paramCtrl  bool
		numValues  int
		valueBytes int
	}{
		{0x1201, false, false, false, false, 1, 2},
		{0x1401, true, false, false, false, 1, 2},
		{0x1604, true, false, false, false, 1, 4},
		{0x1A04, false, true, false, false, 1, 4},
		{0x1E0B, true, true, false, false, 1, 8},
		{0x230A, false, true, true, false, 1, 4},
		{0x4006, false, true, true, true, 1, 4},
		{0x5008, true, true, true, true, 1, 4},
		{0x430D, false, true, true, true, 4, 16},
	}
	for _, tt := range tests {
		info := Info{}
		l, _ := spec.Lookup(tt.tc)
		if l.NumParams > 0 && !l.HasParamControl {
			info.Params = map[string]int{"a": 1, "b": 2, "c": 40}
		}
		d := mustNew(t, newFakePLC(), tt.tc, 0, info)
		_, terr := d.ReadTarget()
		if got := terr == nil; got != tt.target {
			t.Errorf("0x%04X: has target = %v, want %v", tt.tc, got, tt.target)
		}
		if got := d.Addr.Status.Valid; got != tt.status {
			t.Errorf("0x%04X: has status = %v, want %v", tt.tc, got, tt.status)
		}
		_, perr := d.ListParams()
		if got := perr == nil; got != tt.params {
			t.Errorf("0x%04X: has params = %v, want %v", tt.tc, got, tt.params)
		}
		if got := d.Addr.ParamControl.Valid; got != tt.paramCtrl {
			t.Errorf("0x%04X: has param control = %v, want %v", tt.tc, got, tt.paramCtrl)
		}
		if d.Layout.NumValues != tt.numValues || d.Layout.ValueSize() != tt.valueBytes {
			t.Errorf("0x%04X: %d values in %d bytes", tt.tc, d.Layout.NumValues, d.Layout.ValueSize())
		}
	}
}
