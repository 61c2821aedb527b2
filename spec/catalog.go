// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package spec

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTypeCode is returned for type codes missing from the catalog.
// It usually means the PLC firmware speaks a different PILS revision.
var ErrUnknownTypeCode = errors.New("pils: unknown type code")

// Class is the device shape selected by a type code.
type Class int

const (
	ClassNone Class = iota
	ClassSimpleDiscreteInput
	ClassSimpleAnalogInput
	ClassKeyword
	ClassSimpleDiscreteOutput
	ClassSimpleAnalogOutput
	ClassStatusWord
	ClassDiscreteInput
	ClassAnalogInput
	ClassDiscreteOutput
	ClassAnalogOutput
	ClassFlatInput
	ClassFlatOutput
	ClassParamInput
	ClassParamOutput
	ClassVectorInput
	ClassVectorOutput
)

var classNames = map[Class]string{
	ClassNone:                 "None",
	ClassSimpleDiscreteInput:  "SimpleDiscreteInput",
	ClassSimpleAnalogInput:    "SimpleAnalogInput",
	ClassKeyword:              "Keyword",
	ClassSimpleDiscreteOutput: "SimpleDiscreteOutput",
	ClassSimpleAnalogOutput:   "SimpleAnalogOutput",
	ClassStatusWord:           "StatusWord",
	ClassDiscreteInput:        "DiscreteInput",
	ClassAnalogInput:          "AnalogInput",
	ClassDiscreteOutput:       "DiscreteOutput",
	ClassAnalogOutput:         "AnalogOutput",
	ClassFlatInput:            "FlatInput",
	ClassFlatOutput:           "FlatOutput",
	ClassParamInput:           "ParamInput",
	ClassParamOutput:          "ParamOutput",
	ClassVectorInput:          "VectorInput",
	ClassVectorOutput:         "VectorOutput",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// ControlSize is the size of the parameter control word in bytes.
const ControlSize = 2

// Layout describes the memory footprint of one device kind.
//
// Fields are laid out in the order value, target, status, parameter
// control, parameter area. Absent fields take no space.
type Layout struct {
	Class           Class
	Format          ValueFormat
	NumValues       int
	HasTarget       bool
	StatusSize      int
	NumParams       int
	HasParamControl bool
}

// ValueSize is the size of the value block (all elements).
func (l Layout) ValueSize() int { return l.Format.Size() * l.NumValues }

// ParamSize is the size of one parameter slot.
func (l Layout) ParamSize() int { return l.Format.Size() }

// ControlSize is the size of the parameter control word, 0 if absent.
func (l Layout) ControlSize() int {
	if l.HasParamControl {
		return ControlSize
	}
	return 0
}

// Size is the total device size in bytes.
func (l Layout) Size() int {
	n := l.ValueSize()
	if l.HasTarget {
		n += l.ValueSize()
	}
	return n + l.StatusSize + l.ControlSize() + l.NumParams*l.ParamSize()
}

// Validate checks the internal consistency of a layout.
func (l Layout) Validate() error {
	switch l.StatusSize {
	case 0, 2, 4, 6:
	default:
		return fmt.Errorf("pils: invalid status size %d", l.StatusSize)
	}
	if l.HasParamControl && l.NumParams != 1 {
		return fmt.Errorf("pils: parameter control requires exactly one parameter slot, got %d", l.NumParams)
	}
	if l.Class == ClassStatusWord {
		if l.StatusSize == 0 {
			return fmt.Errorf("pils: status word device without status field")
		}
		return nil
	}
	if l.NumValues < 1 {
		return fmt.Errorf("pils: %v needs at least one value", l.Class)
	}
	return nil
}

// TypeCodeSize returns the device size in bytes encoded in a type code.
func TypeCodeSize(tc uint16) int { return int(tc&0xff) * 2 }

var catalog = buildCatalog()

// Lookup returns the layout for a type code.
func Lookup(tc uint16) (Layout, error) {
	l, ok := catalog[tc]
	if !ok {
		return Layout{}, fmt.Errorf("%w: 0x%04X", ErrUnknownTypeCode, tc)
	}
	return l, nil
}

// TypeCodes returns all known type codes in ascending order.
func TypeCodes() []uint16 {
	codes := make([]uint16, 0, len(catalog))
	for tc := range catalog {
		codes = append(codes, tc)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// MaxExtra is the largest flat parameter count / vector element offset
// encoded in bits [11:8] of a generated type code.
const MaxExtra = 15

func buildCatalog() map[uint16]Layout {
	c := map[uint16]Layout{
		0x1201: {Class: ClassSimpleDiscreteInput, Format: FormatI16, NumValues: 1},
		0x1202: {Class: ClassSimpleDiscreteInput, Format: FormatI32, NumValues: 1},
		0x1204: {Class: ClassSimpleDiscreteInput, Format: FormatI64, NumValues: 1},
		0x1302: {Class: ClassSimpleAnalogInput, Format: FormatF32, NumValues: 1},
		0x1304: {Class: ClassSimpleAnalogInput, Format: FormatF64, NumValues: 1},
		0x1401: {Class: ClassKeyword, Format: FormatU16, NumValues: 1},
		0x1402: {Class: ClassKeyword, Format: FormatU32, NumValues: 1},
		0x1502: {Class: ClassSimpleDiscreteOutput, Format: FormatI16, NumValues: 1, HasTarget: true},
		0x1504: {Class: ClassSimpleDiscreteOutput, Format: FormatI32, NumValues: 1, HasTarget: true},
		0x1508: {Class: ClassSimpleDiscreteOutput, Format: FormatI64, NumValues: 1, HasTarget: true},
		0x1604: {Class: ClassSimpleAnalogOutput, Format: FormatF32, NumValues: 1, HasTarget: true},
		0x1608: {Class: ClassSimpleAnalogOutput, Format: FormatF64, NumValues: 1, HasTarget: true},
		0x1801: {Class: ClassStatusWord, Format: FormatU16, StatusSize: 2},
		0x1802: {Class: ClassStatusWord, Format: FormatU32, StatusSize: 4},
		0x1A02: {Class: ClassDiscreteInput, Format: FormatI16, NumValues: 1, StatusSize: 2},
		0x1A04: {Class: ClassDiscreteInput, Format: FormatI32, NumValues: 1, StatusSize: 4},
		0x1A07: {Class: ClassDiscreteInput, Format: FormatI64, NumValues: 1, StatusSize: 6},
		0x1B03: {Class: ClassAnalogInput, Format: FormatF32, NumValues: 1, StatusSize: 2},
		0x1B04: {Class: ClassAnalogInput, Format: FormatF32, NumValues: 1, StatusSize: 4},
		0x1B07: {Class: ClassAnalogInput, Format: FormatF64, NumValues: 1, StatusSize: 6},
		0x1E03: {Class: ClassDiscreteOutput, Format: FormatI16, NumValues: 1, HasTarget: true, StatusSize: 2},
		0x1E06: {Class: ClassDiscreteOutput, Format: FormatI32, NumValues: 1, HasTarget: true, StatusSize: 4},
		0x1E0B: {Class: ClassDiscreteOutput, Format: FormatI64, NumValues: 1, HasTarget: true, StatusSize: 6},
		0x1F05: {Class: ClassAnalogOutput, Format: FormatF32, NumValues: 1, HasTarget: true, StatusSize: 2},
		0x1F06: {Class: ClassAnalogOutput, Format: FormatF32, NumValues: 1, HasTarget: true, StatusSize: 4},
		0x1F0B: {Class: ClassAnalogOutput, Format: FormatF64, NumValues: 1, HasTarget: true, StatusSize: 6},
		0x4006: {Class: ClassParamInput, Format: FormatF32, NumValues: 1, StatusSize: 2, NumParams: 1, HasParamControl: true},
		0x400C: {Class: ClassParamInput, Format: FormatF64, NumValues: 1, StatusSize: 6, NumParams: 1, HasParamControl: true},
		0x5008: {Class: ClassParamOutput, Format: FormatF32, NumValues: 1, HasTarget: true, StatusSize: 2, NumParams: 1, HasParamControl: true},
		0x5010: {Class: ClassParamOutput, Format: FormatF64, NumValues: 1, HasTarget: true, StatusSize: 6, NumParams: 1, HasParamControl: true},
	}

	for n := 0; n <= MaxExtra; n++ {
		add(c, 0x2000, n, Layout{Class: ClassFlatInput, Format: FormatF32, NumValues: 1, StatusSize: 4, NumParams: n})
		add(c, 0x2000, n, Layout{Class: ClassFlatInput, Format: FormatF64, NumValues: 1, StatusSize: 6, NumParams: n})
		add(c, 0x3000, n, Layout{Class: ClassFlatOutput, Format: FormatF32, NumValues: 1, HasTarget: true, StatusSize: 4, NumParams: n})
		add(c, 0x3000, n, Layout{Class: ClassFlatOutput, Format: FormatF64, NumValues: 1, HasTarget: true, StatusSize: 6, NumParams: n})

		in := Layout{Class: ClassVectorInput, Format: FormatF32, NumValues: n + 1, StatusSize: 4, NumParams: 1, HasParamControl: true}
		out := Layout{Class: ClassVectorOutput, Format: FormatF32, NumValues: n + 1, HasTarget: true, StatusSize: 4, NumParams: 1, HasParamControl: true}
		if n == 0 {
			in.Class = ClassParamInput
			out.Class = ClassParamOutput
		}
		add(c, 0x4000, n, in)
		add(c, 0x5000, n, out)
	}
	return c
}

func add(c map[uint16]Layout, base uint16, n int, l Layout) {
	tc := base | uint16(n)<<8 | uint16(l.Size()/2)
	if _, dup := c[tc]; dup {
		panic(fmt.Sprintf("pils: duplicate type code 0x%04X", tc))
	}
	c[tc] = l
}
