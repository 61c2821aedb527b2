// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/pils-client/spec"
)

// Option configures a Device at construction.
type Option func(*options)

type options struct {
	clock        Clock
	paramTimeout time.Duration
	pollInterval time.Duration
}

// WithClock replaces the wall clock used by the parameter state machine.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithParamTimeout sets how long parameter accesses wait for the PLC.
func WithParamTimeout(d time.Duration) Option {
	return func(o *options) { o.paramTimeout = d }
}

// WithPollInterval sets the sleep between control word reads.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

func shapeOf(l spec.Layout) (shape, error) {
	switch l.Class {
	case spec.ClassSimpleDiscreteInput, spec.ClassSimpleAnalogInput,
		spec.ClassDiscreteInput, spec.ClassAnalogInput:
		return shape{}, nil
	case spec.ClassKeyword:
		return shape{target: targetAlias}, nil
	case spec.ClassSimpleDiscreteOutput, spec.ClassSimpleAnalogOutput,
		spec.ClassDiscreteOutput, spec.ClassAnalogOutput:
		return shape{target: targetField}, nil
	case spec.ClassStatusWord:
		return shape{statusOnly: true}, nil
	case spec.ClassFlatInput:
		return shape{params: paramsFlat}, nil
	case spec.ClassFlatOutput:
		return shape{target: targetField, params: paramsFlat}, nil
	case spec.ClassParamInput, spec.ClassVectorInput:
		return shape{params: paramsMachine}, nil
	case spec.ClassParamOutput, spec.ClassVectorOutput:
		return shape{target: targetField, params: paramsMachine}, nil
	}
	return shape{}, specError("no device shape for class %v", l.Class)
}

func checkShape(sh shape, l spec.Layout) error {
	if (sh.target == targetField) != l.HasTarget {
		return specError("%v: target field mismatch", l.Class)
	}
	if (sh.params == paramsMachine) != l.HasParamControl {
		return specError("%v: parameter control mismatch", l.Class)
	}
	return nil
}

// New builds the device described by typecode at base address base.
//
// The cache range of the device is registered with io only when
// construction succeeds. Errors wrap ErrSpec.
func New(io PlcIO, typecode uint16, base uint32, name string, number int, info Info, opts ...Option) (*Device, error) {
	l, err := spec.Lookup(typecode)
	if err != nil {
		return nil, fmt.Errorf("%w: device %s: %w", ErrSpec, name, err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("%w: device %s: %w", ErrSpec, name, err)
	}
	if size := spec.TypeCodeSize(typecode); size != l.Size() {
		return nil, specError("device %s: type code 0x%04X encodes %d bytes, layout has %d", name, typecode, size, l.Size())
	}
	sh, err := shapeOf(l)
	if err != nil {
		return nil, err
	}
	if err := checkShape(sh, l); err != nil {
		return nil, err
	}
	if err := info.validate(l); err != nil {
		return nil, fmt.Errorf("device %s: %w", name, err)
	}

	o := options{
		clock:        systemClock{},
		paramTimeout: defaultParamTimeout,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		Number:   number,
		Name:     name,
		TypeCode: typecode,
		Base:     base,
		Layout:   l,
		Addr:     layoutAddresses(base, l),
		Info:     info,
		io:       io,
		shape:    sh,
	}
	switch sh.params {
	case paramsFlat:
		d.flat = newFlatParams(io, name, d.Addr.ParamArea.Addr, l.Format, info.Params)
	case paramsMachine:
		d.machine = &paramMachine{
			io:       io,
			device:   name,
			ctrl:     d.Addr.ParamControl.Addr,
			area:     d.Addr.ParamArea.Addr,
			width:    l.Format,
			params:   info.Params,
			funcs:    info.Funcs,
			clock:    o.clock,
			timeout:  o.paramTimeout,
			interval: o.pollInterval,
		}
	}

	io.RegisterCacheRange(base, uint32(l.Size()))
	slog.Debug("device created", "name", name, "number", number, "typecode", fmt.Sprintf("0x%04X", typecode),
		"class", l.Class.String(), "base", fmt.Sprintf("0x%04X", base), "size", l.Size())
	return d, nil
}
