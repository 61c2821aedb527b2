// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"
	"time"

	"github.com/ffutop/pils-client/spec"
)

// Value is a device reading. Scalar devices carry one element,
// vector devices one per channel.
type Value []float64

// Scalar returns the first element.
func (v Value) Scalar() float64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

type targetKind int

const (
	targetNone  targetKind = iota
	targetAlias            // target is the value word itself (keywords)
	targetField
)

type paramKind int

const (
	paramsNone paramKind = iota
	paramsFlat
	paramsMachine
)

// shape is the capability set of a device class.
type shape struct {
	target     targetKind
	params     paramKind
	statusOnly bool
}

// Device is one PILS device in the PLC process image.
type Device struct {
	Number   int
	Name     string
	TypeCode uint16
	Base     uint32
	Layout   spec.Layout
	Addr     Addresses
	Info     Info

	io      PlcIO
	shape   shape
	flat    *flatParams
	machine *paramMachine
}

func (d *Device) String() string {
	s := fmt.Sprintf("%s #%d (%v, 0x%04X @ 0x%04X)", d.Name, d.Number, d.Layout.Class, d.TypeCode, d.Base)
	if d.Info.Unit != "" {
		s += " [" + d.Info.Unit + "]"
	}
	if d.Info.Description != "" {
		s += ": " + d.Info.Description
	}
	return s
}

// ReadValue reads the current value. For status word devices the value
// is the raw status word.
func (d *Device) ReadValue() (Value, error) {
	if d.shape.statusOnly {
		raw, err := d.readStatusWord()
		if err != nil {
			return nil, err
		}
		return Value{float64(raw)}, nil
	}
	return d.readValues(d.Addr.Value)
}

// ReadTarget reads the current target.
func (d *Device) ReadTarget() (Value, error) {
	switch d.shape.target {
	case targetAlias:
		return d.readValues(d.Addr.Value)
	case targetField:
		return d.readValues(d.Addr.Target.Addr)
	}
	return nil, fmt.Errorf("%s: %w", d.Name, ErrReadOnly)
}

func (d *Device) readValues(addr uint32) (Value, error) {
	l := d.Layout
	switch {
	case l.Format == spec.FormatF32 && l.NumValues > 1:
		fs, err := d.io.ReadF32s(addr, l.NumValues)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Name, err)
		}
		v := make(Value, len(fs))
		for i, f := range fs {
			v[i] = float64(f)
		}
		return v, nil
	case l.Format == spec.FormatF64 && l.NumValues > 1:
		fs, err := d.io.ReadF64s(addr, l.NumValues)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Name, err)
		}
		return Value(fs), nil
	case l.Format == spec.FormatF32:
		f, err := d.io.ReadF32(addr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Name, err)
		}
		return Value{float64(f)}, nil
	case l.Format == spec.FormatF64:
		f, err := d.io.ReadF64(addr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Name, err)
		}
		return Value{f}, nil
	}

	size := l.Format.Size()
	v := make(Value, l.NumValues)
	for i := range v {
		raw, err := readRaw(d.io, addr+uint32(i*size), size)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Name, err)
		}
		v[i] = l.Format.Decode(raw)
	}
	return v, nil
}

// ChangeTarget writes a new target. On devices with a status field the
// START request is written in the same transaction as the target.
func (d *Device) ChangeTarget(values ...float64) error {
	l := d.Layout
	if d.shape.target == targetNone {
		return fmt.Errorf("%s: %w", d.Name, ErrReadOnly)
	}
	if len(values) != l.NumValues {
		return fmt.Errorf("%w: %s takes %d target values, got %d", ErrBadValue, d.Name, l.NumValues, len(values))
	}
	fields := make([]spec.Field, 0, len(values)+1)
	for _, v := range values {
		fd, err := encodeValue(l.Format, v, "target of "+d.Name)
		if err != nil {
			return err
		}
		fields = append(fields, fd)
	}

	if d.shape.target == targetAlias {
		return writeRaw(d.io, d.Addr.Value, fields[0])
	}
	if l.StatusSize > 0 {
		start, err := spec.EncodeStatus(spec.StateStart, l.StatusSize)
		if err != nil {
			return err
		}
		fields = append(fields, statusField(start, l.StatusSize))
	}
	if len(fields) == 1 {
		return writeRaw(d.io, d.Addr.Target.Addr, fields[0])
	}
	return d.io.WriteFields(d.Addr.Target.Addr, fields...)
}

// Limits returns the range representable by the value format.
func (d *Device) Limits() (min, max float64) {
	return d.Layout.Format.Limits()
}

func statusField(raw uint32, size int) spec.Field {
	if spec.StatusWordSize(size) == 2 {
		return spec.U16(uint16(raw))
	}
	return spec.U32(raw)
}

func (d *Device) readStatusWord() (uint32, error) {
	addr := d.Addr.Status.Addr
	if spec.StatusWordSize(d.Layout.StatusSize) == 2 {
		v, err := d.io.ReadU16(addr)
		return uint32(v), err
	}
	return d.io.ReadU32(addr)
}

// ReadStatus reads and decodes the status word. Devices without status
// field report BUSY while value and target differ, IDLE otherwise.
func (d *Device) ReadStatus() (spec.Status, error) {
	size := d.Layout.StatusSize
	if size == 0 {
		return d.synthesizeStatus()
	}
	raw, err := d.readStatusWord()
	if err != nil {
		return spec.Status{}, fmt.Errorf("read status of %s: %w", d.Name, err)
	}
	var errID uint16
	if size == 6 {
		if errID, err = d.io.ReadU16(d.Addr.Status.Addr + 4); err != nil {
			return spec.Status{}, fmt.Errorf("read error id of %s: %w", d.Name, err)
		}
	}
	return spec.DecodeStatus(raw, errID, size)
}

func (d *Device) synthesizeStatus() (spec.Status, error) {
	if d.shape.target != targetField {
		return spec.Status{State: spec.StateIdle}, nil
	}
	v, err := d.ReadValue()
	if err != nil {
		return spec.Status{}, err
	}
	t, err := d.ReadTarget()
	if err != nil {
		return spec.Status{}, err
	}
	for i := range v {
		if v[i] != t[i] {
			return spec.Status{State: spec.StateBusy}, nil
		}
	}
	return spec.Status{State: spec.StateIdle}, nil
}

// ChangeStatus requests a transition to final. If allowed is not empty
// and the current state is not in it, nothing is written and false is
// returned.
func (d *Device) ChangeStatus(allowed []spec.State, final spec.State) (bool, error) {
	size := d.Layout.StatusSize
	if size == 0 {
		return false, notApplicable(d, "ChangeStatus")
	}
	if len(allowed) > 0 {
		cur, err := d.ReadStatus()
		if err != nil {
			return false, err
		}
		if !containsState(allowed, cur.State) {
			return false, nil
		}
	}
	raw, err := spec.EncodeStatus(final, size)
	if err != nil {
		return false, err
	}
	if err := writeRaw(d.io, d.Addr.Status.Addr, statusField(raw, size)); err != nil {
		return false, fmt.Errorf("write status of %s: %w", d.Name, err)
	}
	return true, nil
}

// Reset requests RESET from any state.
func (d *Device) Reset() (bool, error) {
	return d.ChangeStatus(nil, spec.StateReset)
}

// Stop requests STOP while the device is starting or busy.
func (d *Device) Stop() (bool, error) {
	return d.ChangeStatus([]spec.State{spec.StateStart, spec.StateBusy}, spec.StateStop)
}

// Disable requests DISABLED from IDLE or WARN.
func (d *Device) Disable() (bool, error) {
	return d.ChangeStatus([]spec.State{spec.StateIdle, spec.StateWarn}, spec.StateDisabled)
}

// Enable requests IDLE from DISABLED.
func (d *Device) Enable() (bool, error) {
	return d.ChangeStatus([]spec.State{spec.StateDisabled}, spec.StateIdle)
}

func containsState(states []spec.State, s spec.State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

// AuxFlags names the set aux bits according to the scanner metadata.
func (d *Device) AuxFlags(aux uint32) []string {
	var flags []string
	for i, name := range d.Info.AuxNames {
		if i >= 32 {
			break
		}
		if name != "" && aux&(1<<uint(i)) != 0 {
			flags = append(flags, name)
		}
	}
	return flags
}

// ListParams returns the parameter names ordered by protocol index.
func (d *Device) ListParams() ([]string, error) {
	if d.shape.params == paramsNone {
		return nil, notApplicable(d, "ListParams")
	}
	return namesByIndex(d.Info.Params), nil
}

// GetParam reads a parameter.
func (d *Device) GetParam(name string, opts ...ParamOption) (ParamResult, error) {
	o, err := collectOpts(opts)
	if err != nil {
		return ParamResult{}, err
	}
	switch d.shape.params {
	case paramsFlat:
		if o.sub != 0 {
			return ParamResult{}, fmt.Errorf("%w: flat device %s has no sub-devices", ErrBadValue, d.Name)
		}
		return d.flat.get(name)
	case paramsMachine:
		return d.machine.get(name, o.sub)
	}
	return ParamResult{}, notApplicable(d, "GetParam")
}

// SetParam writes a parameter and returns the value read back, which may
// differ from v when the PLC clamps or rounds.
func (d *Device) SetParam(name string, v float64, opts ...ParamOption) (ParamResult, error) {
	o, err := collectOpts(opts)
	if err != nil {
		return ParamResult{}, err
	}
	switch d.shape.params {
	case paramsFlat:
		if o.sub != 0 {
			return ParamResult{}, fmt.Errorf("%w: flat device %s has no sub-devices", ErrBadValue, d.Name)
		}
		return d.flat.set(name, v)
	case paramsMachine:
		return d.machine.set(name, v, o.sub)
	}
	return ParamResult{}, notApplicable(d, "SetParam")
}

// ListFuncs returns the function names ordered by protocol index.
func (d *Device) ListFuncs() ([]string, error) {
	if d.shape.params != paramsMachine {
		return nil, notApplicable(d, "ListFuncs")
	}
	return namesByIndex(d.Info.Funcs), nil
}

// ExecFunc starts a function, or updates the argument of the function
// that is still running on the same sub-device. A BUSY result means the
// function has not finished yet and the call should be repeated.
func (d *Device) ExecFunc(name string, opts ...ParamOption) (ParamResult, error) {
	if d.shape.params != paramsMachine {
		return ParamResult{}, notApplicable(d, "ExecFunc")
	}
	o, err := collectOpts(opts)
	if err != nil {
		return ParamResult{}, err
	}
	return d.machine.exec(name, o)
}

// WaitParamAvailable waits until the parameter control accepts a new
// command. It returns false on timeout.
func (d *Device) WaitParamAvailable(timeout time.Duration) (bool, error) {
	if d.shape.params != paramsMachine {
		return false, notApplicable(d, "WaitParamAvailable")
	}
	_, ok, err := d.machine.waitAvailable(timeout)
	return ok, err
}
