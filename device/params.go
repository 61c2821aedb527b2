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

const (
	defaultParamTimeout = time.Second
	defaultPollInterval = 2 * time.Millisecond
)

// Clock abstracts time for the parameter state machine.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// ParamResult is the outcome of a parameter or function access.
//
// CMD carries the protocol outcome: DONE on success, ERR_NO_IDX for names
// the device does not know, ERR_RETRY if the PLC stayed busy, or whatever
// the PLC echoed. These outcomes are not errors.
type ParamResult struct {
	CMD      spec.ParamCMD
	Value    float64
	HasValue bool
}

// OK reports whether the command completed.
func (r ParamResult) OK() bool { return r.CMD == spec.CmdDone }

func (r ParamResult) String() string {
	if !r.HasValue {
		return r.CMD.String()
	}
	return fmt.Sprintf("%v %v", r.CMD, r.Value)
}

// ParamOption modifies a single parameter or function access.
type ParamOption func(*paramOpts)

type paramOpts struct {
	sub int
	arg *float64
}

// Sub addresses sub-device i (e.g. one element of a vector device).
func Sub(i int) ParamOption {
	return func(o *paramOpts) { o.sub = i }
}

// Arg sets the argument of a function call.
func Arg(v float64) ParamOption {
	return func(o *paramOpts) { o.arg = &v }
}

func collectOpts(opts []ParamOption) (paramOpts, error) {
	var o paramOpts
	for _, opt := range opts {
		opt(&o)
	}
	if o.sub < 0 || o.sub > spec.MaxSubIndex {
		return o, fmt.Errorf("%w: sub-device index %d", ErrBadValue, o.sub)
	}
	return o, nil
}

// paramMachine drives the parameter control word protocol of one device.
type paramMachine struct {
	io       PlcIO
	device   string
	ctrl     uint32
	area     uint32
	width    spec.ValueFormat
	params   map[string]int
	funcs    map[string]int
	clock    Clock
	timeout  time.Duration
	interval time.Duration
}

func (m *paramMachine) readControl() (spec.ControlWord, error) {
	raw, err := m.io.ReadU16(m.ctrl)
	if err != nil {
		return spec.ControlWord{}, fmt.Errorf("read parameter control of %s: %w", m.device, err)
	}
	return spec.UnpackControl(raw), nil
}

// waitAvailable polls the control word until the PLC accepts a new
// command or timeout elapses. It returns the last control word read.
func (m *paramMachine) waitAvailable(timeout time.Duration) (spec.ControlWord, bool, error) {
	deadline := m.clock.Now().Add(timeout)
	for {
		w, err := m.readControl()
		if err != nil {
			return w, false, err
		}
		if w.CMD.Available() {
			return w, true, nil
		}
		if !m.clock.Now().Before(deadline) {
			slog.Debug("parameter control still busy", "device", m.device, "ctrl", w.String(), "timeout", timeout)
			return w, false, nil
		}
		m.clock.Sleep(m.interval)
	}
}

func (m *paramMachine) readValue(idx int) (float64, error) {
	f := spec.ParamFormat(m.width, idx)
	raw, err := readRaw(m.io, m.area, f.Size())
	if err != nil {
		return 0, fmt.Errorf("read parameter value of %s: %w", m.device, err)
	}
	return f.Decode(raw), nil
}

// finish waits for the command just issued and collects its outcome.
func (m *paramMachine) finish(idx int) (ParamResult, error) {
	w, _, err := m.waitAvailable(m.timeout)
	if err != nil {
		return ParamResult{}, err
	}
	v, err := m.readValue(idx)
	if err != nil {
		return ParamResult{}, err
	}
	return ParamResult{CMD: w.CMD, Value: v, HasValue: true}, nil
}

func (m *paramMachine) get(name string, sub int) (ParamResult, error) {
	idx, ok := m.params[name]
	if !ok {
		return ParamResult{CMD: spec.CmdErrNoIdx}, nil
	}
	if _, ok, err := m.waitAvailable(m.timeout); err != nil || !ok {
		return ParamResult{CMD: spec.CmdErrRetry}, err
	}
	w := spec.ControlWord{CMD: spec.CmdDoRead, Sub: sub, Idx: idx}
	if err := m.io.WriteU16(m.ctrl, w.Pack()); err != nil {
		return ParamResult{}, fmt.Errorf("write parameter control of %s: %w", m.device, err)
	}
	return m.finish(idx)
}

func (m *paramMachine) set(name string, v float64, sub int) (ParamResult, error) {
	idx, ok := m.params[name]
	if !ok {
		return ParamResult{CMD: spec.CmdErrNoIdx}, nil
	}
	return m.write(idx, v, sub)
}

// write issues DO_WRITE together with the value in one transaction so
// the PLC never samples the command before the value has landed.
func (m *paramMachine) write(idx int, v float64, sub int) (ParamResult, error) {
	val, err := encodeValue(spec.ParamFormat(m.width, idx), v, fmt.Sprintf("index %d of %s", idx, m.device))
	if err != nil {
		return ParamResult{}, err
	}
	if _, ok, err := m.waitAvailable(m.timeout); err != nil || !ok {
		return ParamResult{CMD: spec.CmdErrRetry}, err
	}
	w := spec.ControlWord{CMD: spec.CmdDoWrite, Sub: sub, Idx: idx}
	if err := m.io.WriteFields(m.ctrl, spec.U16(w.Pack()), val); err != nil {
		return ParamResult{}, fmt.Errorf("write parameter %d of %s: %w", idx, m.device, err)
	}
	return m.finish(idx)
}

// exec runs a function. If the PLC is still busy with the same function
// on the same sub-device, only the argument is updated and the current
// state returned, so long-running functions can be polled.
func (m *paramMachine) exec(name string, o paramOpts) (ParamResult, error) {
	idx, ok := m.funcs[name]
	if !ok {
		return ParamResult{CMD: spec.CmdErrNoIdx}, nil
	}
	cur, err := m.readControl()
	if err != nil {
		return ParamResult{}, err
	}
	if cur.CMD == spec.CmdBusy && cur.Sub == o.sub && cur.Idx == idx {
		if o.arg != nil {
			val, err := encodeValue(spec.ParamFormat(m.width, idx), *o.arg, fmt.Sprintf("argument of function %d of %s", idx, m.device))
			if err != nil {
				return ParamResult{}, err
			}
			if err := writeRaw(m.io, m.area, val); err != nil {
				return ParamResult{}, fmt.Errorf("update argument of function %d of %s: %w", idx, m.device, err)
			}
		}
		v, err := m.readValue(idx)
		if err != nil {
			return ParamResult{}, err
		}
		return ParamResult{CMD: cur.CMD, Value: v, HasValue: true}, nil
	}
	var arg float64
	if o.arg != nil {
		arg = *o.arg
	}
	return m.write(idx, arg, o.sub)
}
