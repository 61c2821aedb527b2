// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package spec

import (
	"fmt"
	"strings"
)

// State is the 4-bit device lifecycle state of a status word.
type State uint8

const (
	StateReset           State = 0x0
	StateIdle            State = 0x1
	StateDisabled        State = 0x2
	StateWarn            State = 0x3
	StateStart           State = 0x5
	StateBusy            State = 0x6
	StateStop            State = 0x7
	StateError           State = 0x8
	StateDiagnosticError State = 0xD
)

var stateNames = map[State]string{
	StateReset:           "RESET",
	StateIdle:            "IDLE",
	StateDisabled:        "DISABLED",
	StateWarn:            "WARN",
	StateStart:           "START",
	StateBusy:            "BUSY",
	StateStop:            "STOP",
	StateError:           "ERROR",
	StateDiagnosticError: "DIAGNOSTIC_ERROR",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STATE_%X", uint8(s))
}

// States lists the states defined by the protocol.
func States() []State {
	return []State{
		StateReset, StateIdle, StateDisabled, StateWarn, StateStart,
		StateBusy, StateStop, StateError, StateDiagnosticError,
	}
}

// Reason is the 4-bit qualifier of a non-idle state.
type Reason uint8

const (
	ReasonInhibit    Reason = 1 << 0
	ReasonTimeout    Reason = 1 << 1
	ReasonLowerLimit Reason = 1 << 2
	ReasonUpperLimit Reason = 1 << 3
)

func (r Reason) String() string {
	var parts []string
	for _, f := range []struct {
		bit  Reason
		name string
	}{
		{ReasonInhibit, "inhibit"},
		{ReasonTimeout, "timeout"},
		{ReasonLowerLimit, "lower limit"},
		{ReasonUpperLimit, "upper limit"},
	} {
		if r&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ", ")
}

// Status is a decoded status word.
type Status struct {
	State   State
	Reason  Reason
	Aux     uint32
	ErrorID uint16
}

func (s Status) String() string {
	str := s.State.String()
	if s.Reason != 0 {
		str += " (" + s.Reason.String() + ")"
	}
	if s.Aux != 0 {
		str += fmt.Sprintf(" aux=0x%X", s.Aux)
	}
	if s.ErrorID != 0 {
		str += fmt.Sprintf(" errid=%d", s.ErrorID)
	}
	return str
}

// StatusWordSize returns the size of the packed status word (without
// the trailing error id) for a status field of the given size.
func StatusWordSize(size int) int {
	if size == 6 {
		return 4
	}
	return size
}

// DecodeStatus unpacks a status word. raw holds the 16 or 32 bit word,
// errID the trailing error id for 6-byte status fields.
func DecodeStatus(raw uint32, errID uint16, size int) (Status, error) {
	switch size {
	case 2:
		return Status{
			State:  State(raw >> 12 & 0xf),
			Reason: Reason(raw >> 8 & 0xf),
			Aux:    raw & 0xff,
		}, nil
	case 4, 6:
		st := Status{
			State:  State(raw >> 28 & 0xf),
			Reason: Reason(raw >> 24 & 0xf),
			Aux:    raw & 0xffffff,
		}
		if size == 6 {
			st.ErrorID = errID
		}
		return st, nil
	}
	return Status{}, fmt.Errorf("pils: cannot decode status of size %d", size)
}

// EncodeStatus packs a status word requesting a transition to state.
// Reason and aux are left zero; the PLC owns them.
func EncodeStatus(state State, size int) (uint32, error) {
	switch size {
	case 2:
		return uint32(state&0xf) << 12, nil
	case 4, 6:
		return uint32(state&0xf) << 28, nil
	}
	return 0, fmt.Errorf("pils: cannot encode status of size %d", size)
}
