// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package spec

import "fmt"

// ParamCMD is the command field of the parameter control word.
type ParamCMD uint8

const (
	CmdInit     ParamCMD = 0
	CmdDoRead   ParamCMD = 1
	CmdDoWrite  ParamCMD = 2
	CmdBusy     ParamCMD = 3
	CmdDone     ParamCMD = 4
	CmdErrNoIdx ParamCMD = 5
	CmdErrRO    ParamCMD = 6
	CmdErrRetry ParamCMD = 7
)

var cmdNames = [...]string{"INIT", "DO_READ", "DO_WRITE", "BUSY", "DONE", "ERR_NO_IDX", "ERR_RO", "ERR_RETRY"}

func (c ParamCMD) String() string {
	if int(c) < len(cmdNames) {
		return cmdNames[c]
	}
	return fmt.Sprintf("CMD_%d", uint8(c))
}

// Available reports whether the PLC accepts a new command.
func (c ParamCMD) Available() bool {
	switch c {
	case CmdDoRead, CmdDoWrite, CmdBusy:
		return false
	}
	return true
}

// IsError reports whether c is one of the ERR_* outcomes.
func (c ParamCMD) IsError() bool { return c >= CmdErrNoIdx }

// Control word bit layout.
const (
	cmdShift = 13
	cmdMask  = 0x7
	subShift = 8
	subMask  = 0x1f
	idxMask  = 0xff

	MaxSubIndex = subMask
	MaxIndex    = idxMask
)

// Index ranges. Parameters below FloatThreshold carry integers, the rest
// floats. Function indices start at FuncBase.
const (
	FloatThreshold = 30
	FuncBase       = 128
)

// IsFloatIndex reports whether the parameter or function idx carries a
// float value.
func IsFloatIndex(idx int) bool { return idx >= FloatThreshold }

// IsFuncIndex reports whether idx addresses a function.
func IsFuncIndex(idx int) bool { return idx >= FuncBase && idx <= MaxIndex }

// ControlWord is the decoded parameter control word.
type ControlWord struct {
	CMD ParamCMD
	Sub int
	Idx int
}

// Pack encodes the control word.
func (w ControlWord) Pack() uint16 {
	return uint16(w.CMD&cmdMask)<<cmdShift | uint16(w.Sub&subMask)<<subShift | uint16(w.Idx&idxMask)
}

func (w ControlWord) String() string {
	return fmt.Sprintf("%v sub=%d idx=%d", w.CMD, w.Sub, w.Idx)
}

// UnpackControl decodes a raw control word.
func UnpackControl(raw uint16) ControlWord {
	return ControlWord{
		CMD: ParamCMD(raw >> cmdShift & cmdMask),
		Sub: int(raw >> subShift & subMask),
		Idx: int(raw & idxMask),
	}
}
