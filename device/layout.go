// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"

	"github.com/ffutop/pils-client/spec"
)

// OptAddr is an address that may be absent.
type OptAddr struct {
	Addr  uint32
	Valid bool
}

func someAddr(a uint32) OptAddr { return OptAddr{Addr: a, Valid: true} }

func (o OptAddr) String() string {
	if !o.Valid {
		return "-"
	}
	return fmt.Sprintf("0x%04X", o.Addr)
}

// Addresses are the field addresses of a device, derived once from the
// base address and the layout.
type Addresses struct {
	Value        uint32
	Target       OptAddr
	Status       OptAddr
	ParamControl OptAddr
	ParamArea    OptAddr
}

// layoutAddresses places the fields of l sequentially from base in the
// order value, target, status, parameter control, parameter area.
func layoutAddresses(base uint32, l spec.Layout) Addresses {
	off := base
	a := Addresses{Value: off}
	off += uint32(l.ValueSize())
	if l.HasTarget {
		a.Target = someAddr(off)
		off += uint32(l.ValueSize())
	}
	if l.StatusSize > 0 {
		a.Status = someAddr(off)
		off += uint32(l.StatusSize)
	}
	if l.HasParamControl {
		a.ParamControl = someAddr(off)
		off += uint32(l.ControlSize())
	}
	if l.NumParams > 0 {
		a.ParamArea = someAddr(off)
	}
	return a
}
