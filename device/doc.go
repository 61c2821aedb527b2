// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package device implements the client-side model of PILS devices.
//
// A Device is bound to one slot of the PLC process image. It is built by
// New from a type code, a base address and the metadata reported by the
// device scanner, and talks to the PLC only through a PlcIO.
//
// Device operations are synchronous. The parameter state machine polls
// the PLC until it accepts or finishes a command, bounded by a timeout;
// this is the only place where calls block. A Device carries no mutex:
// concurrent use of one Device from several goroutines must be serialised
// by the caller. Distinct devices may be used concurrently as long as the
// PlcIO serialises wire access.
package device
