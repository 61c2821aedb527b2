// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package transport carries Modbus PDUs to the PLC.
package transport

import (
	"context"

	"github.com/ffutop/pils-client/modbus"
)

// Link is a connection to a Modbus slave (the PLC). Implementations
// serialise concurrent requests themselves.
type Link interface {
	// Send sends a PDU to slaveID and returns the response PDU, which may
	// be an exception response.
	Send(ctx context.Context, slaveID byte, pdu modbus.ProtocolDataUnit) (modbus.ProtocolDataUnit, error)
	Connect(ctx context.Context) error
	Close() error
}
