// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package plcio

import (
	"context"
	"fmt"

	"github.com/ffutop/pils-client/modbus"
	"github.com/ffutop/pils-client/transport"
)

// ModbusBackend reaches the process image through holding registers:
// byte address a lives in register a/2, bytes are passed through as they
// appear in the register data.
type ModbusBackend struct {
	link    transport.Link
	slaveID byte
}

func NewModbusBackend(link transport.Link, slaveID byte) *ModbusBackend {
	return &ModbusBackend{link: link, slaveID: slaveID}
}

// ReadAt reads the registers covering [addr, addr+len(buf)), in chunks of
// at most modbus.MaxReadRegisters.
func (mb *ModbusBackend) ReadAt(ctx context.Context, addr uint32, buf []byte) error {
	if err := validateRange(0x20000, addr, len(buf)); err != nil {
		return err
	}
	first := addr / 2
	last := (addr + uint32(len(buf)) + 1) / 2
	regs := make([]byte, 0, (last-first)*2)

	for reg := first; reg < last; {
		qty := last - reg
		if qty > modbus.MaxReadRegisters {
			qty = modbus.MaxReadRegisters
		}
		req := modbus.ReadHoldingRegisters(uint16(reg), uint16(qty))
		resp, err := mb.link.Send(ctx, mb.slaveID, req)
		if err != nil {
			return err
		}
		if err := modbus.CheckResponse(req, resp); err != nil {
			return err
		}
		data, err := modbus.RegisterData(resp, uint16(qty))
		if err != nil {
			return err
		}
		regs = append(regs, data...)
		reg += qty
	}
	copy(buf, regs[addr-first*2:])
	return nil
}

// WriteAt writes data with a single 0x10 request. Combined writes must
// not be split, so writes larger than one request are rejected.
func (mb *ModbusBackend) WriteAt(ctx context.Context, addr uint32, data []byte) error {
	if addr%2 != 0 || len(data)%2 != 0 {
		return fmt.Errorf("%w: write of %d bytes at 0x%04X", ErrUnaligned, len(data), addr)
	}
	if err := validateRange(0x20000, addr, len(data)); err != nil {
		return err
	}
	if len(data)/2 > modbus.MaxWriteRegisters {
		return fmt.Errorf("plcio: write of %d registers exceeds a single request", len(data)/2)
	}
	req := modbus.WriteMultipleRegisters(uint16(addr/2), data)
	resp, err := mb.link.Send(ctx, mb.slaveID, req)
	if err != nil {
		return err
	}
	return modbus.CheckResponse(req, resp)
}

func (mb *ModbusBackend) Close() error {
	return mb.link.Close()
}
