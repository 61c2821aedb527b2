// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package plcio

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	gbmodbus "github.com/goburrow/modbus"
	"github.com/tbrandon/mbserver"

	"github.com/ffutop/pils-client/modbus"
	"github.com/ffutop/pils-client/transport/tcp"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// startSlave runs a Modbus TCP slave simulator.
func startSlave(t *testing.T) (*mbserver.Server, string) {
	t.Helper()
	s := mbserver.NewServer()
	addr := freeAddr(t)
	if err := s.ListenTCP(addr); err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	t.Cleanup(s.Close)
	return s, addr
}

func newModbusBackend(addr string) *ModbusBackend {
	link := tcp.NewClient(addr)
	link.Timeout = 2 * time.Second
	return NewModbusBackend(link, 1)
}

func TestModbusBackendReadWrite(t *testing.T) {
	s, addr := startSlave(t)
	mb := newModbusBackend(addr)
	defer mb.Close()
	ctx := context.Background()

	s.HoldingRegisters[0x800] = 0x1234
	s.HoldingRegisters[0x801] = 0x5678

	buf := make([]byte, 4)
	if err := mb.ReadAt(ctx, 0x1000, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(buf, []byte{0x12, 0x34, 0x56, 0x78}) {
		t.Errorf("ReadAt = % X", buf)
	}

	// Odd start and length.
	buf = make([]byte, 1)
	if err := mb.ReadAt(ctx, 0x1001, buf); err != nil || buf[0] != 0x34 {
		t.Errorf("unaligned ReadAt = % X, %v", buf, err)
	}

	if err := mb.WriteAt(ctx, 0x1010, []byte{0x3F, 0x80, 0, 0, 0x50, 0x00}); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if s.HoldingRegisters[0x808] != 0x3F80 || s.HoldingRegisters[0x80A] != 0x5000 {
		t.Errorf("registers = %04X %04X %04X", s.HoldingRegisters[0x808], s.HoldingRegisters[0x809], s.HoldingRegisters[0x80A])
	}

	if err := mb.WriteAt(ctx, 0x1011, []byte{1, 2}); !errors.Is(err, ErrUnaligned) {
		t.Errorf("odd WriteAt: err = %v", err)
	}
	if err := mb.WriteAt(ctx, 0, make([]byte, 2*(modbus.MaxWriteRegisters+1))); err == nil {
		t.Errorf("oversized WriteAt succeeded")
	}
}

func TestModbusBackendChunkedRead(t *testing.T) {
	s, addr := startSlave(t)
	mb := newModbusBackend(addr)
	defer mb.Close()

	for i := 0; i < 300; i++ {
		s.HoldingRegisters[i] = uint16(i)
	}
	buf := make([]byte, 600)
	if err := mb.ReadAt(context.Background(), 0, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i := 0; i < 300; i++ {
		if got := uint16(buf[2*i])<<8 | uint16(buf[2*i+1]); got != uint16(i) {
			t.Fatalf("register %d = %d", i, got)
		}
	}
}

func TestModbusBackendException(t *testing.T) {
	s, addr := startSlave(t)
	s.RegisterFunctionHandler(modbus.FuncCodeReadHoldingRegisters,
		func(*mbserver.Server, mbserver.Framer) ([]byte, *mbserver.Exception) {
			return []byte{}, &mbserver.IllegalDataAddress
		})
	mb := newModbusBackend(addr)
	defer mb.Close()

	err := mb.ReadAt(context.Background(), 0, make([]byte, 2))
	var exc *modbus.ExceptionError
	if !errors.As(err, &exc) {
		t.Fatalf("err = %v, want ExceptionError", err)
	}
	if exc.ExceptionCode != modbus.ExceptionCodeIllegalDataAddress {
		t.Errorf("exception code = %d", exc.ExceptionCode)
	}
}

// The image written through IO must look the same to an independent
// Modbus client.
func TestModbusBackendCrossCheck(t *testing.T) {
	_, addr := startSlave(t)
	io := New(newModbusBackend(addr))
	defer io.Close()

	if err := io.WriteF32ThenU16(0x20, 1.0, 0x5000); err != nil {
		t.Fatalf("WriteF32ThenU16: %v", err)
	}

	client := gbmodbus.TCPClient(addr)
	got, err := client.ReadHoldingRegisters(0x10, 3)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}
	if want := []byte{0x3F, 0x80, 0, 0, 0x50, 0x00}; !bytes.Equal(got, want) {
		t.Errorf("registers = % X, want % X", got, want)
	}

	if _, err := client.WriteMultipleRegisters(0x18, 2, []byte{0x41, 0x48, 0, 0}); err != nil {
		t.Fatalf("WriteMultipleRegisters: %v", err)
	}
	if v, err := io.ReadF32(0x30); err != nil || v != 12.5 {
		t.Errorf("ReadF32 = %v, %v", v, err)
	}
}
