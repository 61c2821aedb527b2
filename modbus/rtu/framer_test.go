// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ffutop/pils-client/modbus"
)

func frame(t *testing.T, slaveID, fc byte, data ...byte) []byte {
	t.Helper()
	adu := &ApplicationDataUnit{SlaveID: slaveID, Pdu: modbus.ProtocolDataUnit{FunctionCode: fc, Data: data}}
	raw, err := adu.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestCalculateResponseLength(t *testing.T) {
	tests := []struct {
		name string
		pdu  modbus.ProtocolDataUnit
		want int
	}{
		{"ReadHoldingRegisters", modbus.ReadHoldingRegisters(0, 10), 4 + 1 + 20},
		{"WriteMultipleRegisters", modbus.WriteMultipleRegisters(0, []byte{1, 2, 3, 4}), 8},
		{"ReadCoils", modbus.ProtocolDataUnit{FunctionCode: modbus.FuncCodeReadCoils, Data: []byte{0, 0, 0, 9}}, 4 + 1 + 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adu := &ApplicationDataUnit{SlaveID: 1, Pdu: tt.pdu}
			raw, _ := adu.Encode()
			if got := CalculateResponseLength(raw); got != tt.want {
				t.Errorf("CalculateResponseLength() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeCRC(t *testing.T) {
	raw := frame(t, 1, 0x03, 0x02, 0xAA, 0xBB)
	adu, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if adu.SlaveID != 1 || adu.Pdu.FunctionCode != 0x03 || !bytes.Equal(adu.Pdu.Data, []byte{0x02, 0xAA, 0xBB}) {
		t.Errorf("Decode() = %+v", adu)
	}

	raw[len(raw)-1] ^= 0xFF
	if _, err := Decode(raw); err == nil {
		t.Error("expected crc error")
	}
}

func TestReadResponse(t *testing.T) {
	deadline := time.Now().Add(time.Second)

	t.Run("SkipsNoise", func(t *testing.T) {
		want := frame(t, 7, 0x03, 0x04, 1, 2, 3, 4)
		in := append([]byte{0x00, 0x55, 0x07, 0x99}, want...)
		got, err := ReadResponse(7, 0x03, bytes.NewReader(in), deadline)
		if err != nil {
			t.Fatalf("ReadResponse: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadResponse() = % X, want % X", got, want)
		}
	})

	t.Run("Write", func(t *testing.T) {
		want := frame(t, 1, 0x10, 0x00, 0x10, 0x00, 0x02)
		got, err := ReadResponse(1, 0x10, bytes.NewReader(want), deadline)
		if err != nil || !bytes.Equal(got, want) {
			t.Errorf("ReadResponse() = % X, %v", got, err)
		}
	})

	t.Run("Exception", func(t *testing.T) {
		want := frame(t, 1, 0x83, 0x02)
		got, err := ReadResponse(1, 0x03, bytes.NewReader(want), deadline)
		if err != nil || len(got) != ExceptionSize {
			t.Fatalf("ReadResponse() = % X, %v", got, err)
		}
		adu, err := Decode(got)
		if err != nil {
			t.Fatal(err)
		}
		var exc *modbus.ExceptionError
		if err := modbus.CheckResponse(modbus.ReadHoldingRegisters(0, 1), adu.Pdu); !errors.As(err, &exc) || exc.ExceptionCode != 2 {
			t.Errorf("CheckResponse() = %v", err)
		}
	})

	t.Run("InvalidLength", func(t *testing.T) {
		_, err := ReadResponse(1, 0x03, bytes.NewReader([]byte{1, 3, 0}), deadline)
		var lerr *InvalidLengthError
		if !errors.As(err, &lerr) {
			t.Errorf("err = %v, want InvalidLengthError", err)
		}
	})

	t.Run("Deadline", func(t *testing.T) {
		_, err := ReadResponse(1, 0x03, bytes.NewReader([]byte{1, 3}), time.Now().Add(-time.Second))
		if !errors.Is(err, ErrRequestTimedOut) {
			t.Errorf("err = %v, want ErrRequestTimedOut", err)
		}
	})
}
