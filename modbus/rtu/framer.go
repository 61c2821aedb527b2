// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu frames Modbus PDUs for serial lines.
package rtu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ffutop/pils-client/modbus"
	"github.com/ffutop/pils-client/modbus/crc"
)

const (
	MinSize = 4
	MaxSize = 256

	ExceptionSize = 5
)

var ErrRequestTimedOut = errors.New("modbus: request timed out")

type InvalidLengthError struct {
	Length byte
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid length received: %d", e.Length)
}

// ApplicationDataUnit is an RTU frame:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Data            : 0 up to 252 bytes
//	CRC             : 2 bytes, low byte first
type ApplicationDataUnit struct {
	SlaveID byte
	Pdu     modbus.ProtocolDataUnit
}

func (adu *ApplicationDataUnit) Encode() ([]byte, error) {
	length := len(adu.Pdu.Data) + MinSize
	if length > MaxSize {
		return nil, fmt.Errorf("modbus: length of data '%v' must not be bigger than '%v'", length, MaxSize)
	}
	raw := make([]byte, length)
	raw[0] = adu.SlaveID
	raw[1] = adu.Pdu.FunctionCode
	copy(raw[2:], adu.Pdu.Data)

	var c crc.CRC
	sum := c.Reset().PushBytes(raw[:length-2]).Value()
	raw[length-2] = byte(sum)
	raw[length-1] = byte(sum >> 8)
	return raw, nil
}

func Decode(raw []byte) (*ApplicationDataUnit, error) {
	length := len(raw)
	if length < MinSize {
		return nil, fmt.Errorf("modbus: response length '%v' does not meet minimum '%v'", length, MinSize)
	}
	var c crc.CRC
	want := c.Reset().PushBytes(raw[:length-2]).Value()
	if got := uint16(raw[length-1])<<8 | uint16(raw[length-2]); got != want {
		return nil, fmt.Errorf("modbus: response crc '%v' does not match expected '%v'", got, want)
	}
	return &ApplicationDataUnit{
		SlaveID: raw[0],
		Pdu:     modbus.ProtocolDataUnit{FunctionCode: raw[1], Data: raw[2 : length-2]},
	}, nil
}

// Verify checks that resp answers req.
func (adu *ApplicationDataUnit) Verify(resp *ApplicationDataUnit) error {
	if adu.SlaveID != resp.SlaveID {
		return fmt.Errorf("modbus: response slave id '%v' does not match request '%v'", resp.SlaveID, adu.SlaveID)
	}
	return nil
}

// CalculateResponseLength returns the expected length of the response to
// an encoded request, or MinSize if it cannot be known in advance.
func CalculateResponseLength(adu []byte) int {
	length := MinSize
	if len(adu) < 6 {
		return length
	}
	count := int(binary.BigEndian.Uint16(adu[4:]))
	switch adu[1] {
	case modbus.FuncCodeReadDiscreteInputs, modbus.FuncCodeReadCoils:
		length += 1 + (count+7)/8
	case modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeReadHoldingRegisters,
		modbus.FuncCodeReadWriteMultipleRegisters:
		length += 1 + count*2
	case modbus.FuncCodeWriteSingleCoil,
		modbus.FuncCodeWriteMultipleCoils,
		modbus.FuncCodeWriteSingleRegister,
		modbus.FuncCodeWriteMultipleRegisters:
		length += 4
	case modbus.FuncCodeMaskWriteRegister:
		length += 6
	}
	return length
}

const (
	stateSlaveID = iota
	stateFunctionCode
	stateReadLength
	stateReadPayload
	stateCRC
)

// fixedPayload returns the payload size of responses without byte count,
// or 0 if the response carries one.
func fixedPayload(functionCode byte) (int, error) {
	switch functionCode {
	case modbus.FuncCodeReadDiscreteInputs,
		modbus.FuncCodeReadCoils,
		modbus.FuncCodeReadHoldingRegisters,
		modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeReadWriteMultipleRegisters:
		return 0, nil
	case modbus.FuncCodeWriteSingleCoil,
		modbus.FuncCodeWriteSingleRegister,
		modbus.FuncCodeWriteMultipleRegisters,
		modbus.FuncCodeWriteMultipleCoils:
		return 4, nil
	case modbus.FuncCodeMaskWriteRegister:
		return 6, nil
	}
	return 0, fmt.Errorf("functioncode not handled: %d", functionCode)
}

// ReadResponse reads one RTU frame answering (slaveID, functionCode) from
// r, skipping line noise before the slave address. Exception frames are
// returned as they are; decoding them is up to the caller.
func ReadResponse(slaveID, functionCode byte, r io.Reader, deadline time.Time) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is nil")
	}
	fixed, err := fixedPayload(functionCode)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 1)
	data := make([]byte, 0, MaxSize)
	state := stateSlaveID
	toRead := 0

	for {
		if time.Now().After(deadline) {
			return nil, ErrRequestTimedOut
		}
		if _, err := io.ReadAtLeast(r, buf, 1); err != nil {
			return nil, err
		}
		b := buf[0]

		switch state {
		case stateSlaveID:
			if b != slaveID {
				continue
			}
			state = stateFunctionCode
		case stateFunctionCode:
			switch {
			case b == functionCode && fixed == 0:
				state = stateReadLength
			case b == functionCode:
				state, toRead = stateReadPayload, fixed
			case b == functionCode|0x80:
				state, toRead = stateReadPayload, 1
			default:
				data, state = data[:0], stateSlaveID
				continue
			}
		case stateReadLength:
			if int(b) > MaxSize-5 || b == 0 {
				return nil, &InvalidLengthError{Length: b}
			}
			state, toRead = stateReadPayload, int(b)
		case stateReadPayload:
			toRead--
			if toRead == 0 {
				state, toRead = stateCRC, 2
			}
		case stateCRC:
			toRead--
			if toRead == 0 {
				return append(data, b), nil
			}
		}
		data = append(data, b)
	}
}
