// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus holds the protocol data unit shared by the TCP and RTU
// links, and the register requests the PLC process image is accessed with.
package modbus

import (
	"encoding/binary"
	"fmt"
)

const (
	FuncCodeReadCoils                  = 0x01
	FuncCodeReadDiscreteInputs         = 0x02
	FuncCodeReadHoldingRegisters       = 0x03
	FuncCodeReadInputRegisters         = 0x04
	FuncCodeWriteSingleCoil            = 0x05
	FuncCodeWriteSingleRegister        = 0x06
	FuncCodeWriteMultipleCoils         = 0x0F
	FuncCodeWriteMultipleRegisters     = 0x10
	FuncCodeMaskWriteRegister          = 0x16
	FuncCodeReadWriteMultipleRegisters = 0x17
	FuncCodeReadFIFOQueue              = 0x18
	FuncCodeReadDeviceIdentification   = 0x2B
)

const (
	ExceptionCodeIllegalFunction                    = 1
	ExceptionCodeIllegalDataAddress                 = 2
	ExceptionCodeIllegalDataValue                   = 3
	ExceptionCodeServerDeviceFailure                = 4
	ExceptionCodeAcknowledge                        = 5
	ExceptionCodeServerDeviceBusy                   = 6
	ExceptionCodeMemoryParityError                  = 8
	ExceptionCodeGatewayPathUnavailable             = 10
	ExceptionCodeGatewayTargetDeviceFailedToRespond = 11
)

// Register limits per request.
const (
	MaxReadRegisters  = 125
	MaxWriteRegisters = 123
)

// ProtocolDataUnit (PDU) is independent of underlying communication layers.
type ProtocolDataUnit struct {
	FunctionCode byte
	Data         []byte
}

// ExceptionError is a Modbus exception response.
type ExceptionError struct {
	FunctionCode  byte
	ExceptionCode byte
}

func (e *ExceptionError) Error() string {
	var name string
	switch e.ExceptionCode {
	case ExceptionCodeIllegalFunction:
		name = "illegal function"
	case ExceptionCodeIllegalDataAddress:
		name = "illegal data address"
	case ExceptionCodeIllegalDataValue:
		name = "illegal data value"
	case ExceptionCodeServerDeviceFailure:
		name = "server device failure"
	case ExceptionCodeAcknowledge:
		name = "acknowledge"
	case ExceptionCodeServerDeviceBusy:
		name = "server device busy"
	case ExceptionCodeMemoryParityError:
		name = "memory parity error"
	case ExceptionCodeGatewayPathUnavailable:
		name = "gateway path unavailable"
	case ExceptionCodeGatewayTargetDeviceFailedToRespond:
		name = "gateway target device failed to respond"
	default:
		name = "unknown"
	}
	return fmt.Sprintf("modbus: exception '%v' (%s), function '%v'", e.ExceptionCode, name, e.FunctionCode&0x7F)
}

// ReadHoldingRegisters builds a 0x03 request.
func ReadHoldingRegisters(address, quantity uint16) ProtocolDataUnit {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data, address)
	binary.BigEndian.PutUint16(data[2:], quantity)
	return ProtocolDataUnit{FunctionCode: FuncCodeReadHoldingRegisters, Data: data}
}

// WriteMultipleRegisters builds a 0x10 request. values holds big-endian
// register contents and must have even length.
func WriteMultipleRegisters(address uint16, values []byte) ProtocolDataUnit {
	quantity := len(values) / 2
	data := make([]byte, 5+len(values))
	binary.BigEndian.PutUint16(data, address)
	binary.BigEndian.PutUint16(data[2:], uint16(quantity))
	data[4] = byte(len(values))
	copy(data[5:], values)
	return ProtocolDataUnit{FunctionCode: FuncCodeWriteMultipleRegisters, Data: data}
}

// CheckResponse turns exception responses into *ExceptionError and
// rejects responses to a different function.
func CheckResponse(req, resp ProtocolDataUnit) error {
	if resp.FunctionCode == req.FunctionCode|0x80 {
		var code byte
		if len(resp.Data) > 0 {
			code = resp.Data[0]
		}
		return &ExceptionError{FunctionCode: resp.FunctionCode, ExceptionCode: code}
	}
	if resp.FunctionCode != req.FunctionCode {
		return fmt.Errorf("modbus: response function '%v' does not match request '%v'", resp.FunctionCode, req.FunctionCode)
	}
	return nil
}

// RegisterData validates a 0x03 response carrying quantity registers and
// returns the register bytes.
func RegisterData(resp ProtocolDataUnit, quantity uint16) ([]byte, error) {
	if len(resp.Data) < 1 {
		return nil, fmt.Errorf("modbus: empty response")
	}
	count := int(resp.Data[0])
	if count != len(resp.Data)-1 || count != int(quantity)*2 {
		return nil, fmt.Errorf("modbus: response byte count '%v' does not match quantity '%v'", count, quantity)
	}
	return resp.Data[1:], nil
}
