// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/pils-client/modbus"
)

const (
	mbapSize   = 7
	tcpMinSize = 8
	tcpMaxSize = 260
)

// ApplicationDataUnit is a Modbus TCP frame: MBAP header plus PDU.
type ApplicationDataUnit struct {
	TransactionID uint16
	ProtocolID    uint16
	SlaveID       byte
	Pdu           modbus.ProtocolDataUnit
}

func Decode(raw []byte) (*ApplicationDataUnit, error) {
	if len(raw) < tcpMinSize {
		return nil, fmt.Errorf("modbus: response length '%v' does not meet minimum '%v'", len(raw), tcpMinSize)
	}
	length := int(binary.BigEndian.Uint16(raw[4:]))
	if length != len(raw)-mbapSize+1 {
		return nil, fmt.Errorf("modbus: length in header '%v' does not match pdu data length '%v'", length, len(raw)-mbapSize+1)
	}
	return &ApplicationDataUnit{
		TransactionID: binary.BigEndian.Uint16(raw),
		ProtocolID:    binary.BigEndian.Uint16(raw[2:]),
		SlaveID:       raw[6],
		Pdu:           modbus.ProtocolDataUnit{FunctionCode: raw[7], Data: raw[8:]},
	}, nil
}

// Encode encodes the frame. The length field counts the unit identifier
// and the PDU.
func (adu *ApplicationDataUnit) Encode() ([]byte, error) {
	length := mbapSize + 1 + len(adu.Pdu.Data)
	if length > tcpMaxSize {
		return nil, fmt.Errorf("modbus: length of data '%v' must not be bigger than '%v'", length, tcpMaxSize)
	}
	raw := make([]byte, length)
	binary.BigEndian.PutUint16(raw, adu.TransactionID)
	binary.BigEndian.PutUint16(raw[2:], adu.ProtocolID)
	binary.BigEndian.PutUint16(raw[4:], uint16(2+len(adu.Pdu.Data)))
	raw[6] = adu.SlaveID
	raw[7] = adu.Pdu.FunctionCode
	copy(raw[8:], adu.Pdu.Data)
	return raw, nil
}

func (adu *ApplicationDataUnit) Verify(resp *ApplicationDataUnit) error {
	if resp.TransactionID != adu.TransactionID {
		return fmt.Errorf("modbus: response transaction id '%v' does not match request '%v'", resp.TransactionID, adu.TransactionID)
	}
	if resp.ProtocolID != adu.ProtocolID {
		return fmt.Errorf("modbus: response protocol id '%v' does not match request '%v'", resp.ProtocolID, adu.ProtocolID)
	}
	if resp.SlaveID != adu.SlaveID {
		return fmt.Errorf("modbus: response unit id '%v' does not match request '%v'", resp.SlaveID, adu.SlaveID)
	}
	return nil
}
