// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc computes the Modbus RTU CRC-16.
package crc

// CRC is a running CRC-16/MODBUS.
type CRC struct {
	high byte
	low  byte
}

func (crc *CRC) Reset() *CRC {
	crc.high = 0xFF
	crc.low = 0xFF
	return crc
}

func (crc *CRC) PushBytes(bs []byte) *CRC {
	var idx, b byte

	for _, b = range bs {
		idx = crc.low ^ b
		crc.low = crc.high ^ tableLo[idx]
		crc.high = tableHi[idx]
	}
	return crc
}

// Value returns the CRC with the low byte in the low bits; on the wire
// the low byte goes first.
func (crc *CRC) Value() uint16 {
	return uint16(crc.high)<<8 | uint16(crc.low)
}

var tableLo, tableHi = buildTables()

func buildTables() (lo, hi [256]byte) {
	for i := 0; i < 256; i++ {
		c := uint16(i)
		for j := 0; j < 8; j++ {
			if c&1 != 0 {
				c = c>>1 ^ 0xA001
			} else {
				c >>= 1
			}
		}
		lo[i] = byte(c)
		hi[i] = byte(c >> 8)
	}
	return
}
