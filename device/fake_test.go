// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/ffutop/pils-client/spec"
)

type fakeWrite struct {
	addr uint32
	data []byte
}

// fakePLC is an in-memory big-endian process image that records every
// write. onWrite runs after each write and may emulate PLC logic.
type fakePLC struct {
	mem     map[uint32]byte
	writes  []fakeWrite
	reads   int
	ranges  [][2]uint32
	onWrite func(p *fakePLC, addr uint32, data []byte)
}

func newFakePLC() *fakePLC {
	return &fakePLC{mem: make(map[uint32]byte)}
}

func (p *fakePLC) peek(addr uint32, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = p.mem[addr+uint32(i)]
	}
	return b
}

// poke changes memory the way the PLC would, without recording a write.
func (p *fakePLC) poke(addr uint32, data []byte) {
	for i, v := range data {
		p.mem[addr+uint32(i)] = v
	}
}

func (p *fakePLC) pokeU16(addr uint32, v uint16) {
	p.poke(addr, binary.BigEndian.AppendUint16(nil, v))
}

func (p *fakePLC) pokeF32(addr uint32, v float32) {
	p.poke(addr, binary.BigEndian.AppendUint32(nil, math.Float32bits(v)))
}

func (p *fakePLC) write(addr uint32, data []byte) error {
	p.writes = append(p.writes, fakeWrite{addr: addr, data: append([]byte(nil), data...)})
	p.poke(addr, data)
	if p.onWrite != nil {
		p.onWrite(p, addr, data)
	}
	return nil
}

func (p *fakePLC) read(addr uint32, n int) []byte {
	p.reads++
	return p.peek(addr, n)
}

func (p *fakePLC) ReadU16(addr uint32) (uint16, error) {
	return binary.BigEndian.Uint16(p.read(addr, 2)), nil
}

func (p *fakePLC) ReadU32(addr uint32) (uint32, error) {
	return binary.BigEndian.Uint32(p.read(addr, 4)), nil
}

func (p *fakePLC) ReadU64(addr uint32) (uint64, error) {
	return binary.BigEndian.Uint64(p.read(addr, 8)), nil
}

func (p *fakePLC) ReadF32(addr uint32) (float32, error) {
	v, err := p.ReadU32(addr)
	return math.Float32frombits(v), err
}

func (p *fakePLC) ReadF64(addr uint32) (float64, error) {
	v, err := p.ReadU64(addr)
	return math.Float64frombits(v), err
}

func (p *fakePLC) ReadF32s(addr uint32, n int) ([]float32, error) {
	b := p.read(addr, 4*n)
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

func (p *fakePLC) ReadF64s(addr uint32, n int) ([]float64, error) {
	b := p.read(addr, 8*n)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

func (p *fakePLC) WriteU16(addr uint32, v uint16) error {
	return p.write(addr, binary.BigEndian.AppendUint16(nil, v))
}

func (p *fakePLC) WriteU32(addr uint32, v uint32) error {
	return p.write(addr, binary.BigEndian.AppendUint32(nil, v))
}

func (p *fakePLC) WriteU64(addr uint32, v uint64) error {
	return p.write(addr, binary.BigEndian.AppendUint64(nil, v))
}

func (p *fakePLC) WriteF32(addr uint32, v float32) error {
	return p.WriteU32(addr, math.Float32bits(v))
}

func (p *fakePLC) WriteF64(addr uint32, v float64) error {
	return p.WriteU64(addr, math.Float64bits(v))
}

func (p *fakePLC) WriteFields(addr uint32, fields ...spec.Field) error {
	return p.write(addr, spec.PackFields(binary.BigEndian, fields...))
}

func (p *fakePLC) RegisterCacheRange(addr, size uint32) {
	p.ranges = append(p.ranges, [2]uint32{addr, size})
}

// fakeClock advances only when slept on.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps++
	c.now = c.now.Add(d)
}

// paramEmulator answers parameter control commands like a PLC would.
// Values written are clamped to limit.
type paramEmulator struct {
	ctrl, area uint32
	values     map[int]float32
	limit      float32
	stuck      bool // accept the command but never finish
}

func (e *paramEmulator) hook(p *fakePLC, addr uint32, data []byte) {
	if addr != e.ctrl {
		return
	}
	w := spec.UnpackControl(binary.BigEndian.Uint16(data))
	if e.stuck {
		p.pokeU16(e.ctrl, spec.ControlWord{CMD: spec.CmdBusy, Sub: w.Sub, Idx: w.Idx}.Pack())
		return
	}
	switch w.CMD {
	case spec.CmdDoRead:
		v, ok := e.values[w.Idx]
		if !ok {
			p.pokeU16(e.ctrl, spec.ControlWord{CMD: spec.CmdErrNoIdx, Sub: w.Sub, Idx: w.Idx}.Pack())
			return
		}
		p.pokeF32(e.area, v)
	case spec.CmdDoWrite:
		v := math.Float32frombits(binary.BigEndian.Uint32(p.peek(e.area, 4)))
		if e.limit != 0 && v > e.limit {
			v = e.limit
		}
		e.values[w.Idx] = v
		p.pokeF32(e.area, v)
	default:
		return
	}
	p.pokeU16(e.ctrl, spec.ControlWord{CMD: spec.CmdDone, Sub: w.Sub, Idx: w.Idx}.Pack())
}
