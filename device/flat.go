// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"

	"github.com/ffutop/pils-client/spec"
)

// flatParams accesses parameters stored at fixed offsets. Slots are
// assigned in ascending protocol index order.
type flatParams struct {
	io     PlcIO
	device string
	area   uint32
	width  spec.ValueFormat
	idx    map[string]int
	slot   map[string]int
}

func newFlatParams(io PlcIO, device string, area uint32, width spec.ValueFormat, params map[string]int) *flatParams {
	fp := &flatParams{
		io:     io,
		device: device,
		area:   area,
		width:  width,
		idx:    params,
		slot:   make(map[string]int, len(params)),
	}
	for i, name := range namesByIndex(params) {
		fp.slot[name] = i
	}
	return fp
}

func (fp *flatParams) addr(name string) uint32 {
	return fp.area + uint32(fp.slot[name]*fp.width.Size())
}

func (fp *flatParams) get(name string) (ParamResult, error) {
	idx, ok := fp.idx[name]
	if !ok {
		return ParamResult{CMD: spec.CmdErrNoIdx}, nil
	}
	f := spec.ParamFormat(fp.width, idx)
	raw, err := readRaw(fp.io, fp.addr(name), f.Size())
	if err != nil {
		return ParamResult{}, fmt.Errorf("read parameter %s of %s: %w", name, fp.device, err)
	}
	return ParamResult{CMD: spec.CmdDone, Value: f.Decode(raw), HasValue: true}, nil
}

func (fp *flatParams) set(name string, v float64) (ParamResult, error) {
	idx, ok := fp.idx[name]
	if !ok {
		return ParamResult{CMD: spec.CmdErrNoIdx}, nil
	}
	val, err := encodeValue(spec.ParamFormat(fp.width, idx), v, "parameter "+name+" of "+fp.device)
	if err != nil {
		return ParamResult{}, err
	}
	if err := writeRaw(fp.io, fp.addr(name), val); err != nil {
		return ParamResult{}, fmt.Errorf("write parameter %s of %s: %w", name, fp.device, err)
	}
	return fp.get(name)
}
