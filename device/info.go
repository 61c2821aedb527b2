// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"sort"

	"github.com/ffutop/pils-client/spec"
)

// Info is the per-device metadata produced by the device scanner.
type Info struct {
	Description string
	Unit        string
	// Params maps parameter names to protocol indices.
	Params map[string]int
	// Funcs maps function names to protocol indices.
	Funcs map[string]int
	// AuxNames names the aux bits of the status word, bit 0 first.
	// Empty names are skipped.
	AuxNames []string
}

// namesByIndex returns the keys of m ordered by protocol index.
func namesByIndex(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if m[names[i]] != m[names[j]] {
			return m[names[i]] < m[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func (in Info) validate(l spec.Layout) error {
	for name, idx := range in.Params {
		if idx < 0 || idx >= spec.FuncBase {
			return specError("parameter %q has index %d outside the parameter range", name, idx)
		}
	}
	for name, idx := range in.Funcs {
		if !spec.IsFuncIndex(idx) {
			return specError("function %q has index %d outside the function range", name, idx)
		}
	}
	switch {
	case l.HasParamControl:
	case l.NumParams > 0 || l.Class == spec.ClassFlatInput || l.Class == spec.ClassFlatOutput:
		if len(in.Params) != l.NumParams {
			return specError("%v has %d parameter slots but scanner reports %d names", l.Class, l.NumParams, len(in.Params))
		}
		if len(in.Funcs) > 0 {
			return specError("%v has no parameter control but scanner reports functions", l.Class)
		}
	default:
		if len(in.Params) > 0 || len(in.Funcs) > 0 {
			return specError("%v has no parameters but scanner reports %d params, %d funcs", l.Class, len(in.Params), len(in.Funcs))
		}
	}
	return nil
}
