// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
io:
  type: TCP
  tcp:
    address: "127.0.0.1:502"
  serial:
    parity: e
devices:
  - name: motor
    number: 1
    typecode: 0x5008
    address: 0x40
    unit: mm
    params:
      - {name: UserMin, index: 51}
      - {name: Speed, index: 60}
    funcs:
      - {name: Home, index: 133}
    aux: [overheat, "", limit]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.IO.Type != "tcp" || cfg.IO.ByteOrder != "big" {
		t.Errorf("unexpected top level: %+v %+v", cfg.Log, cfg.IO)
	}
	if cfg.IO.Tcp.SlaveID != 1 || cfg.IO.Timeout != 2*time.Second || !cfg.IO.Cache {
		t.Errorf("io defaults not applied: %+v", cfg.IO)
	}
	if cfg.IO.Serial.Parity != "E" || cfg.IO.Serial.Timeout != 500*time.Millisecond {
		t.Errorf("serial fixups not applied: %+v", cfg.IO.Serial)
	}
	if cfg.Param.Timeout != time.Second || cfg.Param.PollInterval != 2*time.Millisecond {
		t.Errorf("param defaults = %+v", cfg.Param)
	}

	if len(cfg.Devices) != 1 {
		t.Fatalf("got %d devices", len(cfg.Devices))
	}
	d := cfg.Devices[0]
	if d.TypeCode != 0x5008 || d.Address != 0x40 || d.Unit != "mm" {
		t.Errorf("device = %+v", d)
	}
	params := IndexMap(d.Params)
	if params["UserMin"] != 51 || params["Speed"] != 60 {
		t.Errorf("params = %v, names must keep their case", params)
	}
	if IndexMap(d.Funcs)["Home"] != 133 {
		t.Errorf("funcs = %v", d.Funcs)
	}
	if len(d.Aux) != 3 || d.Aux[2] != "limit" {
		t.Errorf("aux = %v", d.Aux)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"UnknownType", "io: {type: can}", "unknown io type"},
		{"UnknownByteOrder", "io: {byte_order: middle}", "unknown byte order"},
		{"MmapWithoutPath", "io: {type: mmap}", "io.mmap.path"},
		{"DuplicateDevice", "devices: [{name: a, typecode: 0x1201}, {name: a, typecode: 0x1201}]", "duplicate device"},
		{"OddAddress", "devices: [{name: a, typecode: 0x1201, address: 3}]", "even byte offset"},
		{"MissingTypeCode", "devices: [{name: a}]", "typecode"},
		{"CacheOutlivesParamTimeout", "io: {cache_max_age: 2s}\nparam: {timeout: 1s}", "cache_max_age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
