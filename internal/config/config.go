// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config defines the global configuration structure
type Config struct {
	Log     LogConfig      `mapstructure:"log"`
	IO      IOConfig       `mapstructure:"io"`
	Param   ParamConfig    `mapstructure:"param"`
	Poll    PollConfig     `mapstructure:"poll"`
	Devices []DeviceConfig `mapstructure:"devices"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// IOConfig selects how the PLC process image is reached.
type IOConfig struct {
	Type        string        `mapstructure:"type"`          // "memory", "file", "mmap", "tcp", "rtu"
	ByteOrder   string        `mapstructure:"byte_order"`    // "big", "little"
	Timeout     time.Duration `mapstructure:"timeout"`       // Per request
	Cache       bool          `mapstructure:"cache"`         // Serve reads from the device cache
	CacheMaxAge time.Duration `mapstructure:"cache_max_age"` // Cached reads older than this are refetched

	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "rtu"
	Mmap   MmapConfig   `mapstructure:"mmap"`   // Used if Type is "mmap"
	File   MmapConfig   `mapstructure:"file"`   // Used if Type is "file"
	Memory MemoryConfig `mapstructure:"memory"` // Used if Type is "memory"
}

// TcpConfig defines Modbus TCP settings
type TcpConfig struct {
	Address string `mapstructure:"address"` // e.g. "192.168.1.100:502"
	SlaveID int    `mapstructure:"slave_id"`
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"`
	SlaveID  int           `mapstructure:"slave_id"`

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// MmapConfig defines a process image backed by a file, mapped or
// written through.
type MmapConfig struct {
	Path string `mapstructure:"path"`
	Size int    `mapstructure:"size"`
}

// MemoryConfig defines an in-process process image.
type MemoryConfig struct {
	Size int `mapstructure:"size"`
}

// ParamConfig tunes the parameter state machine.
type ParamConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// PollConfig defines the poller loop.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// DeviceConfig is one entry of the device table produced by the scanner.
type DeviceConfig struct {
	Name        string       `mapstructure:"name"`
	Number      int          `mapstructure:"number"`
	TypeCode    int          `mapstructure:"typecode"`
	Address     int          `mapstructure:"address"` // Byte offset in the process image
	Description string       `mapstructure:"description"`
	Unit        string       `mapstructure:"unit"`
	Params      []IndexEntry `mapstructure:"params"`
	Funcs       []IndexEntry `mapstructure:"funcs"`
	Aux         []string     `mapstructure:"aux"` // Names of aux bits, bit 0 first
}

// IndexEntry maps a parameter or function name to its protocol index.
// A list is used instead of a map because viper lower-cases map keys.
type IndexEntry struct {
	Name  string `mapstructure:"name"`
	Index int    `mapstructure:"index"`
}

// IndexMap converts entries to a name to index map.
func IndexMap(entries []IndexEntry) map[string]int {
	if len(entries) == 0 {
		return nil
	}
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Index
	}
	return m
}

// LoadConfig loads configuration from file
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/pils/")
		v.AddConfigPath("$HOME/.pils")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("failed to find config file: %w", err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixupSerial(&config.IO.Serial)
	config.IO.Type = strings.ToLower(config.IO.Type)
	config.IO.ByteOrder = strings.ToLower(config.IO.ByteOrder)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("io.type", "memory")
	v.SetDefault("io.byte_order", "big")
	v.SetDefault("io.timeout", 2*time.Second)
	v.SetDefault("io.cache", true)
	v.SetDefault("io.cache_max_age", 50*time.Millisecond)
	v.SetDefault("io.tcp.slave_id", 1)
	v.SetDefault("io.serial.baud_rate", 19200)
	v.SetDefault("io.serial.data_bits", 8)
	v.SetDefault("io.serial.parity", "N")
	v.SetDefault("io.serial.stop_bits", 1)
	v.SetDefault("io.serial.slave_id", 1)
	v.SetDefault("io.mmap.size", 65536)
	v.SetDefault("io.file.size", 65536)
	v.SetDefault("io.memory.size", 65536)
	v.SetDefault("param.timeout", time.Second)
	v.SetDefault("param.poll_interval", 2*time.Millisecond)
	v.SetDefault("poll.interval", time.Second)
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}

func (c *Config) validate() error {
	switch c.IO.Type {
	case "memory", "file", "mmap", "tcp", "rtu":
	default:
		return fmt.Errorf("unknown io type %q", c.IO.Type)
	}
	switch c.IO.ByteOrder {
	case "big", "little":
	default:
		return fmt.Errorf("unknown byte order %q", c.IO.ByteOrder)
	}
	if c.IO.Type == "mmap" && c.IO.Mmap.Path == "" {
		return fmt.Errorf("io.mmap.path is required")
	}
	if c.IO.Type == "file" && c.IO.File.Path == "" {
		return fmt.Errorf("io.file.path is required")
	}
	if c.IO.Type == "tcp" && c.IO.Tcp.Address == "" {
		return fmt.Errorf("io.tcp.address is required")
	}
	if c.IO.Type == "rtu" && c.IO.Serial.Device == "" {
		return fmt.Errorf("io.serial.device is required")
	}

	// Parameter handshakes poll the control word through the cache; a
	// cached copy outliving the timeout hides every PLC response.
	if c.IO.Cache && c.IO.CacheMaxAge >= c.Param.Timeout {
		return fmt.Errorf("io.cache_max_age %v must be shorter than param.timeout %v", c.IO.CacheMaxAge, c.Param.Timeout)
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device %d has no name", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate device name %q", d.Name)
		}
		seen[d.Name] = true
		if d.TypeCode <= 0 || d.TypeCode > 0xFFFF {
			return fmt.Errorf("device %q: typecode %#x out of range", d.Name, d.TypeCode)
		}
		if d.Address < 0 || d.Address%2 != 0 {
			return fmt.Errorf("device %q: address %#x must be a non-negative even byte offset", d.Name, d.Address)
		}
	}
	return nil
}
