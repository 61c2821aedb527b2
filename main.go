// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ffutop/pils-client/device"
	"github.com/ffutop/pils-client/internal/config"
	"github.com/ffutop/pils-client/plcio"
	"github.com/ffutop/pils-client/transport/rtu"
	"github.com/ffutop/pils-client/transport/tcp"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "Path to config file")
	once := pflag.Bool("once", false, "Poll all devices once and exit")
	pflag.Parse()

	// Load Configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("Starting PILS client...", "io", cfg.IO.Type)

	backend, err := newBackend(cfg.IO)
	if err != nil {
		slog.Error("Failed to open process image", "err", err)
		os.Exit(1)
	}
	io := newIO(cfg.IO, backend)
	defer io.Close()

	devices := createDevices(cfg, io)
	if len(devices) == 0 {
		slog.Error("No valid devices configured. Exiting.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poll(ctx, io, devices, cfg.Poll.Interval, *once)
	slog.Info("Goodbye.")
}

func newBackend(cfg config.IOConfig) (plcio.Backend, error) {
	switch cfg.Type {
	case "memory":
		return plcio.NewMemoryBackend(cfg.Memory.Size), nil
	case "file":
		return plcio.NewFileBackend(cfg.File.Path, cfg.File.Size)
	case "mmap":
		return plcio.NewMmapBackend(cfg.Mmap.Path, cfg.Mmap.Size)
	case "tcp":
		link := tcp.NewClient(cfg.Tcp.Address)
		link.Timeout = cfg.Timeout
		return plcio.NewModbusBackend(link, byte(cfg.Tcp.SlaveID)), nil
	case "rtu":
		return plcio.NewModbusBackend(rtu.NewClient(cfg.Serial), byte(cfg.Serial.SlaveID)), nil
	}
	return nil, fmt.Errorf("unknown io type %q", cfg.Type)
}

func newIO(cfg config.IOConfig, backend plcio.Backend) *plcio.IO {
	opts := []plcio.Option{plcio.WithTimeout(cfg.Timeout)}
	if cfg.ByteOrder == "little" {
		opts = append(opts, plcio.WithByteOrder(binary.LittleEndian))
	}
	if cfg.Cache {
		opts = append(opts, plcio.WithCache(cfg.CacheMaxAge))
	}
	return plcio.New(backend, opts...)
}

func createDevices(cfg *config.Config, io *plcio.IO) []*device.Device {
	var devices []*device.Device
	for _, dc := range cfg.Devices {
		info := device.Info{
			Description: dc.Description,
			Unit:        dc.Unit,
			Params:      config.IndexMap(dc.Params),
			Funcs:       config.IndexMap(dc.Funcs),
			AuxNames:    dc.Aux,
		}
		d, err := device.New(io, uint16(dc.TypeCode), uint32(dc.Address), dc.Name, dc.Number, info,
			device.WithParamTimeout(cfg.Param.Timeout),
			device.WithPollInterval(cfg.Param.PollInterval),
		)
		if err != nil {
			slog.Error("Skipping device", "name", dc.Name, "err", err)
			continue
		}
		slog.Info("Device created", "device", d.String())
		devices = append(devices, d)
	}
	return devices
}

func poll(ctx context.Context, io *plcio.IO, devices []*device.Device, interval time.Duration, once bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := io.UpdateCache(ctx); err != nil {
			slog.Warn("Cache refresh failed", "err", err)
		}
		for _, d := range devices {
			pollDevice(d)
		}
		if once {
			return
		}
		select {
		case <-ctx.Done():
			slog.Info("Shutting down...")
			return
		case <-ticker.C:
		}
	}
}

func pollDevice(d *device.Device) {
	attrs := []any{"device", d.Name}
	v, err := d.ReadValue()
	if err != nil {
		slog.Error("Read value failed", "device", d.Name, "err", err)
		return
	}
	attrs = append(attrs, "value", []float64(v))
	if d.Info.Unit != "" {
		attrs = append(attrs, "unit", d.Info.Unit)
	}
	if st, err := d.ReadStatus(); err == nil {
		attrs = append(attrs, "status", st.String())
		if flags := d.AuxFlags(st.Aux); len(flags) > 0 {
			attrs = append(attrs, "aux", flags)
		}
	}
	slog.Info("Poll", attrs...)
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
