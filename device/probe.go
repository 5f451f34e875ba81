// Package device identifies the local accelerator so the engine can decide
// whether to offer the accelerated delegate and match the device against the
// denylist.
package device

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"go_enhance/logging"
)

// ErrNoDevice is returned when no accelerator could be found.
var ErrNoDevice = errors.New("device: no accelerator found")

// Info describes one accelerator.
type Info struct {
	Name           string
	Driver         string
	MemoryTotalMiB int64
}

// Fingerprint is the identifier matched against the device denylist.
func (i Info) Fingerprint() string {
	if i.Name == "" {
		return ""
	}
	fp := strings.ToLower(i.Name)
	if i.Driver != "" {
		fp += "/" + i.Driver
	}
	return fp
}

// Reader reads accelerator information.
type Reader interface {
	ReadDevice(ctx context.Context) (Info, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) (Info, error)

func (fn ReaderFunc) ReadDevice(ctx context.Context) (Info, error) { return fn(ctx) }

// NvidiaSMI queries the first GPU reported by nvidia-smi.
type NvidiaSMI struct {
	// Path defaults to "nvidia-smi" on PATH.
	Path    string
	Timeout time.Duration
}

func (n NvidiaSMI) ReadDevice(ctx context.Context) (Info, error) {
	path := n.Path
	if path == "" {
		path = "nvidia-smi"
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path,
		"--query-gpu=name,driver_version,memory.total",
		"--format=csv,noheader,nounits")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		return Info{}, fmt.Errorf("nvidia-smi failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseNvidiaSMI(stdout.String())
}

// parseNvidiaSMI reads the first CSV row of a name,driver,memory query.
func parseNvidiaSMI(output string) (Info, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return Info{}, ErrNoDevice
	}
	r := csv.NewReader(strings.NewReader(output))
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return Info{}, fmt.Errorf("failed to parse nvidia-smi output: %w", err)
	}
	if len(record) < 3 {
		return Info{}, fmt.Errorf("unexpected field count: got %d, expected 3", len(record))
	}
	mem, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
	if err != nil {
		return Info{}, fmt.Errorf("failed to parse memory total: %w", err)
	}
	return Info{
		Name:           strings.TrimSpace(record[0]),
		Driver:         strings.TrimSpace(record[1]),
		MemoryTotalMiB: mem,
	}, nil
}

// Probe reads the device and reports whether an accelerator is usable. A
// failing reader is logged and treated as no accelerator.
func Probe(ctx context.Context, r Reader, logger *logging.Logger) (Info, bool) {
	info, err := r.ReadDevice(ctx)
	if err != nil {
		if errors.Is(err, ErrNoDevice) {
			logger.Info("no accelerator detected")
		} else {
			logger.Warn("accelerator probe failed", zap.Error(err))
		}
		return Info{}, false
	}
	logger.Info("accelerator detected",
		zap.String("name", info.Name),
		zap.String("driver", info.Driver),
		zap.Int64("memory_mib", info.MemoryTotalMiB),
	)
	return info, true
}
