// Package config loads and validates the TOML mapping configuration: a
// device selector plus dual-role and chord-remap rule arrays.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/evremap/evremap/internal/keycodes"
	"github.com/evremap/evremap/internal/mapping"
)

// File is the raw shape of the TOML document, the Go analogue of the
// original's `ConfigFile` struct in mapping.rs.
type File struct {
	DeviceName    string          `toml:"device_name"`
	Phys          string          `toml:"phys"`
	HoldTimeoutMs int             `toml:"hold_timeout_ms"`
	DualRole      []dualRoleEntry `toml:"dual_role"`
	Remap         []remapEntry    `toml:"remap"`
}

type dualRoleEntry struct {
	Input string   `toml:"input"`
	Hold  []string `toml:"hold"`
	Tap   []string `toml:"tap"`
}

type remapEntry struct {
	Input  []string `toml:"input"`
	Output []string `toml:"output"`
}

// Config is the fully validated, ready-to-run configuration: the device
// selector plus a compiled mapping.Table.
type Config struct {
	DeviceName string
	Phys       string // optional; empty means "disambiguate by name alone"
	Mappings   *mapping.Table
}

// Load reads and validates a config file from path. Every KEY_* token is
// resolved through internal/keycodes; an unknown token, a duplicate
// dual-role input, or a duplicate/conflicting remap input set is a fatal
// error naming the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if file.DeviceName == "" {
		return nil, fmt.Errorf("config %s: device_name is required", path)
	}

	dualRoles := make([]mapping.DualRole, 0, len(file.DualRole))
	for i, d := range file.DualRole {
		input, err := keycodes.Lookup(d.Input)
		if err != nil {
			return nil, fmt.Errorf("config %s: dual_role[%d]: %w", path, i, err)
		}
		hold, err := lookupAll(d.Hold)
		if err != nil {
			return nil, fmt.Errorf("config %s: dual_role[%d].hold: %w", path, i, err)
		}
		tap, err := lookupAll(d.Tap)
		if err != nil {
			return nil, fmt.Errorf("config %s: dual_role[%d].tap: %w", path, i, err)
		}
		dualRoles = append(dualRoles, mapping.DualRole{Input: input, Hold: hold, Tap: tap})
	}

	remaps := make([]mapping.Remap, 0, len(file.Remap))
	for i, r := range file.Remap {
		if len(r.Input) == 0 {
			return nil, fmt.Errorf("config %s: remap[%d]: input must not be empty", path, i)
		}
		input, err := lookupAll(r.Input)
		if err != nil {
			return nil, fmt.Errorf("config %s: remap[%d].input: %w", path, i, err)
		}
		output, err := lookupAll(r.Output)
		if err != nil {
			return nil, fmt.Errorf("config %s: remap[%d].output: %w", path, i, err)
		}
		remaps = append(remaps, mapping.Remap{Input: input, Output: output})
	}

	holdTimeout := mapping.DefaultHoldTimeout
	if file.HoldTimeoutMs > 0 {
		holdTimeout = time.Duration(file.HoldTimeoutMs) * time.Millisecond
	}

	table, err := mapping.NewTable(dualRoles, remaps, holdTimeout)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &Config{
		DeviceName: file.DeviceName,
		Phys:       file.Phys,
		Mappings:   table,
	}, nil
}

func lookupAll(names []string) ([]mapping.KeyCode, error) {
	codes := make([]mapping.KeyCode, 0, len(names))
	for _, n := range names {
		c, err := keycodes.Lookup(n)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}
