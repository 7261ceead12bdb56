// Package config loads the YAML hart configuration a driver program uses
// to construct a hart.Hart: register width, reset vector, and optional
// overrides for the host-communication cells an image would otherwise
// carry in its .tohost section.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"rvcore/hart"
)

// Config is the on-disk shape of a hart configuration file.
type Config struct {
	XLEN             int    `yaml:"xlen"`
	ResetVector      string `yaml:"resetVector"`
	ToHostOverride   string `yaml:"tohostOverride"`
	FromHostOverride string `yaml:"fromhostOverride"`
}

// Default returns the zero-configuration hart: XLEN=64, reset vector
// 0x80000000, default tohost/fromhost addresses.
func Default() Config {
	return Config{XLEN: 64, ResetVector: "0x80000000"}
}

// Load reads and unmarshals a YAML configuration file. A missing file is
// returned as the os.ReadFile error — callers that want Default-on-ENOENT
// semantics check os.IsNotExist themselves and fall back explicitly.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// NewHart validates the configuration and constructs a hart.Hart from it.
func (c Config) NewHart() (*hart.Hart, error) {
	if c.XLEN != 32 && c.XLEN != 64 {
		return nil, fmt.Errorf("config: xlen must be 32 or 64, got %d", c.XLEN)
	}
	rv, err := parseUint(c.ResetVector, "0x80000000")
	if err != nil {
		return nil, fmt.Errorf("config: resetVector: %w", err)
	}
	h := hart.New(c.XLEN, rv)

	if c.ToHostOverride != "" {
		v, err := parseUint(c.ToHostOverride, "")
		if err != nil {
			return nil, fmt.Errorf("config: tohostOverride: %w", err)
		}
		h.ToHost = v
	}
	if c.FromHostOverride != "" {
		v, err := parseUint(c.FromHostOverride, "")
		if err != nil {
			return nil, fmt.Errorf("config: fromhostOverride: %w", err)
		}
		h.FromHost = v
	}
	return h, nil
}

func parseUint(s, fallback string) (uint64, error) {
	if s == "" {
		s = fallback
	}
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	return strconv.ParseUint(s, base, 64)
}
