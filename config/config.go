// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config holds the engine's build/runtime knobs (spec section
// 6) and loaders for the two file formats the pack favors: YAML and
// TOML.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"sigs.k8s.io/yaml"

	"github.com/streamfeat/engine/column"
	"github.com/streamfeat/engine/store"
)

// FloatPrecision selects the float_precision knob. The engine's
// Value.Float is always a Go float64 internally (spec section 3);
// Validate checks the knob's value, and nothing else in the engine
// reads it, so f32 and f64 compute and report identically.
type FloatPrecision string

const (
	Float32 FloatPrecision = "f32"
	Float64 FloatPrecision = "f64"
)

// StringBackend selects the string_backend knob.
type StringBackend string

const (
	StringInline StringBackend = "inline"
	StringHeap   StringBackend = "heap"
)

// HashBackend selects the hash_backend knob.
type HashBackend string

const (
	HashStandard      HashBackend = "standard"
	HashOpenAddressed HashBackend = "open-addressing"
)

// Config mirrors the configuration knob table in spec section 6.
type Config struct {
	BlockSize         int           `json:"block_size" toml:"block_size"`
	EnableCompression bool          `json:"enable_compression" toml:"enable_compression"`
	FloatPrecision    FloatPrecision `json:"float_precision" toml:"float_precision"`
	StringBackend     StringBackend `json:"string_backend" toml:"string_backend"`
	HashBackend       HashBackend   `json:"hash_backend" toml:"hash_backend"`
}

// Default returns the engine's default configuration (spec section 6:
// block_size defaults to 1024, enable_compression to true).
func Default() Config {
	return Config{
		BlockSize:         1024,
		EnableCompression: true,
		FloatPrecision:    Float64,
		StringBackend:     StringInline,
		HashBackend:       HashStandard,
	}
}

// Validate checks the knob constraints spec section 6 states
// explicitly (block_size >= 1); unrecognized enum values are rejected
// too, since a silently-ignored typo in a config file is worse than a
// load-time error.
func (c Config) Validate() error {
	if c.BlockSize < 1 {
		return fmt.Errorf("config: block_size must be >= 1, got %d", c.BlockSize)
	}
	switch c.FloatPrecision {
	case Float32, Float64:
	default:
		return fmt.Errorf("config: unknown float_precision %q", c.FloatPrecision)
	}
	switch c.StringBackend {
	case StringInline, StringHeap:
	default:
		return fmt.Errorf("config: unknown string_backend %q", c.StringBackend)
	}
	switch c.HashBackend {
	case HashStandard, HashOpenAddressed:
	default:
		return fmt.Errorf("config: unknown hash_backend %q", c.HashBackend)
	}
	return nil
}

// HashFunc returns the column.HashFunc selected by HashBackend.
func (c Config) HashFunc() column.HashFunc {
	if c.HashBackend == HashOpenAddressed {
		return column.SipHash64
	}
	return column.XXHash64
}

// StoreOptions translates Config into store.Option values for
// store.New.
func (c Config) StoreOptions() []store.Option {
	return []store.Option{
		store.WithBlockSize(c.BlockSize),
		store.WithCompression(c.EnableCompression),
		store.WithHashBackend(c.HashFunc()),
	}
}

// Load reads a Config from path, dispatching on extension: ".toml"
// uses BurntSushi/toml, anything else (".yaml", ".yml", or no
// extension) is parsed as YAML via sigs.k8s.io/yaml (which accepts
// plain JSON too, since YAML is a JSON superset).
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if strings.HasSuffix(path, ".toml") {
		if _, err := toml.Decode(string(data), &c); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
