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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/streamfeat/engine/column"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
}

func TestValidateRejectsBadBlockSize(t *testing.T) {
	c := Default()
	c.BlockSize = 0
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() with block_size=0, want error")
	}
}

func TestValidateRejectsUnknownEnum(t *testing.T) {
	c := Default()
	c.HashBackend = "nonsense"
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() with unknown hash_backend, want error")
	}
}

func TestHashFuncSelection(t *testing.T) {
	c := Default()
	c.HashBackend = HashStandard
	if c.HashFunc()("x") != column.XXHash64("x") {
		t.Error("HashStandard should select XXHash64")
	}
	c.HashBackend = HashOpenAddressed
	if c.HashFunc()("x") == column.XXHash64("x") {
		t.Error("HashOpenAddressed should not select XXHash64")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "block_size: 256\nenable_compression: false\n")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.BlockSize != 256 {
		t.Errorf("BlockSize = %d, want 256", c.BlockSize)
	}
	if c.EnableCompression {
		t.Error("EnableCompression = true, want false")
	}
	// unset fields keep Default()'s values.
	if c.FloatPrecision != Float64 {
		t.Errorf("FloatPrecision = %q, want default f64", c.FloatPrecision)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "block_size = 512\nhash_backend = \"open-addressing\"\n")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.BlockSize != 512 {
		t.Errorf("BlockSize = %d, want 512", c.BlockSize)
	}
	if c.HashBackend != HashOpenAddressed {
		t.Errorf("HashBackend = %q, want open-addressing", c.HashBackend)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
