// Package config loads a YAML descriptor naming the architecture, the
// translation root, and the physical memory backend a demo or tool
// should wire up. The core library never reads files itself; this
// package exists for the collaborators that do.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mkfyi/memflow/arch"
)

// Descriptor is the top-level shape of a memflow session file.
type Descriptor struct {
	// Architecture names one of the well-known descriptors resolvable by
	// arch.ByName ("x86-32", "x86-32-pae", "x86-64").
	Architecture string `yaml:"architecture"`

	// DTB is the directory-table base (CR3) of the address space to
	// translate, as a hex string (e.g. "0x1aa000").
	DTB string `yaml:"dtb"`

	Provider ProviderConfig `yaml:"provider"`
	LogLevel string         `yaml:"log_level"`
}

// ProviderConfig selects and configures the physical memory backend.
type ProviderConfig struct {
	// Kind is "file" for fileprovider; additional backends register their
	// own Kind values without changing this struct.
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	Readonly bool   `yaml:"readonly"`
}

// Load reads and parses a Descriptor from path, filling LogLevel with
// "info" if left blank.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if d.LogLevel == "" {
		d.LogLevel = "info"
	}

	return &d, nil
}

// ResolveArchitecture looks up d.Architecture via arch.ByName, returning
// an error naming the unresolved value rather than arch.ByName's bare nil.
func (d *Descriptor) ResolveArchitecture() (*arch.Descriptor, error) {
	a := arch.ByName(d.Architecture)
	if a == nil {
		return nil, fmt.Errorf("config: unknown architecture %q", d.Architecture)
	}
	return a, nil
}

// ParseDTB parses the DTB hex string (with or without a "0x" prefix).
func (d *Descriptor) ParseDTB() (uint64, error) {
	s := d.DTB
	if len(s) > 1 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	var v uint64
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return 0, fmt.Errorf("config: invalid dtb %q: %w", d.DTB, err)
	}
	return v, nil
}
