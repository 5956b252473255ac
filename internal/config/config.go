// Package config loads store and allocator settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vecstore/internal/memory"
	"github.com/roach88/vecstore/internal/vector"
)

// Config holds settings shared by every store created in a run.
type Config struct {
	Store  StoreConfig  `yaml:"store" json:"store"`
	Memory MemoryConfig `yaml:"memory" json:"memory"`
}

// StoreConfig configures new stores.
type StoreConfig struct {
	// InitialCapacity is the slot count of a new store (default 8).
	InitialCapacity int `yaml:"initial_capacity,omitempty" json:"initial_capacity,omitempty"`
}

// MemoryConfig configures the element allocator.
type MemoryConfig struct {
	// MaxBytes caps the bytes held by all stores together, slot arrays
	// included. Zero means unlimited.
	MaxBytes int64 `yaml:"max_bytes,omitempty" json:"max_bytes,omitempty"`

	// Pool recycles element buffers through size-classed pools.
	Pool bool `yaml:"pool,omitempty" json:"pool,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Store: StoreConfig{InitialCapacity: vector.DefaultCapacity},
	}
}

// Load reads a YAML config file on top of the defaults.
// Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Store.InitialCapacity < 1 {
		return fmt.Errorf("store.initial_capacity must be at least 1, got %d", c.Store.InitialCapacity)
	}
	if c.Memory.MaxBytes < 0 {
		return fmt.Errorf("memory.max_bytes must be non-negative, got %d", c.Memory.MaxBytes)
	}
	return nil
}

// Overlay is a partial Config carried by a script. A nil field keeps
// the base value; a set field replaces it, zero and false included.
type Overlay struct {
	Store  StoreOverlay  `yaml:"store" json:"store"`
	Memory MemoryOverlay `yaml:"memory" json:"memory"`
}

// StoreOverlay overrides StoreConfig fields.
type StoreOverlay struct {
	InitialCapacity *int `yaml:"initial_capacity,omitempty" json:"initial_capacity,omitempty"`
}

// MemoryOverlay overrides MemoryConfig fields. MaxBytes 0 lifts a base
// budget; Pool false turns pooling off.
type MemoryOverlay struct {
	MaxBytes *int64 `yaml:"max_bytes,omitempty" json:"max_bytes,omitempty"`
	Pool     *bool  `yaml:"pool,omitempty" json:"pool,omitempty"`
}

// Merge returns c with every set field of o applied on top.
// A nil o returns c unchanged.
func (c Config) Merge(o *Overlay) Config {
	if o == nil {
		return c
	}
	if o.Store.InitialCapacity != nil {
		c.Store.InitialCapacity = *o.Store.InitialCapacity
	}
	if o.Memory.MaxBytes != nil {
		c.Memory.MaxBytes = *o.Memory.MaxBytes
	}
	if o.Memory.Pool != nil {
		c.Memory.Pool = *o.Memory.Pool
	}
	return c
}

// Allocator builds the allocator described by the memory settings.
func (c Config) Allocator() memory.Allocator {
	var a memory.Allocator = memory.Plain{}
	if c.Memory.Pool {
		a = &memory.Heap{}
	}
	if c.Memory.MaxBytes > 0 {
		a = memory.NewBudget(a, c.Memory.MaxBytes)
	}
	return a
}

// StoreOptions returns the vector options for a store drawing from alloc.
func (c Config) StoreOptions(alloc memory.Allocator) []vector.Option {
	return []vector.Option{
		vector.WithInitialCapacity(c.Store.InitialCapacity),
		vector.WithAllocator(alloc),
	}
}
