package script

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/vecstore/internal/config"
	"github.com/roach88/vecstore/internal/vector"
)

// Script is a named sequence of store operations with expectations.
type Script struct {
	// Name uniquely identifies this script. Golden files are keyed by it.
	Name string `yaml:"name" json:"name"`

	// Description explains what the script exercises.
	Description string `yaml:"description" json:"description"`

	// Config overrides the run configuration for this script only.
	Config *config.Overlay `yaml:"config,omitempty" json:"config,omitempty"`

	// Steps run in order against stores named by Step.Store.
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step is a single store operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op" json:"op"`

	// Store names the store the step operates on. Names are bound to
	// handles by "init" and invalidated by "free".
	Store string `yaml:"store" json:"store"`

	// Index is the element index for get, set, insert and erase.
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	// Value is the element payload as text. Text is NFC-normalized before
	// it is stored.
	Value *string `yaml:"value,omitempty" json:"value,omitempty"`

	// Hex is the element payload as hex, for binary data.
	Hex *string `yaml:"hex,omitempty" json:"hex,omitempty"`

	// Separator is placed between elements by join.
	Separator string `yaml:"separator,omitempty" json:"separator,omitempty"`

	// Expect validates the outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Expect describes the expected outcome of a step. Only the fields that
// are set are checked.
type Expect struct {
	// Error is the expected error code (e.g. "INDEX_OUT_OF_RANGE").
	// Empty means the step must succeed.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Found is the expected lookup result of get, front and end.
	Found *bool `yaml:"found,omitempty" json:"found,omitempty"`

	// Value and Hex are the expected element bytes of a lookup.
	Value *string `yaml:"value,omitempty" json:"value,omitempty"`
	Hex   *string `yaml:"hex,omitempty" json:"hex,omitempty"`

	// Size and Capacity are checked after the step.
	Size     *int `yaml:"size,omitempty" json:"size,omitempty"`
	Capacity *int `yaml:"capacity,omitempty" json:"capacity,omitempty"`

	// Text is the expected output of join.
	Text *string `yaml:"text,omitempty" json:"text,omitempty"`
}

// Operation names.
const (
	OpInit     = "init"
	OpPushBack = "push_back"
	OpPopBack  = "pop_back"
	OpGet      = "get"
	OpFront    = "front"
	OpEnd      = "end"
	OpSet      = "set"
	OpInsert   = "insert"
	OpErase    = "erase"
	OpClear    = "clear"
	OpFree     = "free"
	OpSize     = "size"
	OpJoin     = "join"
)

type opRule struct {
	index   bool // requires Index
	payload bool // requires Value or Hex
}

var ops = map[string]opRule{
	OpInit:     {},
	OpPushBack: {payload: true},
	OpPopBack:  {},
	OpGet:      {index: true},
	OpFront:    {},
	OpEnd:      {},
	OpSet:      {index: true, payload: true},
	OpInsert:   {index: true, payload: true},
	OpErase:    {index: true},
	OpClear:    {},
	OpFree:     {},
	OpSize:     {},
	OpJoin:     {},
}

var errorCodes = map[string]bool{
	string(vector.ErrCodeAllocation):    true,
	string(vector.ErrCodeIndex):         true,
	string(vector.ErrCodeInvalidHandle): true,
	string(vector.ErrCodeNotText):       true,
}

// ErrInvalid wraps validation failures returned by Load and the parsers.
var ErrInvalid = errors.New("invalid script")

// Load reads and parses a script file. The format follows the extension:
// .yaml and .yml are YAML, .cue is CUE.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, filepath.Base(path))
	default:
		return nil, fmt.Errorf("unsupported script extension %q", ext)
	}
}

// ParseYAML parses a YAML script. Unknown fields (typos) are rejected.
func ParseYAML(data []byte) (*Script, error) {
	var s Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &s, nil
}

// ParseCUE parses a CUE script. The CUE value must be concrete.
// filename is used in error positions only.
func ParseCUE(data []byte, filename string) (*Script, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}

	var s Script
	if err := value.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &s, nil
}

// Validate checks that required fields are present and that store names
// are initialized before reuse.
func Validate(s *Script) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Config != nil {
		merged := config.Default().Merge(s.Config)
		if err := merged.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	live := make(map[string]bool)
	for i := range s.Steps {
		step := &s.Steps[i]
		if err := validateStep(i, step); err != nil {
			return err
		}
		switch step.Op {
		case OpInit:
			if live[step.Store] {
				return fmt.Errorf("steps[%d]: store %q is already initialized", i, step.Store)
			}
			live[step.Store] = true
		case OpFree:
			live[step.Store] = false
		}
	}
	return nil
}

// validateStep validates a single step based on its operation.
func validateStep(index int, step *Step) error {
	if step.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}
	rule, ok := ops[step.Op]
	if !ok {
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	if step.Store == "" {
		return fmt.Errorf("steps[%d]: store is required", index)
	}

	if rule.index && step.Index == nil {
		return fmt.Errorf("steps[%d]: index is required for %s", index, step.Op)
	}
	if !rule.index && step.Index != nil {
		return fmt.Errorf("steps[%d]: index is not allowed for %s", index, step.Op)
	}

	hasPayload := step.Value != nil || step.Hex != nil
	if step.Value != nil && step.Hex != nil {
		return fmt.Errorf("steps[%d]: value and hex are mutually exclusive", index)
	}
	if rule.payload && !hasPayload {
		return fmt.Errorf("steps[%d]: value or hex is required for %s", index, step.Op)
	}
	if !rule.payload && hasPayload {
		return fmt.Errorf("steps[%d]: value is not allowed for %s", index, step.Op)
	}
	if step.Hex != nil {
		if _, err := hex.DecodeString(*step.Hex); err != nil {
			return fmt.Errorf("steps[%d]: invalid hex: %w", index, err)
		}
	}
	if step.Separator != "" && step.Op != OpJoin {
		return fmt.Errorf("steps[%d]: separator is only allowed for join", index)
	}

	if e := step.Expect; e != nil {
		if e.Error != "" && !errorCodes[e.Error] {
			return fmt.Errorf("steps[%d].expect: unknown error code %q", index, e.Error)
		}
		if e.Value != nil && e.Hex != nil {
			return fmt.Errorf("steps[%d].expect: value and hex are mutually exclusive", index)
		}
		if e.Hex != nil {
			if _, err := hex.DecodeString(*e.Hex); err != nil {
				return fmt.Errorf("steps[%d].expect: invalid hex: %w", index, err)
			}
		}
	}
	return nil
}
