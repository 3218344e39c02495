// Package config holds the two configuration boundaries the optimizer
// core consumes: the pipeline configuration (from the driver) and the
// asmcmp configuration (from the backend). Both are enumerated-field
// structs, not maps or variadic parameters, per spec section 9's
// explicit preference, and both are loadable from YAML via
// gopkg.in/yaml.v3 so a driver can ship them as plain config files
// instead of wiring flags by hand.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"kefir/internal/target"
)

// Config is the pipeline configuration consumed from the driver: which
// named passes to run, in what order, plus the handful of boolean/int
// knobs spec section 6 lists alongside them.
type Config struct {
	// Passes is the ordered list of pass names the registry resolves at
	// pipeline-construction time. An unknown name is a configuration
	// failure, not a runtime one (internal/pipeline.New checks this
	// eagerly rather than at apply time).
	Passes []string `yaml:"passes"`

	// EmitDebugInfo controls whether passes that move or replace
	// instructions are required to carry debug-info sidecar entries
	// forward via ir.TransferDebugInfo.
	EmitDebugInfo bool `yaml:"emit_debug_info"`

	MaxInlineDepth        int `yaml:"max_inline_depth"`
	MaxInlinesPerFunction int `yaml:"max_inlines_per_function"`

	// Platform is a target handle for lowering. It has no YAML tag: a
	// concrete target.Platform is a Go value (it carries behavior, not
	// data), so it is never deserialized. The pipeline does not read
	// it; the lowering pass takes its platform from the
	// passes.LoweringPayload set on its Pass.Payload.
	Platform target.Platform `yaml:"-"`

	// Lower is the optional target-lowering hook. Like Platform, it is
	// never deserialized and not read by the pipeline.
	Lower target.LowerFunc `yaml:"-"`
}

// DefaultMaxInlineDepth and DefaultMaxInlinesPerFunction are the bounds
// Load applies when a config file omits them (a zero value would
// otherwise silently disable inlining-depth limiting altogether).
const (
	DefaultMaxInlineDepth        = 8
	DefaultMaxInlinesPerFunction = 32
)

// Load reads a pipeline Config from a YAML file at path. Platform and
// Lower are left unset.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		MaxInlineDepth:        DefaultMaxInlineDepth,
		MaxInlinesPerFunction: DefaultMaxInlinesPerFunction,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AsmcmpPassKind is the filter a pass runs under: over virtual asmcmp
// instructions, over devirtualized (post-register-allocation) ones, or
// both. internal/asmcmp.Pipeline skips a pass whose Kind does not match
// the instruction stream's current stage.
type AsmcmpPassKind int

const (
	Virtual AsmcmpPassKind = iota
	Devirtual
	Both
)

func (k AsmcmpPassKind) String() string {
	switch k {
	case Virtual:
		return "virtual"
	case Devirtual:
		return "devirtual"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// AsmcmpPassEntry names one asmcmp pass and the kind filter it runs
// under.
type AsmcmpPassEntry struct {
	Name string         `yaml:"name"`
	Kind AsmcmpPassKind `yaml:"kind"`
}

// UnmarshalYAML lets AsmcmpPassKind be written as a lowercase string in
// config files ("virtual"/"devirtual"/"both") instead of an integer.
func (k *AsmcmpPassKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "virtual":
		*k = Virtual
	case "devirtual":
		*k = Devirtual
	case "both":
		*k = Both
	default:
		return &yaml.TypeError{Errors: []string{"config: unknown asmcmp pass kind " + s}}
	}
	return nil
}

// AsmcmpConfig is the asmcmp configuration consumed from the backend:
// the ordered list of asmcmp passes to run, each tagged by the kind
// filter under which it runs.
type AsmcmpConfig struct {
	Passes []AsmcmpPassEntry `yaml:"passes"`
}

// LoadAsmcmpConfig reads an AsmcmpConfig from a YAML file at path.
func LoadAsmcmpConfig(path string) (AsmcmpConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AsmcmpConfig{}, err
	}
	var cfg AsmcmpConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AsmcmpConfig{}, err
	}
	return cfg, nil
}
