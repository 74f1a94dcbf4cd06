package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/seqclu/seqclu-pv/clu"
)

// RunConfig is the top-level YAML shape accepted by `seqclu-pv run`.
// Every top-level section is named to satisfy strict decoding: an unknown
// key in the file is a configuration mistake, not a forward-compatible
// extension, and should fail loudly rather than be silently ignored.
type RunConfig struct {
	Engine   EngineConfig `yaml:"engine"`
	Source   SourceConfig `yaml:"source"`
	Trace    TraceConfig  `yaml:"trace"`
	LogLevel string       `yaml:"log_level"`
}

// EngineConfig mirrors clu.Config, with yaml tags for the on-disk form.
type EngineConfig struct {
	K                            int      `yaml:"k"`
	P                            int      `yaml:"p"`
	R                            int      `yaml:"r"`
	B                            int      `yaml:"b"`
	MinRepresentativeness        float64  `yaml:"min_representativeness"`
	PrototypeValueRatio          float64  `yaml:"prototype_value_ratio"`
	ApproximateClusterAssignment bool     `yaml:"approximate_cluster_assignment"`
	BufferingEnabled             bool     `yaml:"buffering_enabled"`
	MaxPerTick                   int      `yaml:"max_per_tick"`
	ClassLabels                  []string `yaml:"class_labels,omitempty"`
}

// ToClu converts the on-disk shape into clu.Config.
func (e EngineConfig) ToClu() clu.Config {
	return clu.Config{
		K:                            e.K,
		P:                            e.P,
		R:                            e.R,
		B:                            e.B,
		MinRepresentativeness:        e.MinRepresentativeness,
		PrototypeValueRatio:          e.PrototypeValueRatio,
		ApproximateClusterAssignment: e.ApproximateClusterAssignment,
		BufferingEnabled:             e.BufferingEnabled,
		MaxPerTick:                   e.MaxPerTick,
		ClassLabels:                  e.ClassLabels,
	}
}

// SourceConfig selects and configures the StreamSource for a run.
type SourceConfig struct {
	Kind string `yaml:"kind"` // "generate" or "replay"
	Seed int64  `yaml:"seed"`

	// Generate-only.
	NumClasses     int     `yaml:"num_classes"`
	Dimensions     int     `yaml:"dimensions"`
	SequenceLen    int     `yaml:"sequence_len"`
	TotalSequences int     `yaml:"total_sequences"`
	MaxPerTick     int     `yaml:"max_per_tick"`
	StepScale      float64 `yaml:"step_scale"`
	Noise          float64 `yaml:"noise"`

	// Replay-only.
	ReplayFile string `yaml:"replay_file,omitempty"`
}

// TraceConfig controls decision-trace collection during a run.
type TraceConfig struct {
	Level string `yaml:"level,omitempty"` // "none" or "decisions"
}

// LoadRunConfig parses a run configuration file with strict field
// checking: an unrecognized key is a load-time error.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
