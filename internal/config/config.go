// Package config handles meshsimplify's on-disk configuration: the
// defaults a run falls back to when a flag is not given on the command
// line.
package config

// Config holds every setting a simplification run can take from a YAML
// file, mirrored one-for-one by cmd/meshsimplify's flags (flags take
// precedence when both are set).
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Batch    BatchConfig    `yaml:"batch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SimplifyConfig holds the parameters passed through to simplify.Simplify.
type SimplifyConfig struct {
	ErrorBudget     float32 `yaml:"error_budget"`
	BoundaryPenalty float32 `yaml:"boundary_penalty"`
	WeldEpsilon     float32 `yaml:"weld_epsilon"`
	StepBudget      int     `yaml:"step_budget"`
}

// BatchConfig holds settings for simplifying a directory of meshes.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			ErrorBudget:     1.0,
			BoundaryPenalty: 1000,
			WeldEpsilon:     0,
			StepBudget:      0,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
