// Package config loads the engine's tunables from a TOML file, the way
// the teacher's internal/parser/toml package loads project configuration.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// EngineConfig holds every tunable the storage, cost, and scoring layers
// need. Zero value is not valid; use Default() or Load().
type EngineConfig struct {
	DataDir string `toml:"data_dir"`

	PageSize      int `toml:"page_size"`
	BufferPoolSize int `toml:"buffer_pool_size"`

	// Cost model constants (§4.8).
	RandomReadCost float64 `toml:"random_read_cost"`
	WriteCost      float64 `toml:"write_cost"`
	CPUPerTuple    float64 `toml:"cpu_per_tuple"`
	CPUPerPredicate float64 `toml:"cpu_per_predicate"`

	// Plan-scorer weights (§4.10), must sum to 1.0.
	WeightSelectivityDepth float64 `toml:"weight_selectivity_depth"`
	WeightJoinOrder        float64 `toml:"weight_join_order"`
	WeightIntermediateSize float64 `toml:"weight_intermediate_size"`
	WeightComplexity       float64 `toml:"weight_complexity"`

	// WAL tuning.
	WALBufferMax       int `toml:"wal_buffer_max"`
	CheckpointInterval int `toml:"checkpoint_interval"` // statements between automatic checkpoints; 0 disables
}

// Default returns the configuration spec.md's constants describe.
func Default() *EngineConfig {
	return &EngineConfig{
		DataDir:        "data",
		PageSize:       4096,
		BufferPoolSize: 100,

		RandomReadCost:  10,
		WriteCost:       5,
		CPUPerTuple:     1e-3,
		CPUPerPredicate: 1e-4,

		WeightSelectivityDepth: 0.30,
		WeightJoinOrder:        0.35,
		WeightIntermediateSize: 0.25,
		WeightComplexity:       0.10,

		WALBufferMax:       32,
		CheckpointInterval: 50,
	}
}

// Load reads path as TOML over top of Default(), so a partial file only
// overrides what it names. A missing file is not an error: defaults apply.
func Load(path string) (*EngineConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
