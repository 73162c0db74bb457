// Package integration assembles the ledger engine: it opens the chain
// database, the hosted ledger and the off-ledger journal from one Config.
//
// Presets bundle storage settings into named profiles so operators can pick
// a resource footprint without tuning every knob:
//
//	cfg := integration.LitePreset()   // laptops, CI
//	cfg := integration.FullPreset()   // long running nodes
//	cfg := integration.MemoryPreset() // demos and throwaway runs
package integration

import "fmt"

// Database layouts understood by MakeEngine.
const (
	DBMemory  = "memory"
	DBLevelDB = "ldb"
)

// PresetConfig captures the storage parameters that vary across profiles.
type PresetConfig struct {
	Name       string // human-readable identifier (e.g., "lite", "full")
	CacheMB    int    // LevelDB block cache
	Handles    int    // LevelDB open file handles
	GroupCache int    // decoded group and membership records kept per table
	DBPreset   string // DBMemory or DBLevelDB
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:       "default",
		CacheMB:    256,
		Handles:    256,
		GroupCache: 4096,
		DBPreset:   DBLevelDB,
	}
}

// LitePreset trades lookup speed for a small memory footprint.
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.CacheMB = 64
	cfg.Handles = 64
	cfg.GroupCache = 512
	return cfg
}

// FullPreset keeps most of a large tree in memory. Expect 2GB+ RSS.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.CacheMB = 1024
	cfg.Handles = 1024
	cfg.GroupCache = 65536
	return cfg
}

// MemoryPreset never touches the disk. Everything is lost on exit.
func MemoryPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "memory"
	cfg.DBPreset = DBMemory
	return cfg
}

// GetPresetByName looks up a preset by its identifier, so flags like
// --preset=full can select it.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "memory":
		return MemoryPreset(), nil
	case "default", "":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, memory, default)", name)
	}
}

// ApplyPreset merges preset into target. Zero values in the preset leave
// the target untouched, so presets can be layered over config file values.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	if preset.Handles > 0 {
		target.Handles = preset.Handles
	}
	if preset.GroupCache > 0 {
		target.GroupCache = preset.GroupCache
	}
	if preset.DBPreset != "" {
		target.DBPreset = preset.DBPreset
	}
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
