package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/saworbit/zipatch/pkg/patch"
)

// PatchConfig holds the tunables for patch generation, application, and the
// ambient services (cache, metrics) built around them.
type PatchConfig struct {
	// DeltaEngine names the default delta generator ("bsdiff" is the only
	// one wired today; the field exists so a future engine can be selected
	// without an API break).
	DeltaEngine string

	// CompressionEngine names a compressor for PATCH blobs ("none",
	// "deflate", or "xz"); Validate rejects other names and
	// CompressionEngineID resolves it to an engine id. The generator does
	// not read it: it picks a compressor from the registry by each
	// compressor's Accepts.
	CompressionEngine string

	// WireVersion names a patch stream version (1 or 2); Validate rejects
	// any other. The generator does not read it: generator.Generate always
	// writes patch.CurrentVersion.
	WireVersion patch.Version

	// EnableCache toggles the on-disk delta cache.
	EnableCache bool

	// CacheHashAlgo names the multihash algorithm used to key cached
	// deltas ("sha2-256" or "blake2b-256").
	CacheHashAlgo string

	// CachePath is the bbolt database file backing the delta cache.
	CachePath string

	// MetricsAddr holds a listen address for the metrics HTTP server, read
	// from ZIPATCH_METRICS_ADDR. The serve command does not read it; it
	// listens on its own --addr flag.
	MetricsAddr string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *PatchConfig {
	return &PatchConfig{
		DeltaEngine:       "bsdiff",
		CompressionEngine: "deflate",
		WireVersion:       patch.CurrentVersion,
		EnableCache:       true,
		CacheHashAlgo:     "sha2-256",
		CachePath:         "zipatch-cache.db",
		MetricsAddr:       "",
	}
}

// LoadFromEnv loads configuration from environment variables, layered over
// DefaultConfig.
func LoadFromEnv() *PatchConfig {
	cfg := DefaultConfig()

	if v := os.Getenv("ZIPATCH_DELTA_ENGINE"); v != "" {
		cfg.DeltaEngine = v
	}
	if v := os.Getenv("ZIPATCH_COMPRESSION_ENGINE"); v != "" {
		cfg.CompressionEngine = v
	}
	if v := os.Getenv("ZIPATCH_WIRE_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WireVersion = patch.Version(n)
		}
	}
	if v := os.Getenv("ZIPATCH_ENABLE_CACHE"); v != "" {
		cfg.EnableCache = v == "1" || v == "true"
	}
	if v := os.Getenv("ZIPATCH_CACHE_HASH_ALGO"); v != "" {
		cfg.CacheHashAlgo = v
	}
	if v := os.Getenv("ZIPATCH_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("ZIPATCH_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *PatchConfig) Validate() error {
	if c.DeltaEngine != "bsdiff" {
		return fmt.Errorf("invalid delta engine: %s (must be 'bsdiff')", c.DeltaEngine)
	}

	if c.CompressionEngine != "none" && c.CompressionEngine != "deflate" && c.CompressionEngine != "xz" {
		return fmt.Errorf("invalid compression engine: %s (must be 'none', 'deflate', or 'xz')", c.CompressionEngine)
	}

	if !c.WireVersion.Supported() {
		return fmt.Errorf("unsupported wire version: %d", c.WireVersion)
	}

	if c.CacheHashAlgo != "sha2-256" && c.CacheHashAlgo != "blake2b-256" {
		return fmt.Errorf("invalid cache hash algorithm: %s (must be 'sha2-256' or 'blake2b-256')", c.CacheHashAlgo)
	}

	if c.EnableCache && c.CachePath == "" {
		return fmt.Errorf("cache path must be set when the cache is enabled")
	}

	return nil
}

// DeltaEngineID resolves the configured delta engine name to its registry id.
func (c *PatchConfig) DeltaEngineID() uint32 {
	switch c.DeltaEngine {
	case "bsdiff":
		return engine.DeltaBsdiff
	default:
		return engine.DeltaNone
	}
}

// CompressionEngineID resolves the configured compression engine name to its
// registry id.
func (c *PatchConfig) CompressionEngineID() uint32 {
	switch c.CompressionEngine {
	case "deflate":
		return engine.CompressionEngineDeflateRaw
	case "xz":
		return engine.CompressionEngineXZ
	default:
		return engine.CompressionEngineNone
	}
}
