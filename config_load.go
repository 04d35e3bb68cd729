package tuberd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a config file. Supported formats: JSON
// (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness.
func ValidateConfig(cfg Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if cfg.DefaultFormat != "application/json" && cfg.DefaultFormat != "application/cbor" {
		return fmt.Errorf("unknown default_format: %q", cfg.DefaultFormat)
	}
	if cfg.DefaultFormat == "application/cbor" && !cfg.EnableCBOR {
		return fmt.Errorf("default_format is application/cbor but enable_cbor is false")
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level: %q", cfg.LogLevel)
	}
	if cfg.CallLogDSN != "" {
		if !strings.HasPrefix(cfg.CallLogDSN, "sqlite:") && !strings.HasPrefix(cfg.CallLogDSN, "postgres://") {
			return fmt.Errorf("call_log_dsn must start with 'sqlite:' or 'postgres://'")
		}
	}
	return nil
}
