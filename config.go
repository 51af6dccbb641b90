package cbpt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxConfigFileSize bounds config files read by LoadConfig.
const maxConfigFileSize = 1 << 20

// LoadConfig reads a JSON config file. Fields omitted from the file keep
// their DefaultConfig values, so partial configs are safe. Unknown keys are
// rejected with a ConfigError so a misspelled parameter cannot silently
// fall back to its default. The result is
// validated; code-only fields (Metric, Scorer, Logger, Progress) keep their
// defaults and may be set afterwards.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("cbpt: config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("cbpt: failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return Config{}, fmt.Errorf("cbpt: config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("cbpt: failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, configErrorf("config_file", cleanPath, "failed to parse: %v", err)
	}
	if dec.More() {
		return Config{}, configErrorf("config_file", cleanPath, "failed to parse: trailing data after the config object")
	}

	// Validate a copy so defaulted fields like Workers stay zero in the
	// returned config and resolve at run time.
	check := cfg
	applyDefaults(&check)
	if err := validateConfig(&check); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
