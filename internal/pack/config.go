package pack

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// LoadConfig reads a constraint Config from a YAML file. Missing fields
// fall back to DefaultConfig, so a partial file only overrides what it
// names.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}
