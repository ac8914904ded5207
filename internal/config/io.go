package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load decodes a FlighthookConfig from a TOML file at path.
func Load(path string) (FlighthookConfig, error) {
	var cfg FlighthookConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FlighthookConfig{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}

// Save encodes cfg as TOML to path, overwriting any existing file.
func Save(path string, cfg FlighthookConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: creating %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encoding %s: %w", path, err)
	}
	return nil
}
