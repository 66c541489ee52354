package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays CREDGATE_* environment variables onto config. Unset
// variables leave the current values alone.
func parseEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
