package ig

import (
	"fmt"
	"os"
)

// Config holds the IG credentials and environment selection.
type Config struct {
	APIKey     string
	Identifier string
	Password   string
	Demo       bool
}

// FromEnv reads the IG credentials from the environment. Load a .env file
// beforehand if you keep them there.
func FromEnv() (Config, error) {
	cfg := Config{
		APIKey:     os.Getenv("IG_API_KEY"),
		Identifier: os.Getenv("IG_IDENTIFIER"),
		Password:   os.Getenv("IG_PASSWORD"),
		Demo:       os.Getenv("IG_ENV") != "live",
	}
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("IG_API_KEY is not set")
	}
	if cfg.Identifier == "" {
		return Config{}, fmt.Errorf("IG_IDENTIFIER is not set")
	}
	if cfg.Password == "" {
		return Config{}, fmt.Errorf("IG_PASSWORD is not set")
	}
	return cfg, nil
}
