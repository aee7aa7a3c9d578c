package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/Swind/go-monitors/core"
)

// loadConfig returns the defaults overlaid with the TOML file at path, if any.
// Keys missing from the file keep their default value.
func loadConfig(path string) (core.Config, error) {
	cfg := core.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("read config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

func parseLogLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", s, err)
	}
	if level == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}
	return level, nil
}
