package main

import (
	"os"

	"github.com/printdesk/printdesk/internal/config"
)

// loadConfig reads the config named by --config, which may be a file or a
// directory. Directories without a config file yield the defaults. Log
// settings from the file apply unless set on the command line.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	path := flags.config
	if path == "" {
		path = "."
	}

	var (
		cfg *config.Config
		err error
	)
	if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return nil, err
	}

	if flags.logLevel == "" {
		if err := setLogLevel(cfg.Log.Level); err != nil {
			return nil, err
		}
	} else {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat == "" && cfg.Log.Format != "" && cfg.Log.Format != "text" {
		if err := setupLogger(os.Stderr, "", cfg.Log.Format); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
