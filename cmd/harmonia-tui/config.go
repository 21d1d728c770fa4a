package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/socketrpc"
	"github.com/spf13/viper"
)

const (
	defaultUpdateInterval = model.DefaultUpdateInterval
	defaultFontStep       = 1.0
)

// cliConfig holds only TUI-relevant configuration.
type cliConfig struct {
	UpdateInterval time.Duration `mapstructure:"update-interval"`
	FontStep       float64       `mapstructure:"font-step"`
	SocketPath     string        `mapstructure:"socket-path"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HARMONIA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("update-interval", defaultUpdateInterval)
	v.SetDefault("font-step", defaultFontStep)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "harmonia", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.UpdateInterval < 100*time.Millisecond {
		return cfg, fmt.Errorf("invalid update-interval: %v (minimum 100ms)", cfg.UpdateInterval)
	}
	if cfg.FontStep <= 0 || cfg.FontStep > 10 {
		return cfg, fmt.Errorf("invalid font-step: %v (want 0-10)", cfg.FontStep)
	}

	return cfg, nil
}
