package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/socketrpc"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/harmonia/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Harmonia - Editor Calibration and Break Reminder Service\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	dataDir := filepath.Join(home, ".local", "share", "harmonia")
	defaults := model.DefaultPauseSettings()

	v := viper.New()
	v.SetEnvPrefix("HARMONIA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("db-path", filepath.Join(dataDir, "harmonia.duckdb"))
	v.SetDefault("editor-settings-path", filepath.Join(home, ".config", "harmonia", "editor.yml"))
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("metrics-enabled", true)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("apply-debounce", defaultApplyDebounce)
	v.SetDefault("write-settle-window", defaultWriteSettleWindow)
	v.SetDefault("idle-threshold", defaultIdleThreshold)
	v.SetDefault("snooze-duration", defaultSnoozeDuration)
	v.SetDefault("history-days", defaultHistoryDays)
	v.SetDefault("pause-enabled", defaults.Enabled)
	v.SetDefault("work-interval-minutes", defaults.WorkIntervalMinutes)
	v.SetDefault("break-duration-seconds", defaults.BreakDurationSeconds)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-dir", filepath.Join(dataDir, "backups"))
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "harmonia", "config.yml")
		v.SetConfigFile(defaultConfigPath)
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
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}

	// Expand ~ in paths
	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.EditorSettingsPath = expandHome(home, cfg.EditorSettingsPath)
	cfg.BackupLocalDir = expandHome(home, cfg.BackupLocalDir)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func validateConfig(cfg appConfig) error {
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.WorkIntervalMinutes < 1 || cfg.WorkIntervalMinutes > 240 {
		return fmt.Errorf("invalid work-interval-minutes: %d (want 1-240)", cfg.WorkIntervalMinutes)
	}
	if cfg.BreakDurationSeconds < 5 || cfg.BreakDurationSeconds > 3600 {
		return fmt.Errorf("invalid break-duration-seconds: %d (want 5-3600)", cfg.BreakDurationSeconds)
	}
	if cfg.HistoryDays < 0 {
		return fmt.Errorf("invalid history-days: %d", cfg.HistoryDays)
	}
	for name, d := range map[string]int64{
		"apply-debounce":      int64(cfg.ApplyDebounce),
		"write-settle-window": int64(cfg.WriteSettleWindow),
		"idle-threshold":      int64(cfg.IdleThreshold),
		"snooze-duration":     int64(cfg.SnoozeDuration),
		"query-timeout":       int64(cfg.QueryTimeout),
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", name)
		}
	}
	if cfg.BackupEnabled && cfg.BackupKeepLast < 0 {
		return fmt.Errorf("invalid backup-keep-last: %d", cfg.BackupKeepLast)
	}
	return nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
