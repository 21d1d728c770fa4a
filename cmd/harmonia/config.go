package main

import (
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
)

const (
	defaultBindHost          = "127.0.0.1"
	defaultAPIPort           = 4020
	defaultQueryTimeout      = 5 * time.Second
	defaultApplyDebounce     = model.DefaultApplyDebounce
	defaultWriteSettleWindow = model.DefaultWriteSettleWindow
	defaultIdleThreshold     = model.DefaultIdleThreshold
	defaultSnoozeDuration    = model.DefaultSnoozeDuration
	defaultHistoryDays       = model.DefaultHistoryDays // 0 = keep forever
	defaultBackupInterval    = 24 * time.Hour
	defaultBackupKeepLast    = 7
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	DBPath               string        `mapstructure:"db-path"`
	EditorSettingsPath   string        `mapstructure:"editor-settings-path"`
	SocketPath           string        `mapstructure:"socket-path"`
	APIEnabled           bool          `mapstructure:"api-enabled"`
	APIPort              int           `mapstructure:"api-port"`
	APIAddr              string        `mapstructure:"api-addr"`
	MetricsEnabled       bool          `mapstructure:"metrics-enabled"`
	QueryTimeout         time.Duration `mapstructure:"query-timeout"`
	ApplyDebounce        time.Duration `mapstructure:"apply-debounce"`
	WriteSettleWindow    time.Duration `mapstructure:"write-settle-window"`
	IdleThreshold        time.Duration `mapstructure:"idle-threshold"`
	SnoozeDuration       time.Duration `mapstructure:"snooze-duration"`
	HistoryDays          int           `mapstructure:"history-days"`
	PauseEnabled         bool          `mapstructure:"pause-enabled"`
	WorkIntervalMinutes  int           `mapstructure:"work-interval-minutes"`
	BreakDurationSeconds int           `mapstructure:"break-duration-seconds"`
	BackupEnabled        bool          `mapstructure:"backup-enabled"`
	BackupInterval       time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir       string        `mapstructure:"backup-dir"`
	BackupKeepLast       int           `mapstructure:"backup-keep-last"`
	ConfigPath           string        `mapstructure:"-"` // not from config file
}

// pauseDefaults are the first-run break-reminder settings. Stored settings win once they exist.
func (c appConfig) pauseDefaults() model.PauseSettings {
	ps := model.DefaultPauseSettings()
	ps.Enabled = c.PauseEnabled
	ps.WorkIntervalMinutes = c.WorkIntervalMinutes
	ps.BreakDurationSeconds = c.BreakDurationSeconds
	return ps
}
