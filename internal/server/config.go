package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AppConfig is the resolved process configuration.
type AppConfig struct {
	Addr           string
	MachineAPIKey  string
	MaxConcurrency int
	WorkerTimeout  time.Duration
	FlushInterval  time.Duration
	WorldsPath     string
	MachinesPath   string
	UsersPath      string
	LogLevel       string
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		Addr:           ":8080",
		MachineAPIKey:  os.Getenv("MACHINE_API_KEY"),
		MaxConcurrency: 5,
		WorkerTimeout:  1500 * time.Millisecond,
		FlushInterval:  30 * time.Second,
		WorldsPath:     "db/world.json",
		MachinesPath:   "db/machine.json",
		UsersPath:      "db/user.json",
		LogLevel:       "info",
	}
}

// fileConfig mirrors the config file; pointer fields distinguish "absent"
// from zero.
type fileConfig struct {
	Addr            *string `json:"addr"`
	MachineAPIKey   *string `json:"machine_api_key"`
	MaxConcurrency  *int    `json:"max_concurrency"`
	WorkerTimeoutMS *int    `json:"worker_timeout_ms"`
	FlushIntervalS  *int    `json:"flush_interval_s"`
	WorldsPath      *string `json:"worlds_path"`
	MachinesPath    *string `json:"machines_path"`
	UsersPath       *string `json:"users_path"`
	LogLevel        *string `json:"log_level"`
}

// ConfigOverrides represents optional command-line overrides applied on top
// of the config file.
type ConfigOverrides struct {
	Addr           *string
	MachineAPIKey  *string
	MaxConcurrency *int
	LogLevel       *string
}

func (o ConfigOverrides) apply(base AppConfig) AppConfig {
	if o.Addr != nil {
		base.Addr = *o.Addr
	}
	if o.MachineAPIKey != nil {
		base.MachineAPIKey = *o.MachineAPIKey
	}
	if o.MaxConcurrency != nil {
		base.MaxConcurrency = *o.MaxConcurrency
	}
	if o.LogLevel != nil {
		base.LogLevel = *o.LogLevel
	}
	return base
}

func mergeFileConfig(base AppConfig, cfg fileConfig) AppConfig {
	if cfg.Addr != nil {
		base.Addr = *cfg.Addr
	}
	if cfg.MachineAPIKey != nil {
		base.MachineAPIKey = *cfg.MachineAPIKey
	}
	if cfg.MaxConcurrency != nil {
		base.MaxConcurrency = *cfg.MaxConcurrency
	}
	if cfg.WorkerTimeoutMS != nil {
		base.WorkerTimeout = time.Duration(*cfg.WorkerTimeoutMS) * time.Millisecond
	}
	if cfg.FlushIntervalS != nil {
		base.FlushInterval = time.Duration(*cfg.FlushIntervalS) * time.Second
	}
	if cfg.WorldsPath != nil {
		base.WorldsPath = *cfg.WorldsPath
	}
	if cfg.MachinesPath != nil {
		base.MachinesPath = *cfg.MachinesPath
	}
	if cfg.UsersPath != nil {
		base.UsersPath = *cfg.UsersPath
	}
	if cfg.LogLevel != nil {
		base.LogLevel = *cfg.LogLevel
	}
	return base
}

// LoadConfig merges the config file at path over base. A missing file is not
// an error; defaults carry.
func LoadConfig(path string, base AppConfig) (AppConfig, error) {
	if path == "" {
		return base, nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("read config %q: %w", cleanPath, err)
	}
	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %q: %w", cleanPath, err)
	}
	return mergeFileConfig(base, cfg), nil
}

// ApplyOverrides layers command-line overrides on a loaded config.
func ApplyOverrides(base AppConfig, overrides ConfigOverrides) AppConfig {
	return overrides.apply(base)
}
