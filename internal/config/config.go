// Package config loads the daemon configuration from YAML.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Steam   SteamConfig   `yaml:"steam"`
	Data    DataConfig    `yaml:"data"`
	Backup  BackupConfig  `yaml:"backup"`
	Watcher WatcherConfig `yaml:"watcher"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SteamConfig struct {
	RootDir    string `yaml:"root_dir"`
	AccountIDs []int  `yaml:"account_ids"`
}

type DataConfig struct {
	Dir          string `yaml:"dir"`
	DatabasePath string `yaml:"database_path"`
}

type BackupConfig struct {
	MaxSaves int `yaml:"max_saves"`

	// AlwaysBackup disables the unchanged-files check, forcing a new
	// snapshot even when no save file changed since the last one.
	AlwaysBackup bool `yaml:"always_backup"`
}

type WatcherConfig struct {
	Disabled     bool   `yaml:"disabled"`
	PollInterval string `yaml:"poll_interval"`
}

// GetPollInterval parses the watcher poll interval, falling back to 3s.
func (c *WatcherConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// SavesDir returns the directory snapshots are stored under.
func (c *Config) SavesDir() string {
	return filepath.Join(c.Data.Dir, "saves2")
}

func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		setDefaults(&cfg)
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8844
	}
	if cfg.Steam.RootDir == "" {
		cfg.Steam.RootDir = defaultSteamRoot()
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = defaultDataDir()
	}
	if cfg.Data.DatabasePath == "" {
		cfg.Data.DatabasePath = filepath.Join(cfg.Data.Dir, "steamback.db")
	}
	if cfg.Backup.MaxSaves == 0 {
		cfg.Backup.MaxSaves = 50
	}
	if cfg.Watcher.PollInterval == "" {
		cfg.Watcher.PollInterval = "3s"
	}
}

func defaultSteamRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/home/deck/.local/share/Steam"
	}

	candidates := []string{
		filepath.Join(home, ".local", "share", "Steam"),
		filepath.Join(home, ".steam", "steam"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[0]
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "steamback")
}
