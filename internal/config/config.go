// Package config loads everlist configuration from file and environment.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the resolved client configuration.
type Config struct {
	// ServerURL is the base URL of the remote log service.
	ServerURL string `mapstructure:"server_url"`

	// User stamps every event this client writes.
	User string `mapstructure:"user"`

	// SnapshotPath is the durable fallback database file.
	SnapshotPath string `mapstructure:"snapshot_path"`

	// PollInterval is the daemon resync interval.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// DashboardPort is where the dashboard server listens.
	DashboardPort int `mapstructure:"dashboard_port"`

	// LogFile receives daemon logs (rotated). Empty means stderr.
	LogFile string `mapstructure:"log_file"`
}

func defaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("server_url", "http://localhost:4044")
	v.SetDefault("user", os.Getenv("USER"))
	v.SetDefault("snapshot_path", filepath.Join(home, ".everlist", "snapshots.db"))
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("dashboard_port", 8080)
	v.SetDefault("log_file", "")
}

// Load reads configuration from path (optional) with EVERLIST_*
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("EVERLIST")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &cfg, nil
}

// Watch reloads the config file whenever it changes and hands the new
// value to onChange. It blocks until stop is closed. Reload failures are
// logged and the previous configuration stays in effect.
func Watch(path string, logger *log.Logger, stop <-chan struct{}, onChange func(*Config)) error {
	if logger == nil {
		logger = log.New(os.Stderr, "[config] ", log.LstdFlags)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	for {
		select {
		case <-stop:
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Printf("config reload failed: %v", err)
				continue
			}
			logger.Printf("config reloaded from %s", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watcher error: %v", err)
		}
	}
}
