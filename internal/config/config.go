// Package config loads pace's settings from flags, environment and file via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/Veraticus/pace/internal/common"
)

// Viper keys.
const (
	KeyDatabasePath = "database.path"
	KeyUserID       = "user.id"
	KeyTimezone     = "timezone"
	KeyServerAddr   = "server.addr"
	KeyRefreshSpec  = "scheduler.refresh_spec"
	KeyLogLevel     = "logging.level"
	KeyLogFormat    = "logging.format"
)

// Defaults.
const (
	DefaultDatabasePath = "~/.local/share/pace/pace.db"
	DefaultServerAddr   = ":8080"
	DefaultRefreshSpec  = "5 0 * * *"
	DefaultTimezone     = "Local"
)

// Config is the typed application configuration.
type Config struct {
	Location     *time.Location
	DatabasePath string
	UserID       string
	ServerAddr   string
	RefreshSpec  string
	Timezone     string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyServerAddr, DefaultServerAddr)
	v.SetDefault(KeyRefreshSpec, DefaultRefreshSpec)
	v.SetDefault(KeyTimezone, DefaultTimezone)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads the configuration from v, applying defaults for unset keys.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath: v.GetString(KeyDatabasePath),
		UserID:       strings.TrimSpace(v.GetString(KeyUserID)),
		ServerAddr:   v.GetString(KeyServerAddr),
		RefreshSpec:  v.GetString(KeyRefreshSpec),
		Timezone:     v.GetString(KeyTimezone),
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}
	if cfg.DatabasePath != ":memory:" {
		cfg.DatabasePath = databasePath(cfg.DatabasePath)
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = DefaultServerAddr
	}
	if cfg.RefreshSpec == "" {
		cfg.RefreshSpec = DefaultRefreshSpec
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// databasePath resolves $VARS and a leading ~ in a configured database path.
// A ~ stays literal when there is no home directory.
func databasePath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return filepath.Clean(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// Validate checks the configuration and resolves the timezone.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %w", common.ErrInvalidConfig, c.Timezone, err)
	}
	c.Location = loc

	if _, err := cron.ParseStandard(c.RefreshSpec); err != nil {
		return fmt.Errorf("%w: scheduler.refresh_spec %q: %w", common.ErrInvalidConfig, c.RefreshSpec, err)
	}
	return nil
}

// RequireUser returns the configured user id or an error explaining how to set one.
func (c *Config) RequireUser() (string, error) {
	if c.UserID == "" {
		return "", fmt.Errorf("%w: no user set; pass --user or set user.id", common.ErrMissingConfig)
	}
	return c.UserID, nil
}
