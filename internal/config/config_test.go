package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pace/internal/common"
)

func TestLoad_Defaults(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local/share/pace/pace.db"), cfg.DatabasePath)
	assert.Equal(t, DefaultServerAddr, cfg.ServerAddr)
	assert.Equal(t, DefaultRefreshSpec, cfg.RefreshSpec)
	assert.NotNil(t, cfg.Location)
	assert.Empty(t, cfg.UserID)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PACE_TEST_DIR", "/tmp/pace-data")

	v := viper.New()
	SetDefaults(v)
	v.Set(KeyDatabasePath, "$PACE_TEST_DIR/pace.db")
	v.Set(KeyUserID, "  agent-7 ")
	v.Set(KeyTimezone, "America/Chicago")
	v.Set(KeyServerAddr, "127.0.0.1:9000")
	v.Set(KeyRefreshSpec, "0 1 * * 1-5")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pace-data/pace.db", cfg.DatabasePath)
	assert.Equal(t, "agent-7", cfg.UserID)
	assert.Equal(t, "America/Chicago", cfg.Location.String())
	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddr)

	user, err := cfg.RequireUser()
	require.NoError(t, err)
	assert.Equal(t, "agent-7", user)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		set  map[string]string
		name string
	}{
		{name: "unknown timezone", set: map[string]string{KeyTimezone: "Mars/Olympus"}},
		{name: "bad cron spec", set: map[string]string{KeyRefreshSpec: "every morning"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestRequireUser_Missing(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.RequireUser()
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestDatabasePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PACE_DIR", "value")
	t.Setenv("PACE_HOME_DB", "~/pace.db")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "tilde only", in: "~", want: home},
		{name: "tilde prefix", in: "~/data/pace.db", want: filepath.Join(home, "data/pace.db")},
		{name: "env var", in: "/srv/$PACE_DIR/db", want: "/srv/value/db"},
		{name: "env var holding tilde", in: "$PACE_HOME_DB", want: filepath.Join(home, "pace.db")},
		{name: "tilde user left alone", in: "~bob/pace.db", want: "~bob/pace.db"},
		{name: "cleaned", in: "/var/lib//pace/../pace.db", want: "/var/lib/pace.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, databasePath(tt.in))
		})
	}
}
