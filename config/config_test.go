package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv удаляет переменные окружения конфига на время теста
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{"CONFIG_FILE"}
	for k := range defaults {
		keys = append(keys, strings.ToUpper(k))
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "archive_bot.db", cfg.SQLitePath)
	assert.Equal(t, "backups", cfg.BackupDir)
	assert.Equal(t, 10, cfg.BackupKeep)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, time.Second, cfg.SchedulerTick)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.AdminID)
	assert.Zero(t, cfg.LogChannelID)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("BACKUP_KEEP", "3")
	t.Setenv("LOG_CHANNEL_ID", "-1001234")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.AdminID)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.BackupKeep)
	assert.Equal(t, int64(-1001234), cfg.LogChannelID)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot_token: file-token\nbackup_dir: /var/backups\nbackup_keep: 4\n"), 0o644))
	t.Setenv("BACKUP_KEEP", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.BotToken)
	assert.Equal(t, "/var/backups", cfg.BackupDir)
	// окружение важнее файла
	assert.Equal(t, 7, cfg.BackupKeep)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			BotToken:      "t",
			DBDriver:      DriverSQLite,
			SQLitePath:    "x.db",
			SessionTTL:    time.Minute,
			SchedulerTick: time.Second,
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cases := map[string]func(c *Config){
		"missing token":    func(c *Config) { c.BotToken = " " },
		"bad admin id":     func(c *Config) { c.RawAdminID = "admin" },
		"bad log channel":  func(c *Config) { c.RawLogChannelID = "@logs" },
		"unknown driver":   func(c *Config) { c.DBDriver = "mysql" },
		"postgres no dsn":  func(c *Config) { c.DBDriver = DriverPostgres },
		"negative keep":    func(c *Config) { c.BackupKeep = -1 },
		"zero session ttl": func(c *Config) { c.SessionTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
