package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	BotToken string `mapstructure:"bot_token"`
	// Строкой, чтобы отличить пустое значение от некорректного
	RawAdminID string `mapstructure:"admin_id"`
	AdminID    int64  `mapstructure:"-"`

	DBDriver    string `mapstructure:"db_driver"`
	DatabaseURL string `mapstructure:"database_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	// Логировать SQL-запросы SQLite (bundebug)
	SQLDebug bool `mapstructure:"sql_debug"`

	BackupDir  string `mapstructure:"backup_dir"`
	BackupKeep int    `mapstructure:"backup_keep"`
	ExportDir  string `mapstructure:"export_dir"`

	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SchedulerTick time.Duration `mapstructure:"scheduler_tick"`

	LogLevel        string `mapstructure:"log_level"`
	RawLogChannelID string `mapstructure:"log_channel_id"`
	LogChannelID    int64  `mapstructure:"-"`
}

var defaults = map[string]any{
	"bot_token":      "",
	"admin_id":       "",
	"db_driver":      DriverSQLite,
	"database_url":   "",
	"sqlite_path":    "archive_bot.db",
	"sql_debug":      false,
	"backup_dir":     "backups",
	"backup_keep":    10,
	"export_dir":     "",
	"session_ttl":    "30m",
	"scheduler_tick": "1s",
	"log_level":      "info",
	"log_channel_id": "",
}

// Load читает .env (если есть), переменные окружения и необязательный файл
// конфигурации. Переменные окружения важнее файла.
func Load(configPath string) (*Config, error) {
	// отсутствие .env не ошибка
	_ = godotenv.Load()

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	v.AutomaticEnv()
	bindEnvs(v)

	if configPath == "" {
		configPath = v.GetString("config_file")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func bindEnvs(v *viper.Viper) {
	for k := range defaults {
		_ = v.BindEnv(k, strings.ToUpper(k))
	}
	_ = v.BindEnv("config_file", "CONFIG_FILE")
}

// Validate проверяет обязательные поля и разбирает числовые ID
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	id, err := parseOptionalID(c.RawAdminID)
	if err != nil {
		return fmt.Errorf("ADMIN_ID must be a numeric user id: %w", err)
	}
	c.AdminID = id

	ch, err := parseOptionalID(c.RawLogChannelID)
	if err != nil {
		return fmt.Errorf("LOG_CHANNEL_ID must be a numeric chat id: %w", err)
	}
	c.LogChannelID = ch

	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	if c.BackupKeep < 0 {
		return fmt.Errorf("BACKUP_KEEP must not be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SchedulerTick <= 0 {
		return fmt.Errorf("SCHEDULER_TICK must be positive")
	}
	return nil
}

func parseOptionalID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
