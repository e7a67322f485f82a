package database

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// Ключи таблицы config
const (
	ConfigBotEnabled      = "bot_enabled"
	ConfigAdminChatID     = "admin_chat_id"
	ConfigBackupInterval  = "backup_interval"
	ConfigBackupChannelID = "backup_channel_id"
)

// DefaultConfig записывается при миграции, существующие значения не трогаем
var DefaultConfig = []ConfigEntry{
	{Name: ConfigBotEnabled, Value: "true"},
	{Name: ConfigAdminChatID, Value: ""},
	{Name: ConfigBackupInterval, Value: "1440"},
	{Name: ConfigBackupChannelID, Value: ""},
}

// Store реализуют Postgres и SQLite
type Store interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Config
	GetConfig(ctx context.Context, name, def string) (string, error)
	SetConfig(ctx context.Context, name, value string) error

	// Users
	RegisterUser(ctx context.Context, id int64, name string) error
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetAdmin(ctx context.Context, id int64, admin bool) error
	EnsureAdmin(ctx context.Context, id int64, name string) error
	FirstAdmin(ctx context.Context) (*User, error)

	// Sources
	CreateSource(ctx context.Context, s *Source) error
	UpdateSource(ctx context.Context, s *Source) error
	GetSource(ctx context.Context, id int64) (*Source, error)
	FindActiveSource(ctx context.Context, chatID int64, username string) (*Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	SetSourceActive(ctx context.Context, id int64, active bool) error
	DeleteSource(ctx context.Context, id int64) error

	// Permissions
	TogglePermission(ctx context.Context, userID, sourceID int64) (bool, error)
	SetPermission(ctx context.Context, userID, sourceID int64, canSearch bool) error
	ListUserPermissions(ctx context.Context, userID int64) ([]UserPermission, error)
	ListSourceMembers(ctx context.Context, sourceID int64) ([]SourceMember, error)
	AccessibleSources(ctx context.Context, userID int64) ([]Source, error)

	// Archive
	UpsertMessage(ctx context.Context, m *ArchivedMessage) error
	GetMessage(ctx context.Context, id int64) (*ArchivedMessage, error)
	SearchMessages(ctx context.Context, sourceID int64, preds []Predicate) ([]ArchivedMessage, error)
	CountMessages(ctx context.Context, sourceID int64) (int, error)

	// Backups
	LogBackup(ctx context.Context, l *BackupLog) error
	ListBackups(ctx context.Context, limit int) ([]BackupLog, error)
	GetBackup(ctx context.Context, id int64) (*BackupLog, error)

	// Snapshot
	ExportSnapshot(ctx context.Context) (*Snapshot, error)
	RestoreSnapshot(ctx context.Context, s *Snapshot) error
}

// IsAdmin возвращает false для неизвестного пользователя
func IsAdmin(ctx context.Context, s Store, userID int64) (bool, error) {
	u, err := s.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

func IsBotEnabled(ctx context.Context, s Store) bool {
	v, err := s.GetConfig(ctx, ConfigBotEnabled, "true")
	if err != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
