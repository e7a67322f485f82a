package database

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Postgres: реализация Store поверх pgx
type Postgres struct {
	Pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.New")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres.Ping")
	}
	return &Postgres{Pool: pool}, nil
}

func (db *Postgres) Close() error {
	db.Pool.Close()
	return nil
}

func (db *Postgres) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range CreateStatements(postgresDialect{}) {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "postgres.Migrate: %s", firstLine(stmt))
		}
	}
	for _, c := range DefaultConfig {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO config (name, value) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			c.Name, c.Value)
		if err != nil {
			return errors.Wrap(err, "postgres.Migrate.SeedConfig")
		}
	}
	return nil
}

// ============================================
// Config
// ============================================

func (db *Postgres) GetConfig(ctx context.Context, name, def string) (string, error) {
	var value string
	err := db.Pool.QueryRow(ctx, `SELECT value FROM config WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, errors.Wrap(err, "postgres.GetConfig")
	}
	return value, nil
}

func (db *Postgres) SetConfig(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO config (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	_, err := db.Pool.Exec(ctx, query, name, value)
	return errors.Wrap(err, "postgres.SetConfig")
}

// ============================================
// Users
// ============================================

func (db *Postgres) RegisterUser(ctx context.Context, id int64, name string) error {
	query := `
		INSERT INTO users (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username`
	_, err := db.Pool.Exec(ctx, query, id, name)
	return errors.Wrap(err, "postgres.RegisterUser")
}

func (db *Postgres) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `SELECT user_id, username, is_admin, created_at FROM users WHERE user_id = $1`

	var u User
	err := db.Pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres.GetUser")
	}
	return &u, nil
}

func (db *Postgres) ListUsers(ctx context.Context) ([]User, error) {
	query := `
		SELECT user_id, username, is_admin, created_at
		FROM users
		ORDER BY is_admin DESC, created_at DESC, user_id`
	return db.queryUsers(ctx, query)
}

func (db *Postgres) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.queryUsers")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "postgres.queryUsers.Scan")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *Postgres) SetAdmin(ctx context.Context, id int64, admin bool) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE users SET is_admin = $1 WHERE user_id = $2`, admin, id)
	if err != nil {
		return errors.Wrap(err, "postgres.SetAdmin")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) EnsureAdmin(ctx context.Context, id int64, name string) error {
	query := `
		INSERT INTO users (user_id, username, is_admin)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET is_admin = TRUE`
	_, err := db.Pool.Exec(ctx, query, id, name)
	return errors.Wrap(err, "postgres.EnsureAdmin")
}

func (db *Postgres) FirstAdmin(ctx context.Context) (*User, error) {
	query := `
		SELECT user_id, username, is_admin, created_at
		FROM users
		WHERE is_admin = TRUE
		ORDER BY created_at, user_id
		LIMIT 1`

	var u User
	err := db.Pool.QueryRow(ctx, query).Scan(&u.ID, &u.Name, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres.FirstAdmin")
	}
	return &u, nil
}

// ============================================
// Sources
// ============================================

const sourceColumns = `id, type, chat_id, chat_title, chat_username, is_active,
	filter_config, topics_config, added_by, added_at`

func scanSource(row pgx.Row) (*Source, error) {
	var (
		s          Source
		filterRaw  []byte
		topicsRaw  []byte
		sourceType string
	)
	err := row.Scan(&s.ID, &sourceType, &s.ChatID, &s.Title, &s.Username, &s.IsActive,
		&filterRaw, &topicsRaw, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Type = SourceType(sourceType)
	if err := decodeSourceJSON(&s, filterRaw, topicsRaw); err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *Postgres) CreateSource(ctx context.Context, s *Source) error {
	filterRaw, topicsRaw, err := encodeSourceJSON(s)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sources (type, chat_id, chat_title, chat_username, is_active,
		                     filter_config, topics_config, added_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, added_at`
	err = db.Pool.QueryRow(ctx, query, string(s.Type), s.ChatID, s.Title, s.Username, s.IsActive,
		filterRaw, topicsRaw, s.CreatedBy).Scan(&s.ID, &s.CreatedAt)
	return errors.Wrap(err, "postgres.CreateSource")
}

func (db *Postgres) UpdateSource(ctx context.Context, s *Source) error {
	filterRaw, topicsRaw, err := encodeSourceJSON(s)
	if err != nil {
		return err
	}
	query := `
		UPDATE sources
		SET type = $1, chat_id = $2, chat_title = $3, chat_username = $4, is_active = $5,
		    filter_config = $6, topics_config = $7
		WHERE id = $8`
	tag, err := db.Pool.Exec(ctx, query, string(s.Type), s.ChatID, s.Title, s.Username, s.IsActive,
		filterRaw, topicsRaw, s.ID)
	if err != nil {
		return errors.Wrap(err, "postgres.UpdateSource")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) GetSource(ctx context.Context, id int64) (*Source, error) {
	s, err := scanSource(db.Pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres.GetSource")
	}
	return s, nil
}

func (db *Postgres) FindActiveSource(ctx context.Context, chatID int64, username string) (*Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE is_active = TRUE
		  AND (chat_id = $1 OR ($2 <> '' AND LOWER(chat_username) = LOWER($2)))
		ORDER BY id
		LIMIT 1`
	s, err := scanSource(db.Pool.QueryRow(ctx, query, chatID, strings.TrimPrefix(username, "@")))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres.FindActiveSource")
	}
	return s, nil
}

func (db *Postgres) ListSources(ctx context.Context) ([]Source, error) {
	return db.querySources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

func (db *Postgres) querySources(ctx context.Context, query string, args ...any) ([]Source, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.querySources")
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, errors.Wrap(err, "postgres.querySources.Scan")
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

func (db *Postgres) SetSourceActive(ctx context.Context, id int64, active bool) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE sources SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return errors.Wrap(err, "postgres.SetSourceActive")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSource удаляет источник вместе с архивом и правами доступа
func (db *Postgres) DeleteSource(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM archived_messages WHERE source_id = $1`, id); err != nil {
			return errors.Wrap(err, "postgres.DeleteSource.Messages")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM permissions WHERE source_id = $1`, id); err != nil {
			return errors.Wrap(err, "postgres.DeleteSource.Permissions")
		}
		tag, err := tx.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "postgres.DeleteSource")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ============================================
// Permissions
// ============================================

func (db *Postgres) TogglePermission(ctx context.Context, userID, sourceID int64) (bool, error) {
	query := `
		INSERT INTO permissions (user_id, source_id, can_search)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (user_id, source_id) DO UPDATE SET can_search = NOT permissions.can_search
		RETURNING can_search`

	var canSearch bool
	err := db.Pool.QueryRow(ctx, query, userID, sourceID).Scan(&canSearch)
	return canSearch, errors.Wrap(err, "postgres.TogglePermission")
}

func (db *Postgres) SetPermission(ctx context.Context, userID, sourceID int64, canSearch bool) error {
	query := `
		INSERT INTO permissions (user_id, source_id, can_search)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, source_id) DO UPDATE SET can_search = EXCLUDED.can_search`
	_, err := db.Pool.Exec(ctx, query, userID, sourceID, canSearch)
	return errors.Wrap(err, "postgres.SetPermission")
}

func (db *Postgres) ListUserPermissions(ctx context.Context, userID int64) ([]UserPermission, error) {
	query := `
		SELECT p.source_id, s.chat_title, p.can_search
		FROM permissions p
		JOIN sources s ON s.id = p.source_id
		WHERE p.user_id = $1
		ORDER BY s.id`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ListUserPermissions")
	}
	defer rows.Close()

	var perms []UserPermission
	for rows.Next() {
		var p UserPermission
		if err := rows.Scan(&p.SourceID, &p.SourceTitle, &p.CanSearch); err != nil {
			return nil, errors.Wrap(err, "postgres.ListUserPermissions.Scan")
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (db *Postgres) ListSourceMembers(ctx context.Context, sourceID int64) ([]SourceMember, error) {
	query := `
		SELECT u.user_id, u.username, u.is_admin, u.created_at, COALESCE(p.can_search, FALSE)
		FROM users u
		LEFT JOIN permissions p ON p.user_id = u.user_id AND p.source_id = $1
		WHERE u.is_admin = FALSE
		ORDER BY u.username, u.user_id`
	rows, err := db.Pool.Query(ctx, query, sourceID)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ListSourceMembers")
	}
	defer rows.Close()

	var members []SourceMember
	for rows.Next() {
		var m SourceMember
		if err := rows.Scan(&m.User.ID, &m.User.Name, &m.User.IsAdmin, &m.User.CreatedAt, &m.CanSearch); err != nil {
			return nil, errors.Wrap(err, "postgres.ListSourceMembers.Scan")
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (db *Postgres) AccessibleSources(ctx context.Context, userID int64) ([]Source, error) {
	admin, err := IsAdmin(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if admin {
		return db.querySources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE is_active = TRUE ORDER BY id`)
	}
	query := `
		SELECT s.id, s.type, s.chat_id, s.chat_title, s.chat_username, s.is_active,
		       s.filter_config, s.topics_config, s.added_by, s.added_at
		FROM sources s
		JOIN permissions p ON p.source_id = s.id
		WHERE p.user_id = $1 AND p.can_search = TRUE AND s.is_active = TRUE
		ORDER BY s.id`
	return db.querySources(ctx, query, userID)
}

// ============================================
// Archived messages
// ============================================

const messageColumns = `id, source_id, message_id, sender_id, sender_name, message_text,
	media_type, media_file_id, topic_id, message_date, archived_at`

func scanMessage(row pgx.Row, extra ...any) (*ArchivedMessage, error) {
	var (
		m    ArchivedMessage
		kind string
	)
	dest := []any{&m.ID, &m.SourceID, &m.MessageID, &m.SenderID, &m.SenderName, &m.Text,
		&kind, &m.MediaFileID, &m.TopicID, &m.MessageDate, &m.ArchivedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.Kind = ContentKind(kind)
	return &m, nil
}

func (db *Postgres) UpsertMessage(ctx context.Context, m *ArchivedMessage) error {
	query := `
		INSERT INTO archived_messages (source_id, message_id, sender_id, sender_name, message_text,
		                               media_type, media_file_id, topic_id, message_date, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (source_id, message_id) DO UPDATE SET
			sender_id = EXCLUDED.sender_id,
			sender_name = EXCLUDED.sender_name,
			message_text = EXCLUDED.message_text,
			media_type = EXCLUDED.media_type,
			media_file_id = EXCLUDED.media_file_id,
			topic_id = EXCLUDED.topic_id,
			message_date = EXCLUDED.message_date,
			archived_at = NOW()
		RETURNING id, archived_at`
	err := db.Pool.QueryRow(ctx, query, m.SourceID, m.MessageID, m.SenderID, m.SenderName, m.Text,
		string(m.Kind), m.MediaFileID, m.TopicID, m.MessageDate.UTC()).Scan(&m.ID, &m.ArchivedAt)
	return errors.Wrap(err, "postgres.UpsertMessage")
}

func (db *Postgres) GetMessage(ctx context.Context, id int64) (*ArchivedMessage, error) {
	query := `
		SELECT am.id, am.source_id, am.message_id, am.sender_id, am.sender_name, am.message_text,
		       am.media_type, am.media_file_id, am.topic_id, am.message_date, am.archived_at,
		       COALESCE(s.chat_title, '')
		FROM archived_messages am
		LEFT JOIN sources s ON s.id = am.source_id
		WHERE am.id = $1`

	var title string
	m, err := scanMessage(db.Pool.QueryRow(ctx, query, id), &title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres.GetMessage")
	}
	m.SourceTitle = title
	return m, nil
}

func (db *Postgres) SearchMessages(ctx context.Context, sourceID int64, preds []Predicate) ([]ArchivedMessage, error) {
	where, args := BuildWhere(sourceID, preds)
	query := `SELECT ` + messageColumns + ` FROM archived_messages WHERE ` + rebindDollar(where, 0) +
		` ORDER BY message_date DESC, id DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "postgres.SearchMessages: %s %v", query, args)
	}
	defer rows.Close()

	var messages []ArchivedMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "postgres.SearchMessages.Scan")
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (db *Postgres) CountMessages(ctx context.Context, sourceID int64) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM archived_messages WHERE source_id = $1`, sourceID).Scan(&n)
	return n, errors.Wrap(err, "postgres.CountMessages")
}

// ============================================
// Backup logs
// ============================================

func (db *Postgres) LogBackup(ctx context.Context, l *BackupLog) error {
	query := `
		INSERT INTO backup_logs (file_name, file_size, status, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := db.Pool.QueryRow(ctx, query, l.FileName, l.FileSize, string(l.Status), l.Message).
		Scan(&l.ID, &l.CreatedAt)
	return errors.Wrap(err, "postgres.LogBackup")
}

const backupColumns = `id, file_name, file_size, status, message, created_at`

func scanBackup(row pgx.Row) (*BackupLog, error) {
	var (
		l      BackupLog
		status string
	)
	if err := row.Scan(&l.ID, &l.FileName, &l.FileSize, &status, &l.Message, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Status = BackupStatus(status)
	return &l, nil
}

func (db *Postgres) ListBackups(ctx context.Context, limit int) ([]BackupLog, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+backupColumns+` FROM backup_logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ListBackups")
	}
	defer rows.Close()

	var logs []BackupLog
	for rows.Next() {
		l, err := scanBackup(rows)
		if err != nil {
			return nil, errors.Wrap(err, "postgres.ListBackups.Scan")
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func (db *Postgres) GetBackup(ctx context.Context, id int64) (*BackupLog, error) {
	l, err := scanBackup(db.Pool.QueryRow(ctx, `SELECT `+backupColumns+` FROM backup_logs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres.GetBackup")
	}
	return l, nil
}

// ============================================
// Snapshot
// ============================================

func (db *Postgres) ExportSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Users, err = db.queryUsers(ctx, `SELECT user_id, username, is_admin, created_at FROM users ORDER BY user_id`); err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `SELECT name, value, updated_at FROM config ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ExportSnapshot.Config")
	}
	snap.Config, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ConfigEntry, error) {
		var c ConfigEntry
		err := row.Scan(&c.Name, &c.Value, &c.UpdatedAt)
		return c, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ExportSnapshot.Config")
	}

	if snap.Sources, err = db.ListSources(ctx); err != nil {
		return nil, err
	}

	rows, err = db.Pool.Query(ctx, `SELECT user_id, source_id, can_search FROM permissions ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ExportSnapshot.Permissions")
	}
	snap.Permissions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Permission, error) {
		var p Permission
		err := row.Scan(&p.UserID, &p.SourceID, &p.CanSearch)
		return p, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ExportSnapshot.Permissions")
	}

	rows, err = db.Pool.Query(ctx, `SELECT `+messageColumns+` FROM archived_messages ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ExportSnapshot.Messages")
	}
	snap.Messages, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ArchivedMessage, error) {
		m, err := scanMessage(row)
		if err != nil {
			return ArchivedMessage{}, err
		}
		return *m, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "postgres.ExportSnapshot.Messages")
	}

	if snap.BackupLogs, err = db.ListBackups(ctx, 1<<30); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RestoreSnapshot заменяет содержимое всех таблиц в одной транзакции
func (db *Postgres) RestoreSnapshot(ctx context.Context, snap *Snapshot) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		names := TableNames()
		for i := len(names) - 1; i >= 0; i-- {
			if _, err := tx.Exec(ctx, `DELETE FROM `+names[i]); err != nil {
				return errors.Wrapf(err, "postgres.RestoreSnapshot.Delete %s", names[i])
			}
		}

		for _, u := range snap.Users {
			_, err := tx.Exec(ctx, `INSERT INTO users (user_id, username, is_admin, created_at) VALUES ($1, $2, $3, $4)`,
				u.ID, u.Name, u.IsAdmin, orNow(u.CreatedAt))
			if err != nil {
				return errors.Wrap(err, "postgres.RestoreSnapshot.Users")
			}
		}
		for _, c := range snap.Config {
			_, err := tx.Exec(ctx, `INSERT INTO config (name, value, updated_at) VALUES ($1, $2, $3)`,
				c.Name, c.Value, orNow(c.UpdatedAt))
			if err != nil {
				return errors.Wrap(err, "postgres.RestoreSnapshot.Config")
			}
		}
		for i := range snap.Sources {
			s := &snap.Sources[i]
			filterRaw, topicsRaw, err := encodeSourceJSON(s)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO sources (id, type, chat_id, chat_title, chat_username, is_active,
				                     filter_config, topics_config, added_by, added_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				s.ID, string(s.Type), s.ChatID, s.Title, s.Username, s.IsActive,
				filterRaw, topicsRaw, s.CreatedBy, orNow(s.CreatedAt))
			if err != nil {
				return errors.Wrap(err, "postgres.RestoreSnapshot.Sources")
			}
		}
		for _, p := range snap.Permissions {
			_, err := tx.Exec(ctx, `INSERT INTO permissions (user_id, source_id, can_search) VALUES ($1, $2, $3)`,
				p.UserID, p.SourceID, p.CanSearch)
			if err != nil {
				return errors.Wrap(err, "postgres.RestoreSnapshot.Permissions")
			}
		}

		_, err := tx.CopyFrom(ctx, pgx.Identifier{"archived_messages"},
			[]string{"id", "source_id", "message_id", "sender_id", "sender_name", "message_text",
				"media_type", "media_file_id", "topic_id", "message_date", "archived_at"},
			pgx.CopyFromSlice(len(snap.Messages), func(i int) ([]any, error) {
				m := snap.Messages[i]
				return []any{m.ID, m.SourceID, m.MessageID, m.SenderID, m.SenderName, m.Text,
					string(m.Kind), m.MediaFileID, m.TopicID, m.MessageDate.UTC(), orNow(m.ArchivedAt)}, nil
			}))
		if err != nil {
			return errors.Wrap(err, "postgres.RestoreSnapshot.Messages")
		}

		for _, l := range snap.BackupLogs {
			_, err := tx.Exec(ctx, `
				INSERT INTO backup_logs (id, file_name, file_size, status, message, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				l.ID, l.FileName, l.FileSize, string(l.Status), l.Message, orNow(l.CreatedAt))
			if err != nil {
				return errors.Wrap(err, "postgres.RestoreSnapshot.BackupLogs")
			}
		}

		for _, table := range []string{"sources", "permissions", "archived_messages", "backup_logs"} {
			_, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('`+table+`', 'id'),
				COALESCE((SELECT MAX(id) FROM `+table+`), 1),
				(SELECT MAX(id) IS NOT NULL FROM `+table+`))`)
			if err != nil {
				return errors.Wrapf(err, "postgres.RestoreSnapshot.Sequence %s", table)
			}
		}
		return nil
	})
}

// ============================================
// Общие хелперы
// ============================================

func encodeSourceJSON(s *Source) (filterRaw []byte, topicsRaw []byte, err error) {
	filterRaw, err = json.Marshal(s.Filter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode filter_config")
	}
	if s.Topics != nil {
		topicsRaw, err = json.Marshal(s.Topics)
		if err != nil {
			return nil, nil, errors.Wrap(err, "encode topics_config")
		}
	}
	return filterRaw, topicsRaw, nil
}

func decodeSourceJSON(s *Source, filterRaw, topicsRaw []byte) error {
	s.Filter = DefaultFilterConfig()
	if len(filterRaw) > 0 {
		if err := json.Unmarshal(filterRaw, &s.Filter); err != nil {
			return errors.Wrap(err, "decode filter_config")
		}
	}
	if len(topicsRaw) > 0 && string(topicsRaw) != "null" {
		var t TopicList
		if err := json.Unmarshal(topicsRaw, &t); err != nil {
			return errors.Wrap(err, "decode topics_config")
		}
		s.Topics = &t
	}
	return nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
