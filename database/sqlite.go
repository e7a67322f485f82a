package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID    int64     `bun:"user_id,pk"`
	Username  string    `bun:"username"`
	IsAdmin   bool      `bun:"is_admin"`
	CreatedAt time.Time `bun:"created_at"`
}

type configRow struct {
	bun.BaseModel `bun:"table:config,alias:c"`

	Name      string    `bun:"name,pk"`
	Value     string    `bun:"value"`
	UpdatedAt time.Time `bun:"updated_at"`
}

type sourceRow struct {
	bun.BaseModel `bun:"table:sources,alias:s"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Type         string    `bun:"type"`
	ChatID       *int64    `bun:"chat_id"`
	ChatTitle    string    `bun:"chat_title"`
	ChatUsername string    `bun:"chat_username"`
	IsActive     bool      `bun:"is_active"`
	FilterConfig string    `bun:"filter_config"`
	TopicsConfig *string   `bun:"topics_config"`
	AddedBy      int64     `bun:"added_by"`
	AddedAt      time.Time `bun:"added_at"`
}

type permissionRow struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID        int64 `bun:"id,pk,autoincrement"`
	UserID    int64 `bun:"user_id"`
	SourceID  int64 `bun:"source_id"`
	CanSearch bool  `bun:"can_search"`
}

type messageRow struct {
	bun.BaseModel `bun:"table:archived_messages,alias:am"`

	ID          int64     `bun:"id,pk,autoincrement"`
	SourceID    int64     `bun:"source_id"`
	MessageID   int64     `bun:"message_id"`
	SenderID    int64     `bun:"sender_id"`
	SenderName  string    `bun:"sender_name"`
	MessageText string    `bun:"message_text"`
	MediaType   string    `bun:"media_type"`
	MediaFileID string    `bun:"media_file_id"`
	TopicID     *int      `bun:"topic_id"`
	MessageDate time.Time `bun:"message_date"`
	ArchivedAt  time.Time `bun:"archived_at"`
}

type backupRow struct {
	bun.BaseModel `bun:"table:backup_logs,alias:b"`

	ID        int64     `bun:"id,pk,autoincrement"`
	FileName  string    `bun:"file_name"`
	FileSize  int64     `bun:"file_size"`
	Status    string    `bun:"status"`
	Message   string    `bun:"message"`
	CreatedAt time.Time `bun:"created_at"`
}

// SQLite: встроенная реализация Store на bun.
// Время пишется из Go в UTC с точностью до секунды, иначе сравнение строк ломается.
type SQLite struct {
	db *bun.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite открывает файл БД; ":memory:" живёт, пока открыт store
func NewSQLite(path string, verbose bool) (*SQLite, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.Open")
	}
	// одно соединение: один писатель, и :memory: не теряется
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(verbose),
		bundebug.WithVerbose(verbose),
		bundebug.FromEnv("BUNDEBUG"),
	))

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite.ForeignKeys")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range CreateStatements(sqliteDialect{}) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "sqlite.Migrate: %s", firstLine(stmt))
		}
	}
	for _, c := range DefaultConfig {
		row := configRow{Name: c.Name, Value: c.Value, UpdatedAt: now()}
		if _, err := s.db.NewInsert().Model(&row).On("CONFLICT (name) DO NOTHING").Exec(ctx); err != nil {
			return errors.Wrap(err, "sqlite.Migrate.SeedConfig")
		}
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================
// Config
// ============================================

func (s *SQLite) GetConfig(ctx context.Context, name, def string) (string, error) {
	var row configRow
	err := s.db.NewSelect().Model(&row).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, errors.Wrap(err, "sqlite.GetConfig")
	}
	return row.Value, nil
}

func (s *SQLite) SetConfig(ctx context.Context, name, value string) error {
	row := configRow{Name: name, Value: value, UpdatedAt: now()}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.Wrap(err, "sqlite.SetConfig")
}

// ============================================
// Users
// ============================================

func (r userRow) toModel() User {
	return User{ID: r.UserID, Name: r.Username, IsAdmin: r.IsAdmin, CreatedAt: r.CreatedAt}
}

func (s *SQLite) RegisterUser(ctx context.Context, id int64, name string) error {
	row := userRow{UserID: id, Username: name, CreatedAt: now()}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Exec(ctx)
	return errors.Wrap(err, "sqlite.RegisterUser")
}

func (s *SQLite) GetUser(ctx context.Context, id int64) (*User, error) {
	var row userRow
	if err := s.db.NewSelect().Model(&row).Where("user_id = ?", id).Scan(ctx); err != nil {
		return nil, errors.Wrap(notFound(err), "sqlite.GetUser")
	}
	u := row.toModel()
	return &u, nil
}

func (s *SQLite) ListUsers(ctx context.Context) ([]User, error) {
	var rows []userRow
	err := s.db.NewSelect().Model(&rows).
		Order("is_admin DESC", "created_at DESC", "user_id").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.ListUsers")
	}
	users := make([]User, len(rows))
	for i, r := range rows {
		users[i] = r.toModel()
	}
	return users, nil
}

func (s *SQLite) SetAdmin(ctx context.Context, id int64, admin bool) error {
	res, err := s.db.NewUpdate().Model((*userRow)(nil)).
		Set("is_admin = ?", admin).
		Where("user_id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "sqlite.SetAdmin")
	}
	return requireAffected(res, "sqlite.SetAdmin")
}

func (s *SQLite) EnsureAdmin(ctx context.Context, id int64, name string) error {
	row := userRow{UserID: id, Username: name, IsAdmin: true, CreatedAt: now()}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("is_admin = 1").
		Exec(ctx)
	return errors.Wrap(err, "sqlite.EnsureAdmin")
}

func (s *SQLite) FirstAdmin(ctx context.Context) (*User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).
		Where("is_admin = ?", true).
		Order("created_at", "user_id").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(notFound(err), "sqlite.FirstAdmin")
	}
	u := row.toModel()
	return &u, nil
}

// ============================================
// Sources
// ============================================

func newSourceRow(src *Source) (*sourceRow, error) {
	filterRaw, topicsRaw, err := encodeSourceJSON(src)
	if err != nil {
		return nil, err
	}
	row := &sourceRow{
		ID:           src.ID,
		Type:         string(src.Type),
		ChatID:       src.ChatID,
		ChatTitle:    src.Title,
		ChatUsername: src.Username,
		IsActive:     src.IsActive,
		FilterConfig: string(filterRaw),
		AddedBy:      src.CreatedBy,
		AddedAt:      src.CreatedAt.UTC().Truncate(time.Second),
	}
	if topicsRaw != nil {
		t := string(topicsRaw)
		row.TopicsConfig = &t
	}
	return row, nil
}

func (r *sourceRow) toModel() (Source, error) {
	src := Source{
		ID:        r.ID,
		Type:      SourceType(r.Type),
		ChatID:    r.ChatID,
		Title:     r.ChatTitle,
		Username:  r.ChatUsername,
		IsActive:  r.IsActive,
		CreatedBy: r.AddedBy,
		CreatedAt: r.AddedAt,
	}
	var topicsRaw []byte
	if r.TopicsConfig != nil {
		topicsRaw = []byte(*r.TopicsConfig)
	}
	err := decodeSourceJSON(&src, []byte(r.FilterConfig), topicsRaw)
	return src, err
}

func sourcesFromRows(rows []sourceRow) ([]Source, error) {
	sources := make([]Source, 0, len(rows))
	for i := range rows {
		src, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (s *SQLite) CreateSource(ctx context.Context, src *Source) error {
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now()
	}
	row, err := newSourceRow(src)
	if err != nil {
		return err
	}
	row.ID = 0
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return errors.Wrap(err, "sqlite.CreateSource")
	}
	src.ID = row.ID
	src.CreatedAt = row.AddedAt
	return nil
}

func (s *SQLite) UpdateSource(ctx context.Context, src *Source) error {
	row, err := newSourceRow(src)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().Model(row).
		Column("type", "chat_id", "chat_title", "chat_username", "is_active", "filter_config", "topics_config").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "sqlite.UpdateSource")
	}
	return requireAffected(res, "sqlite.UpdateSource")
}

func (s *SQLite) GetSource(ctx context.Context, id int64) (*Source, error) {
	var row sourceRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, errors.Wrap(notFound(err), "sqlite.GetSource")
	}
	src, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *SQLite) FindActiveSource(ctx context.Context, chatID int64, username string) (*Source, error) {
	username = strings.TrimPrefix(username, "@")
	var row sourceRow
	err := s.db.NewSelect().Model(&row).
		Where("is_active = ?", true).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("chat_id = ?", chatID)
			if username != "" {
				q = q.WhereOr("LOWER(chat_username) = LOWER(?)", username)
			}
			return q
		}).
		Order("id").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(notFound(err), "sqlite.FindActiveSource")
	}
	src, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *SQLite) ListSources(ctx context.Context) ([]Source, error) {
	var rows []sourceRow
	if err := s.db.NewSelect().Model(&rows).Order("id").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "sqlite.ListSources")
	}
	return sourcesFromRows(rows)
}

func (s *SQLite) SetSourceActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.NewUpdate().Model((*sourceRow)(nil)).
		Set("is_active = ?", active).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "sqlite.SetSourceActive")
	}
	return requireAffected(res, "sqlite.SetSourceActive")
}

// DeleteSource удаляет источник вместе с архивом и правами доступа
func (s *SQLite) DeleteSource(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*messageRow)(nil)).Where("source_id = ?", id).Exec(ctx); err != nil {
			return errors.Wrap(err, "sqlite.DeleteSource.Messages")
		}
		if _, err := tx.NewDelete().Model((*permissionRow)(nil)).Where("source_id = ?", id).Exec(ctx); err != nil {
			return errors.Wrap(err, "sqlite.DeleteSource.Permissions")
		}
		res, err := tx.NewDelete().Model((*sourceRow)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "sqlite.DeleteSource")
		}
		return requireAffected(res, "sqlite.DeleteSource")
	})
}

// ============================================
// Permissions
// ============================================

func (s *SQLite) TogglePermission(ctx context.Context, userID, sourceID int64) (bool, error) {
	var canSearch bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row permissionRow
		err := tx.NewSelect().Model(&row).
			Where("user_id = ? AND source_id = ?", userID, sourceID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			row = permissionRow{UserID: userID, SourceID: sourceID, CanSearch: true}
			canSearch = true
			_, err = tx.NewInsert().Model(&row).Exec(ctx)
			return err
		}
		if err != nil {
			return err
		}
		canSearch = !row.CanSearch
		_, err = tx.NewUpdate().Model((*permissionRow)(nil)).
			Set("can_search = ?", canSearch).
			Where("id = ?", row.ID).
			Exec(ctx)
		return err
	})
	return canSearch, errors.Wrap(err, "sqlite.TogglePermission")
}

func (s *SQLite) SetPermission(ctx context.Context, userID, sourceID int64, canSearch bool) error {
	row := permissionRow{UserID: userID, SourceID: sourceID, CanSearch: canSearch}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (user_id, source_id) DO UPDATE").
		Set("can_search = EXCLUDED.can_search").
		Exec(ctx)
	return errors.Wrap(err, "sqlite.SetPermission")
}

func (s *SQLite) ListUserPermissions(ctx context.Context, userID int64) ([]UserPermission, error) {
	var perms []UserPermission
	err := s.db.NewRaw(`
		SELECT p.source_id, s.chat_title AS source_title, p.can_search
		FROM permissions AS p
		JOIN sources AS s ON s.id = p.source_id
		WHERE p.user_id = ?
		ORDER BY s.id`, userID).Scan(ctx, &perms)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.ListUserPermissions")
	}
	return perms, nil
}

func (s *SQLite) ListSourceMembers(ctx context.Context, sourceID int64) ([]SourceMember, error) {
	var rows []struct {
		UserID    int64     `bun:"user_id"`
		Username  string    `bun:"username"`
		IsAdmin   bool      `bun:"is_admin"`
		CreatedAt time.Time `bun:"created_at"`
		CanSearch bool      `bun:"can_search"`
	}
	err := s.db.NewRaw(`
		SELECT u.user_id, u.username, u.is_admin, u.created_at, COALESCE(p.can_search, 0) AS can_search
		FROM users AS u
		LEFT JOIN permissions AS p ON p.user_id = u.user_id AND p.source_id = ?
		WHERE u.is_admin = 0
		ORDER BY u.username, u.user_id`, sourceID).Scan(ctx, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.ListSourceMembers")
	}
	members := make([]SourceMember, len(rows))
	for i, r := range rows {
		members[i] = SourceMember{
			User:      User{ID: r.UserID, Name: r.Username, IsAdmin: r.IsAdmin, CreatedAt: r.CreatedAt},
			CanSearch: r.CanSearch,
		}
	}
	return members, nil
}

func (s *SQLite) AccessibleSources(ctx context.Context, userID int64) ([]Source, error) {
	admin, err := IsAdmin(ctx, s, userID)
	if err != nil {
		return nil, err
	}
	var rows []sourceRow
	q := s.db.NewSelect().Model(&rows).Where("s.is_active = ?", true).Order("s.id")
	if !admin {
		q = q.Join("JOIN permissions AS p ON p.source_id = s.id").
			Where("p.user_id = ?", userID).
			Where("p.can_search = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "sqlite.AccessibleSources")
	}
	return sourcesFromRows(rows)
}

// ============================================
// Archived messages
// ============================================

func (r messageRow) toModel() ArchivedMessage {
	return ArchivedMessage{
		ID:          r.ID,
		SourceID:    r.SourceID,
		MessageID:   r.MessageID,
		SenderID:    r.SenderID,
		SenderName:  r.SenderName,
		Text:        r.MessageText,
		Kind:        ContentKind(r.MediaType),
		MediaFileID: r.MediaFileID,
		TopicID:     r.TopicID,
		MessageDate: r.MessageDate,
		ArchivedAt:  r.ArchivedAt,
	}
}

func newMessageRow(m *ArchivedMessage) messageRow {
	return messageRow{
		ID:          m.ID,
		SourceID:    m.SourceID,
		MessageID:   m.MessageID,
		SenderID:    m.SenderID,
		SenderName:  m.SenderName,
		MessageText: m.Text,
		MediaType:   string(m.Kind),
		MediaFileID: m.MediaFileID,
		TopicID:     m.TopicID,
		MessageDate: m.MessageDate.UTC().Truncate(time.Second),
		ArchivedAt:  m.ArchivedAt.UTC().Truncate(time.Second),
	}
}

func (s *SQLite) UpsertMessage(ctx context.Context, m *ArchivedMessage) error {
	m.ArchivedAt = now()
	row := newMessageRow(m)
	row.ID = 0
	err := s.db.NewInsert().Model(&row).
		On("CONFLICT (source_id, message_id) DO UPDATE").
		Set("sender_id = EXCLUDED.sender_id").
		Set("sender_name = EXCLUDED.sender_name").
		Set("message_text = EXCLUDED.message_text").
		Set("media_type = EXCLUDED.media_type").
		Set("media_file_id = EXCLUDED.media_file_id").
		Set("topic_id = EXCLUDED.topic_id").
		Set("message_date = EXCLUDED.message_date").
		Set("archived_at = EXCLUDED.archived_at").
		Returning("id").
		Scan(ctx, &m.ID)
	return errors.Wrap(err, "sqlite.UpsertMessage")
}

func (s *SQLite) GetMessage(ctx context.Context, id int64) (*ArchivedMessage, error) {
	var row messageRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, errors.Wrap(notFound(err), "sqlite.GetMessage")
	}
	m := row.toModel()

	var title string
	err := s.db.NewSelect().Model((*sourceRow)(nil)).
		Column("chat_title").
		Where("id = ?", row.SourceID).
		Scan(ctx, &title)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "sqlite.GetMessage.Source")
	}
	m.SourceTitle = title
	return &m, nil
}

func (s *SQLite) SearchMessages(ctx context.Context, sourceID int64, preds []Predicate) ([]ArchivedMessage, error) {
	inSQL, inMemory := splitFolded(sqlitePredicates(preds))
	where, args := BuildWhere(sourceID, inSQL)
	var rows []messageRow
	err := s.db.NewSelect().Model(&rows).
		Where(where, args...).
		Order("message_date DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.SearchMessages")
	}
	messages := make([]ArchivedMessage, 0, len(rows))
	for _, r := range rows {
		m := r.toModel()
		if !MatchAll(&m, inMemory) {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// splitFolded отделяет поиск подстроки без учёта регистра:
// LOWER и LIKE в SQLite складывают регистр только для ASCII
func splitFolded(preds []Predicate) (inSQL, inMemory []Predicate) {
	for _, p := range preds {
		switch v := p.(type) {
		case TextMatch:
			inMemory = append(inMemory, v)
		case SenderMatch:
			if v.ID == 0 {
				inMemory = append(inMemory, v)
				continue
			}
			inSQL = append(inSQL, v)
		default:
			inSQL = append(inSQL, p)
		}
	}
	return inSQL, inMemory
}

// sqlitePredicates округляет границы дат до секунд, как в хранимых строках
func sqlitePredicates(preds []Predicate) []Predicate {
	out := make([]Predicate, len(preds))
	for i, p := range preds {
		if dr, ok := p.(DateRange); ok {
			if dr.From != nil {
				from := dr.From.UTC().Truncate(time.Second)
				if from.Before(dr.From.UTC()) {
					from = from.Add(time.Second)
				}
				dr.From = &from
			}
			if dr.To != nil {
				to := dr.To.UTC().Truncate(time.Second)
				dr.To = &to
			}
			p = dr
		}
		out[i] = p
	}
	return out
}

func (s *SQLite) CountMessages(ctx context.Context, sourceID int64) (int, error) {
	n, err := s.db.NewSelect().Model((*messageRow)(nil)).Where("source_id = ?", sourceID).Count(ctx)
	return n, errors.Wrap(err, "sqlite.CountMessages")
}

// ============================================
// Backup logs
// ============================================

func (r backupRow) toModel() BackupLog {
	return BackupLog{
		ID:        r.ID,
		FileName:  r.FileName,
		FileSize:  r.FileSize,
		Status:    BackupStatus(r.Status),
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}

func (s *SQLite) LogBackup(ctx context.Context, l *BackupLog) error {
	row := backupRow{
		FileName:  l.FileName,
		FileSize:  l.FileSize,
		Status:    string(l.Status),
		Message:   l.Message,
		CreatedAt: now(),
	}
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return errors.Wrap(err, "sqlite.LogBackup")
	}
	l.ID = row.ID
	l.CreatedAt = row.CreatedAt
	return nil
}

func (s *SQLite) ListBackups(ctx context.Context, limit int) ([]BackupLog, error) {
	var rows []backupRow
	if err := s.db.NewSelect().Model(&rows).Order("id DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "sqlite.ListBackups")
	}
	logs := make([]BackupLog, len(rows))
	for i, r := range rows {
		logs[i] = r.toModel()
	}
	return logs, nil
}

func (s *SQLite) GetBackup(ctx context.Context, id int64) (*BackupLog, error) {
	var row backupRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, errors.Wrap(notFound(err), "sqlite.GetBackup")
	}
	l := row.toModel()
	return &l, nil
}

// ============================================
// Snapshot
// ============================================

func (s *SQLite) ExportSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		snap     Snapshot
		users    []userRow
		config   []configRow
		sources  []sourceRow
		perms    []permissionRow
		messages []messageRow
		backups  []backupRow
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&users).Order("user_id").Scan(ctx); err != nil {
			return errors.Wrap(err, "users")
		}
		if err := tx.NewSelect().Model(&config).Order("name").Scan(ctx); err != nil {
			return errors.Wrap(err, "config")
		}
		if err := tx.NewSelect().Model(&sources).Order("id").Scan(ctx); err != nil {
			return errors.Wrap(err, "sources")
		}
		if err := tx.NewSelect().Model(&perms).Order("id").Scan(ctx); err != nil {
			return errors.Wrap(err, "permissions")
		}
		if err := tx.NewSelect().Model(&messages).Order("id").Scan(ctx); err != nil {
			return errors.Wrap(err, "archived_messages")
		}
		if err := tx.NewSelect().Model(&backups).Order("id DESC").Scan(ctx); err != nil {
			return errors.Wrap(err, "backup_logs")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.ExportSnapshot")
	}

	for _, r := range users {
		snap.Users = append(snap.Users, r.toModel())
	}
	for _, r := range config {
		snap.Config = append(snap.Config, ConfigEntry{Name: r.Name, Value: r.Value, UpdatedAt: r.UpdatedAt})
	}
	if snap.Sources, err = sourcesFromRows(sources); err != nil {
		return nil, err
	}
	for _, r := range perms {
		snap.Permissions = append(snap.Permissions, Permission{UserID: r.UserID, SourceID: r.SourceID, CanSearch: r.CanSearch})
	}
	for _, r := range messages {
		snap.Messages = append(snap.Messages, r.toModel())
	}
	for _, r := range backups {
		snap.BackupLogs = append(snap.BackupLogs, r.toModel())
	}
	return &snap, nil
}

// RestoreSnapshot заменяет содержимое всех таблиц в одной транзакции
func (s *SQLite) RestoreSnapshot(ctx context.Context, snap *Snapshot) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		names := TableNames()
		for i := len(names) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+names[i]); err != nil {
				return errors.Wrapf(err, "sqlite.RestoreSnapshot.Delete %s", names[i])
			}
		}

		if len(snap.Users) > 0 {
			rows := make([]userRow, len(snap.Users))
			for i, u := range snap.Users {
				rows[i] = userRow{UserID: u.ID, Username: u.Name, IsAdmin: u.IsAdmin, CreatedAt: orNow(u.CreatedAt).Truncate(time.Second)}
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return errors.Wrap(err, "sqlite.RestoreSnapshot.Users")
			}
		}
		if len(snap.Config) > 0 {
			rows := make([]configRow, len(snap.Config))
			for i, c := range snap.Config {
				rows[i] = configRow{Name: c.Name, Value: c.Value, UpdatedAt: orNow(c.UpdatedAt).Truncate(time.Second)}
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return errors.Wrap(err, "sqlite.RestoreSnapshot.Config")
			}
		}
		for i := range snap.Sources {
			src := snap.Sources[i]
			src.CreatedAt = orNow(src.CreatedAt)
			row, err := newSourceRow(&src)
			if err != nil {
				return err
			}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return errors.Wrap(err, "sqlite.RestoreSnapshot.Sources")
			}
		}
		for _, p := range snap.Permissions {
			row := permissionRow{UserID: p.UserID, SourceID: p.SourceID, CanSearch: p.CanSearch}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return errors.Wrap(err, "sqlite.RestoreSnapshot.Permissions")
			}
		}
		for i := range snap.Messages {
			m := snap.Messages[i]
			m.ArchivedAt = orNow(m.ArchivedAt)
			row := newMessageRow(&m)
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return errors.Wrap(err, "sqlite.RestoreSnapshot.Messages")
			}
		}
		for _, l := range snap.BackupLogs {
			row := backupRow{
				ID:        l.ID,
				FileName:  l.FileName,
				FileSize:  l.FileSize,
				Status:    string(l.Status),
				Message:   l.Message,
				CreatedAt: orNow(l.CreatedAt).Truncate(time.Second),
			}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return errors.Wrap(err, "sqlite.RestoreSnapshot.BackupLogs")
			}
		}
		return nil
	})
}
