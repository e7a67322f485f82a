package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg_archive_bot/database"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(t *testing.T) *database.SQLite {
	t.Helper()
	s, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestManager(t *testing.T, store Store, keep int) (*Manager, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(store, filepath.Join(t.TempDir(), "backups"), keep)
	m.now = c.now
	return m, c
}

func seed(t *testing.T, s *database.SQLite) *database.Source {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.EnsureAdmin(ctx, 1, "Admin_1"))
	require.NoError(t, s.RegisterUser(ctx, 2, "bob"))

	chatID := int64(-1001234567890)
	src := &database.Source{
		Type:      database.SourceChannel,
		ChatID:    &chatID,
		Title:     "News",
		IsActive:  true,
		Filter:    database.DefaultFilterConfig(),
		CreatedBy: 1,
	}
	src.Filter.Keywords = []string{"go"}
	require.NoError(t, s.CreateSource(ctx, src))
	require.NoError(t, s.SetPermission(ctx, 2, src.ID, true))
	require.NoError(t, s.UpsertMessage(ctx, &database.ArchivedMessage{
		SourceID:    src.ID,
		MessageID:   10,
		SenderID:    7,
		SenderName:  "Alice",
		Text:        "go go go",
		Kind:        database.KindText,
		MessageDate: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.SetConfig(ctx, database.ConfigBackupInterval, "60"))
	return src
}

func TestCreateAndRestore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seed(t, s)
	m, _ := newTestManager(t, s, 5)

	a, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240601_120000.zip", a.Name)
	assert.Positive(t, a.Size)
	assert.Equal(t, 1, a.Manifest.Tables["archived_messages"])
	assert.Equal(t, 2, a.Manifest.Tables["users"])
	require.NotNil(t, a.Log)
	assert.Equal(t, database.BackupSuccess, a.Log.Status)

	zr, err := zip.OpenReader(a.Path)
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	zr.Close()
	assert.Contains(t, names, "database/sources.json")
	assert.Contains(t, names, "config.json")
	assert.Contains(t, names, "manifest.json")

	// ломаем данные и восстанавливаем
	require.NoError(t, s.DeleteSource(ctx, src.ID))
	require.NoError(t, s.SetConfig(ctx, database.ConfigBackupInterval, "0"))

	manifest, err := m.Restore(ctx, a.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Tables["sources"])

	got, err := s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "News", got.Title)
	assert.Equal(t, []string{"go"}, got.Filter.Keywords)

	n, err := s.CountMessages(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := s.GetConfig(ctx, database.ConfigBackupInterval, "")
	require.NoError(t, err)
	assert.Equal(t, "60", v)

	perms, err := s.ListUserPermissions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.True(t, perms[0].CanSearch)
}

func TestRestoreRejectsTamperedArchive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s)
	m, _ := newTestManager(t, s, 5)

	snap, err := s.ExportSnapshot(ctx)
	require.NoError(t, err)
	data, _, err := encode(snap, time.Now())
	require.NoError(t, err)
	good := filepath.Join(t.TempDir(), "good.zip")
	require.NoError(t, os.WriteFile(good, data, 0o644))

	// тот же манифест, но изменённая таблица
	zr, err := zip.OpenReader(good)
	require.NoError(t, err)
	defer zr.Close()

	bad := filepath.Join(t.TempDir(), "bad.zip")
	f, err := os.Create(bad)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, entry := range zr.File {
		w, err := zw.Create(entry.Name)
		require.NoError(t, err)
		if entry.Name == "database/users.json" {
			payload, _ := json.Marshal([]database.User{{ID: 99, Name: "mallory", IsAdmin: true}})
			_, err = w.Write(payload)
			require.NoError(t, err)
			continue
		}
		content, err := readEntry(entry)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = m.Restore(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArchive))

	_, err = s.GetUser(ctx, 99)
	assert.ErrorIs(t, err, database.ErrNotFound)

	notZip := filepath.Join(t.TempDir(), "plain.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("hello"), 0o644))
	_, err = m.Restore(ctx, notZip)
	assert.True(t, errors.Is(err, ErrInvalidArchive))
}

func TestRetentionAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s)
	m, c := newTestManager(t, s, 2)

	var last *Archive
	for i := 0; i < 3; i++ {
		a, err := m.Create(ctx)
		require.NoError(t, err)
		last = a
		c.t = c.t.Add(time.Minute)
	}

	files, err := m.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"backup_20240601_120100.zip", "backup_20240601_120200.zip"}, files)

	logs, err := m.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	// самая старая запись осталась в журнале, но файла уже нет
	oldest := logs[len(logs)-1]
	_, _, err = m.Open(ctx, oldest.ID)
	assert.ErrorIs(t, err, ErrFileMissing)

	_, path, err := m.Open(ctx, last.Log.ID)
	require.NoError(t, err)
	assert.Equal(t, last.Path, path)

	_, err = m.Delete(ctx, last.Log.ID)
	require.NoError(t, err)
	_, err = os.Stat(last.Path)
	assert.True(t, os.IsNotExist(err))

	_, _, err = m.Open(ctx, 12345)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSameSecondNames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m, _ := newTestManager(t, s, 0)

	a1, err := m.Create(ctx)
	require.NoError(t, err)
	a2, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240601_120000.zip", a1.Name)
	assert.Equal(t, "backup_20240601_120000_2.zip", a2.Name)
}

type failingStore struct {
	Store
	logged []database.BackupLog
}

func (f *failingStore) ExportSnapshot(context.Context) (*database.Snapshot, error) {
	return nil, errors.New("disk on fire")
}

func (f *failingStore) LogBackup(_ context.Context, l *database.BackupLog) error {
	f.logged = append(f.logged, *l)
	return nil
}

func TestCreateFailureIsLogged(t *testing.T) {
	fs := &failingStore{}
	m, _ := newTestManager(t, fs, 5)

	_, err := m.Create(context.Background())
	require.Error(t, err)
	require.Len(t, fs.logged, 1)
	assert.Equal(t, database.BackupFailed, fs.logged[0].Status)
	assert.Contains(t, fs.logged[0].Message, "disk on fire")
}
