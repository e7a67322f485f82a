package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/database"
)

var (
	ErrFileMissing    = errors.New("backup file is missing")
	ErrInvalidArchive = errors.New("not a valid backup archive")
)

const (
	filePrefix = "backup_"
	fileExt    = ".zip"
	nameLayout = "20060102_150405"
	// Предел распакованного файла таблицы
	maxEntrySize = 512 << 20
)

type Store interface {
	ExportSnapshot(ctx context.Context) (*database.Snapshot, error)
	RestoreSnapshot(ctx context.Context, s *database.Snapshot) error
	LogBackup(ctx context.Context, l *database.BackupLog) error
	ListBackups(ctx context.Context, limit int) ([]database.BackupLog, error)
	GetBackup(ctx context.Context, id int64) (*database.BackupLog, error)
}

type Manager struct {
	store Store
	dir   string
	keep  int
	now   func() time.Time
	log   *log.Entry
}

func NewManager(store Store, dir string, keep int) *Manager {
	return &Manager{
		store: store,
		dir:   dir,
		keep:  keep,
		now:   time.Now,
		log:   log.WithField("component", "backup"),
	}
}

// Archive: созданный бэкап на диске
type Archive struct {
	Path     string
	Name     string
	Size     int64
	Log      *database.BackupLog
	Manifest *Manifest
}

// Create снимает копию всех таблиц в zip и пишет запись в backup_logs.
// Неудача тоже логируется в backup_logs.
func (m *Manager) Create(ctx context.Context) (*Archive, error) {
	a, err := m.create(ctx)
	if err != nil {
		entry := &database.BackupLog{Status: database.BackupFailed, Message: err.Error()}
		if a != nil {
			entry.FileName = a.Name
		}
		if lerr := m.store.LogBackup(ctx, entry); lerr != nil {
			m.log.WithError(lerr).Error("failed to log backup failure")
		}
		m.log.WithError(err).Error("backup failed")
		return nil, err
	}

	entry := &database.BackupLog{
		FileName: a.Name,
		FileSize: a.Size,
		Status:   database.BackupSuccess,
		Message:  fmt.Sprintf("%d tables", len(a.Manifest.Tables)),
	}
	if err := m.store.LogBackup(ctx, entry); err != nil {
		m.log.WithError(err).Error("failed to log backup")
	}
	a.Log = entry

	if err := m.prune(); err != nil {
		m.log.WithError(err).Warn("backup retention failed")
	}
	m.log.WithFields(log.Fields{"file": a.Name, "size": a.Size}).Info("backup created")
	return a, nil
}

func (m *Manager) create(ctx context.Context) (*Archive, error) {
	snap, err := m.store.ExportSnapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "backup.Create.Export")
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "backup.Create.MkdirAll")
	}

	now := m.now()
	name := m.uniqueName(now)
	a := &Archive{Name: name, Path: filepath.Join(m.dir, name)}

	data, manifest, err := encode(snap, now)
	if err != nil {
		return a, errors.Wrap(err, "backup.Create.Encode")
	}
	if err := os.WriteFile(a.Path, data, 0o644); err != nil {
		return a, errors.Wrap(err, "backup.Create.Write")
	}
	a.Size = int64(len(data))
	a.Manifest = manifest
	return a, nil
}

func (m *Manager) uniqueName(now time.Time) string {
	base := filePrefix + now.UTC().Format(nameLayout)
	name := base + fileExt
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(m.dir, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s_%d%s", base, i, fileExt)
	}
}

func snapshotTables(snap *database.Snapshot) []struct {
	name string
	rows any
	n    int
} {
	return []struct {
		name string
		rows any
		n    int
	}{
		{"users", snap.Users, len(snap.Users)},
		{"config", snap.Config, len(snap.Config)},
		{"sources", snap.Sources, len(snap.Sources)},
		{"permissions", snap.Permissions, len(snap.Permissions)},
		{"archived_messages", snap.Messages, len(snap.Messages)},
		{"backup_logs", snap.BackupLogs, len(snap.BackupLogs)},
	}
}

func encode(snap *database.Snapshot, now time.Time) ([]byte, *Manifest, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	manifest := newManifest(now)

	write := func(name string, v any) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, name)
		}
		w, err := zw.Create(name)
		if err != nil {
			return errors.Wrap(err, name)
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(err, name)
		}
		manifest.add(name, data)
		return nil
	}

	for _, t := range snapshotTables(snap) {
		if err := write(tablesDir+t.name+".json", t.rows); err != nil {
			return nil, nil, err
		}
		manifest.Tables[t.name] = t.n
	}

	// Настройки отдельно, в читаемом виде
	settings := make(map[string]string, len(snap.Config))
	for _, c := range snap.Config {
		settings[c.Name] = c.Value
	}
	if err := write(configFile, settings); err != nil {
		return nil, nil, err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	w, err := zw.Create(manifestFile)
	if err != nil {
		return nil, nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), manifest, nil
}

// Restore проверяет архив и заменяет все таблицы одной транзакцией
func (m *Manager) Restore(ctx context.Context, path string) (*Manifest, error) {
	snap, manifest, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := m.store.RestoreSnapshot(ctx, snap); err != nil {
		return nil, errors.Wrap(err, "backup.Restore")
	}
	m.log.WithFields(log.Fields{"file": filepath.Base(path), "tables": manifest.Tables}).Info("backup restored")
	return manifest, nil
}

// Read открывает архив, сверяет контрольные суммы и декодирует снимок
func Read(path string) (*database.Snapshot, *Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidArchive, err.Error())
	}
	defer zr.Close()

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		data, err := readEntry(f)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrInvalidArchive, "%s: %v", f.Name, err)
		}
		files[f.Name] = data
	}

	raw, ok := files[manifestFile]
	if !ok {
		return nil, nil, errors.Wrap(ErrInvalidArchive, "manifest.json is missing")
	}
	manifest, err := decodeManifest(raw)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidArchive, "manifest: %v", err)
	}
	for name := range manifest.Files {
		data, ok := files[name]
		if !ok {
			return nil, nil, errors.Wrapf(ErrInvalidArchive, "%s is missing", name)
		}
		if err := manifest.verify(name, data); err != nil {
			return nil, nil, errors.Wrap(ErrInvalidArchive, err.Error())
		}
	}

	var snap database.Snapshot
	targets := map[string]any{
		"users":             &snap.Users,
		"config":            &snap.Config,
		"sources":           &snap.Sources,
		"permissions":       &snap.Permissions,
		"archived_messages": &snap.Messages,
		"backup_logs":       &snap.BackupLogs,
	}
	for table, dst := range targets {
		name := tablesDir + table + ".json"
		data, ok := files[name]
		if !ok {
			return nil, nil, errors.Wrapf(ErrInvalidArchive, "%s is missing", name)
		}
		if _, listed := manifest.Files[name]; !listed {
			return nil, nil, errors.Wrapf(ErrInvalidArchive, "%s: not listed in manifest", name)
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return nil, nil, errors.Wrapf(ErrInvalidArchive, "%s: %v", name, err)
		}
	}
	return &snap, manifest, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("entry too large")
	}
	return data, nil
}

func (m *Manager) List(ctx context.Context, limit int) ([]database.BackupLog, error) {
	return m.store.ListBackups(ctx, limit)
}

// Open возвращает запись и путь к файлу; ErrFileMissing, если файл удалён
func (m *Manager) Open(ctx context.Context, id int64) (*database.BackupLog, string, error) {
	entry, err := m.store.GetBackup(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if entry.FileName == "" {
		return entry, "", ErrFileMissing
	}
	path := filepath.Join(m.dir, filepath.Base(entry.FileName))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return entry, "", ErrFileMissing
		}
		return entry, "", errors.Wrap(err, "backup.Open.Stat")
	}
	return entry, path, nil
}

// Delete удаляет файл бэкапа, запись в журнале остаётся
func (m *Manager) Delete(ctx context.Context, id int64) (*database.BackupLog, error) {
	entry, path, err := m.Open(ctx, id)
	if err != nil {
		return entry, err
	}
	if err := os.Remove(path); err != nil {
		return entry, errors.Wrap(err, "backup.Delete")
	}
	m.log.WithField("file", entry.FileName).Info("backup deleted")
	return entry, nil
}

// Files возвращает имена архивов в каталоге, от старых к новым
func (m *Manager) Files() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (m *Manager) prune() error {
	if m.keep <= 0 {
		return nil
	}
	names, err := m.Files()
	if err != nil {
		return err
	}
	for len(names) > m.keep {
		if err := os.Remove(filepath.Join(m.dir, names[0])); err != nil {
			return err
		}
		m.log.WithField("file", names[0]).Debug("old backup removed")
		names = names[1:]
	}
	return nil
}
