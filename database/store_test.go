package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return newTestSQLite(t) })
}

func mustSource(t *testing.T, s Store, title string, chatID int64, username string) *Source {
	t.Helper()
	src := &Source{
		Type:      SourceChannel,
		ChatID:    int64Ptr(chatID),
		Username:  username,
		Title:     title,
		IsActive:  true,
		Filter:    DefaultFilterConfig(),
		CreatedBy: 1,
	}
	require.NoError(t, s.CreateSource(context.Background(), src))
	require.NotZero(t, src.ID)
	return src
}

func mustMessage(t *testing.T, s Store, sourceID, messageID int64, text string, kind ContentKind, date time.Time) *ArchivedMessage {
	t.Helper()
	m := &ArchivedMessage{
		SourceID:    sourceID,
		MessageID:   messageID,
		SenderID:    42,
		SenderName:  "Jane Doe (@jane)",
		Text:        text,
		Kind:        kind,
		MessageDate: date,
	}
	require.NoError(t, s.UpsertMessage(context.Background(), m))
	require.NotZero(t, m.ID)
	return m
}

// runStoreSuite проверяет одинаковое поведение обеих реализаций Store
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("migrate is idempotent and seeds config", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Migrate(ctx))

		v, err := s.GetConfig(ctx, ConfigBotEnabled, "")
		require.NoError(t, err)
		assert.Equal(t, "true", v)

		v, err = s.GetConfig(ctx, ConfigBackupInterval, "")
		require.NoError(t, err)
		assert.Equal(t, "1440", v)

		v, err = s.GetConfig(ctx, "missing", "fallback")
		require.NoError(t, err)
		assert.Equal(t, "fallback", v)
	})

	t.Run("set config overwrites", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SetConfig(ctx, ConfigBotEnabled, "false"))
		assert.False(t, IsBotEnabled(ctx, s))

		require.NoError(t, s.SetConfig(ctx, ConfigBotEnabled, "true"))
		assert.True(t, IsBotEnabled(ctx, s))

		// повторная миграция не сбрасывает значения
		require.NoError(t, s.SetConfig(ctx, ConfigBackupInterval, "60"))
		require.NoError(t, s.Migrate(ctx))
		v, err := s.GetConfig(ctx, ConfigBackupInterval, "")
		require.NoError(t, err)
		assert.Equal(t, "60", v)
	})

	t.Run("users and admins", func(t *testing.T) {
		s := open(t)

		_, err := s.FirstAdmin(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.RegisterUser(ctx, 10, "Alice"))
		require.NoError(t, s.RegisterUser(ctx, 10, "Alice Renamed"))

		u, err := s.GetUser(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "Alice Renamed", u.Name)
		assert.False(t, u.IsAdmin)

		admin, err := IsAdmin(ctx, s, 10)
		require.NoError(t, err)
		assert.False(t, admin)

		admin, err = IsAdmin(ctx, s, 999)
		require.NoError(t, err)
		assert.False(t, admin)

		require.NoError(t, s.EnsureAdmin(ctx, 20, "Admin_20"))
		require.NoError(t, s.EnsureAdmin(ctx, 20, "ignored"))
		first, err := s.FirstAdmin(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(20), first.ID)
		assert.Equal(t, "Admin_20", first.Name)

		require.NoError(t, s.SetAdmin(ctx, 10, true))
		admin, err = IsAdmin(ctx, s, 10)
		require.NoError(t, err)
		assert.True(t, admin)

		err = s.SetAdmin(ctx, 777, true)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.GetUser(ctx, 777)
		assert.ErrorIs(t, err, ErrNotFound)

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("sources lookup by chat id and username", func(t *testing.T) {
		s := open(t)
		src := mustSource(t, s, "News", -1001234567890, "newschan")

		got, err := s.FindActiveSource(ctx, -1001234567890, "")
		require.NoError(t, err)
		assert.Equal(t, src.ID, got.ID)
		assert.Equal(t, "News", got.Title)
		assert.True(t, got.Filter.Allows(KindPhoto))

		got, err = s.FindActiveSource(ctx, -42, "@NewsChan")
		require.NoError(t, err)
		assert.Equal(t, src.ID, got.ID)

		_, err = s.FindActiveSource(ctx, -42, "")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.SetSourceActive(ctx, src.ID, false))
		_, err = s.FindActiveSource(ctx, -1001234567890, "")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.SetSourceActive(ctx, 9999, true), ErrNotFound)
	})

	t.Run("update source keeps id and stores filters", func(t *testing.T) {
		s := open(t)
		src := mustSource(t, s, "Group", -100555, "")
		src.Type = SourceTopicGroup
		src.Title = "Topic Group"
		src.Filter.Toggle(KindSticker)
		src.Filter.Keywords = []string{"go", "release"}
		src.Topics = &TopicList{IDs: []int{3, 7}}
		require.NoError(t, s.UpdateSource(ctx, src))

		got, err := s.GetSource(ctx, src.ID)
		require.NoError(t, err)
		assert.Equal(t, SourceTopicGroup, got.Type)
		assert.Equal(t, "Topic Group", got.Title)
		assert.False(t, got.Filter.Allows(KindSticker))
		assert.True(t, got.Filter.Allows(KindText))
		assert.Equal(t, []string{"go", "release"}, got.Filter.Keywords)
		require.NotNil(t, got.Topics)
		assert.Equal(t, []int{3, 7}, got.Topics.IDs)

		sources, err := s.ListSources(ctx)
		require.NoError(t, err)
		assert.Len(t, sources, 1)

		missing := *src
		missing.ID = 4242
		assert.ErrorIs(t, s.UpdateSource(ctx, &missing), ErrNotFound)
	})

	t.Run("upsert message replaces by source and message id", func(t *testing.T) {
		s := open(t)
		src := mustSource(t, s, "News", -100111, "")

		first := mustMessage(t, s, src.ID, 5, "hello", KindText, baseDate)
		second := mustMessage(t, s, src.ID, 5, "hello edited", KindText, baseDate)
		assert.Equal(t, first.ID, second.ID)

		n, err := s.CountMessages(ctx, src.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.GetMessage(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello edited", got.Text)
		assert.Equal(t, "News", got.SourceTitle)
		assert.True(t, got.MessageDate.Equal(baseDate))

		_, err = s.GetMessage(ctx, 123456)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("search applies predicates newest first", func(t *testing.T) {
		s := open(t)
		src := mustSource(t, s, "News", -100222, "")
		other := mustSource(t, s, "Other", -100333, "")

		mustMessage(t, s, src.ID, 1, "Go 1.22 released", KindText, baseDate.Add(-48*time.Hour))
		mustMessage(t, s, src.ID, 2, "photo of the sunset", KindPhoto, baseDate.Add(-24*time.Hour))
		mustMessage(t, s, src.ID, 3, "100% go_lang", KindText, baseDate)
		mustMessage(t, s, other.ID, 1, "go elsewhere", KindText, baseDate)

		all, err := s.SearchMessages(ctx, src.ID, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, int64(3), all[0].MessageID)
		assert.Equal(t, int64(1), all[2].MessageID)

		res, err := s.SearchMessages(ctx, src.ID, []Predicate{TextMatch{Text: "GO"}})
		require.NoError(t, err)
		assert.Len(t, res, 2)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{TextMatch{Text: "0%"}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, int64(3), res[0].MessageID)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{TextMatch{Text: "o_l"}})
		require.NoError(t, err)
		require.Len(t, res, 1)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{MediaKind{Kind: KindPhoto}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, int64(2), res[0].MessageID)

		from := baseDate.Add(-30 * time.Hour)
		to := baseDate.Add(-time.Hour)
		res, err = s.SearchMessages(ctx, src.ID, []Predicate{DateRange{From: &from, To: &to}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, int64(2), res[0].MessageID)

		exact := baseDate
		res, err = s.SearchMessages(ctx, src.ID, []Predicate{DateRange{From: &exact, To: &exact}})
		require.NoError(t, err)
		assert.Len(t, res, 1)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{SenderMatch{Name: "jane"}})
		require.NoError(t, err)
		assert.Len(t, res, 3)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{SenderMatch{ID: 7}})
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("search folds case beyond ascii", func(t *testing.T) {
		s := open(t)
		src := mustSource(t, s, "Новости", -100555, "")
		m := &ArchivedMessage{
			SourceID:    src.ID,
			MessageID:   1,
			SenderID:    9,
			SenderName:  "Иван Петров",
			Text:        "Привет МИР",
			Kind:        KindText,
			MessageDate: baseDate,
		}
		require.NoError(t, s.UpsertMessage(ctx, m))
		mustMessage(t, s, src.ID, 2, "hello world", KindText, baseDate.Add(-time.Hour))

		res, err := s.SearchMessages(ctx, src.ID, []Predicate{TextMatch{Text: "мир"}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, int64(1), res[0].MessageID)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{TextMatch{Text: "ПРИВЕТ"}})
		require.NoError(t, err)
		assert.Len(t, res, 1)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{SenderMatch{Name: "иван"}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Иван Петров", res[0].SenderName)

		// вместе с условиями, которые остаются в SQL
		res, err = s.SearchMessages(ctx, src.ID, []Predicate{
			TextMatch{Text: "мир"},
			MediaKind{Kind: KindText},
			SenderMatch{Name: "петров"},
		})
		require.NoError(t, err)
		assert.Len(t, res, 1)

		res, err = s.SearchMessages(ctx, src.ID, []Predicate{TextMatch{Text: "мир"}, MediaKind{Kind: KindPhoto}})
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("topic predicate", func(t *testing.T) {
		s := open(t)
		src := mustSource(t, s, "Forum", -100444, "")
		m := &ArchivedMessage{SourceID: src.ID, MessageID: 1, Text: "in topic", Kind: KindText, TopicID: intPtr(5), MessageDate: baseDate}
		require.NoError(t, s.UpsertMessage(ctx, m))
		mustMessage(t, s, src.ID, 2, "general", KindText, baseDate)

		res, err := s.SearchMessages(ctx, src.ID, []Predicate{TopicMatch{TopicID: 5}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		require.NotNil(t, res[0].TopicID)
		assert.Equal(t, 5, *res[0].TopicID)
	})

	t.Run("permissions and accessible sources", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.EnsureAdmin(ctx, 1, "Admin"))
		require.NoError(t, s.RegisterUser(ctx, 2, "Bob"))
		a := mustSource(t, s, "A", -1001, "")
		b := mustSource(t, s, "B", -1002, "")
		inactive := mustSource(t, s, "C", -1003, "")
		require.NoError(t, s.SetSourceActive(ctx, inactive.ID, false))

		sources, err := s.AccessibleSources(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, sources, 2)

		sources, err = s.AccessibleSources(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, sources)

		on, err := s.TogglePermission(ctx, 2, a.ID)
		require.NoError(t, err)
		assert.True(t, on)

		require.NoError(t, s.SetPermission(ctx, 2, inactive.ID, true))

		sources, err = s.AccessibleSources(ctx, 2)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, a.ID, sources[0].ID)

		perms, err := s.ListUserPermissions(ctx, 2)
		require.NoError(t, err)
		require.Len(t, perms, 2)
		assert.Equal(t, "A", perms[0].SourceTitle)

		members, err := s.ListSourceMembers(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, int64(2), members[0].User.ID)
		assert.False(t, members[0].CanSearch)

		on, err = s.TogglePermission(ctx, 2, a.ID)
		require.NoError(t, err)
		assert.False(t, on)

		sources, err = s.AccessibleSources(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, sources)
	})

	t.Run("delete source cascades", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.RegisterUser(ctx, 2, "Bob"))
		src := mustSource(t, s, "A", -1001, "")
		mustMessage(t, s, src.ID, 1, "x", KindText, baseDate)
		require.NoError(t, s.SetPermission(ctx, 2, src.ID, true))

		require.NoError(t, s.DeleteSource(ctx, src.ID))

		_, err := s.GetSource(ctx, src.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		n, err := s.CountMessages(ctx, src.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
		perms, err := s.ListUserPermissions(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, perms)

		assert.ErrorIs(t, s.DeleteSource(ctx, src.ID), ErrNotFound)
	})

	t.Run("backup logs", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 3; i++ {
			l := &BackupLog{FileName: "backup.zip", FileSize: int64(100 + i), Status: BackupSuccess}
			require.NoError(t, s.LogBackup(ctx, l))
			require.NotZero(t, l.ID)
		}
		failed := &BackupLog{Status: BackupFailed, Message: "disk full"}
		require.NoError(t, s.LogBackup(ctx, failed))

		logs, err := s.ListBackups(ctx, 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, failed.ID, logs[0].ID)
		assert.Equal(t, BackupFailed, logs[0].Status)

		got, err := s.GetBackup(ctx, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, "disk full", got.Message)

		_, err = s.GetBackup(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.EnsureAdmin(ctx, 1, "Admin"))
		require.NoError(t, s.RegisterUser(ctx, 2, "Bob"))
		src := mustSource(t, s, "A", -1001, "achan")
		src.Topics = &TopicList{All: true}
		require.NoError(t, s.UpdateSource(ctx, src))
		require.NoError(t, s.SetPermission(ctx, 2, src.ID, true))
		msg := mustMessage(t, s, src.ID, 1, "kept", KindText, baseDate)
		require.NoError(t, s.LogBackup(ctx, &BackupLog{FileName: "b.zip", Status: BackupSuccess}))
		require.NoError(t, s.SetConfig(ctx, ConfigBackupChannelID, "-100999"))

		snap, err := s.ExportSnapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Users, 2)
		assert.Len(t, snap.Sources, 1)
		assert.Len(t, snap.Messages, 1)
		assert.Len(t, snap.Permissions, 1)
		assert.Len(t, snap.BackupLogs, 1)

		extra := mustSource(t, s, "B", -1002, "")
		mustMessage(t, s, extra.ID, 1, "dropped", KindText, baseDate)
		require.NoError(t, s.SetConfig(ctx, ConfigBackupChannelID, ""))

		require.NoError(t, s.RestoreSnapshot(ctx, snap))

		sources, err := s.ListSources(ctx)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, src.ID, sources[0].ID)
		require.NotNil(t, sources[0].Topics)
		assert.True(t, sources[0].Topics.All)

		got, err := s.GetMessage(ctx, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, "kept", got.Text)

		v, err := s.GetConfig(ctx, ConfigBackupChannelID, "")
		require.NoError(t, err)
		assert.Equal(t, "-100999", v)

		// новые ID не конфликтуют с восстановленными
		fresh := mustSource(t, s, "C", -1003, "")
		assert.Greater(t, fresh.ID, src.ID)
	})
}
