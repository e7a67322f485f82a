package search

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg_archive_bot/database"
)

type fakeSearcher struct {
	msgs []database.ArchivedMessage
	err  error

	calls int
}

func (f *fakeSearcher) SearchMessages(_ context.Context, sourceID int64, preds []database.Predicate) ([]database.ArchivedMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []database.ArchivedMessage
	for i := range f.msgs {
		m := f.msgs[i]
		if m.SourceID == sourceID && database.MatchAll(&m, preds) {
			out = append(out, m)
		}
	}
	return out, nil
}

var day = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func sample() []database.ArchivedMessage {
	return []database.ArchivedMessage{
		{ID: 1, SourceID: 1, MessageID: 10, SenderID: 7, SenderName: "Alice (@alice)", Text: "Hello world", Kind: database.KindText, MessageDate: day},
		{ID: 2, SourceID: 1, MessageID: 11, SenderID: 8, SenderName: "Bob", Text: "hello photo", Kind: database.KindPhoto, MessageDate: day.AddDate(0, 0, -2), TopicID: intPtr(3)},
		{ID: 3, SourceID: 1, MessageID: 12, SenderID: 7, SenderName: "Alice (@alice)", Text: "", Kind: database.KindVoice, MessageDate: day.AddDate(0, 0, -40)},
		{ID: 4, SourceID: 2, MessageID: 10, SenderID: 7, SenderName: "Alice (@alice)", Text: "hello elsewhere", Kind: database.KindText, MessageDate: day},
	}
}

func TestFiltersPredicates(t *testing.T) {
	var f Filters
	assert.True(t, f.Empty())
	assert.Empty(t, f.Describe())

	f.Text = "hello"
	f.Kind = database.KindPhoto
	f.SetSender(8, "Bob")
	f.TopicID = intPtr(3)
	from, to, err := PresetRange(PresetWeek, day)
	require.NoError(t, err)
	f.SetDates(from, to, PresetLabel(PresetWeek))

	preds := f.Predicates()
	require.Len(t, preds, 5)
	assert.Equal(t, database.SenderMatch{ID: 8}, preds[3])
	assert.Equal(t, "", f.SenderName)

	lines := f.Describe()
	assert.Equal(t, []string{
		"Text: hello",
		"Date: last 7 days",
		"Type: photo",
		"Sender ID: 8",
		"Topic: 3",
	}, lines)

	f.ClearDates()
	assert.Nil(t, f.From)
	assert.Len(t, f.Predicates(), 4)
}

func TestSenderNameFilter(t *testing.T) {
	var f Filters
	f.SetSender(0, "alice")
	assert.Equal(t, []database.Predicate{database.SenderMatch{Name: "alice"}}, f.Predicates())
	assert.Equal(t, []string{"Sender: alice"}, f.Describe())
}

func TestPresetRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC)

	from, to, err := PresetRange(PresetToday, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, 15, to.Day())
	assert.Equal(t, 23, to.Hour())

	from, to, err = PresetRange(PresetYesterday, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, 14, to.Day())

	from, _, err = PresetRange(PresetWeek, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), from)

	from, _, err = PresetRange(PresetMonth, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), from)

	_, _, err = PresetRange("decade", now)
	assert.Error(t, err)
}

func TestEngineRun(t *testing.T) {
	store := &fakeSearcher{msgs: sample()}
	e := NewEngine(store)
	e.now = func() time.Time { return day }

	res, err := e.Run(context.Background(), 1, Filters{Text: "HELLO"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total())
	assert.Equal(t, day, res.CreatedAt)
	assert.Equal(t, int64(1), res.SourceID)

	res, err = e.Run(context.Background(), 1, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total())

	from, to, _ := PresetRange(PresetWeek, day)
	f := Filters{}
	f.SetDates(from, to, "")
	res, err = e.Run(context.Background(), 1, f)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total())

	res, err = e.Run(context.Background(), 1, Filters{TopicID: intPtr(3)})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total())
	assert.Equal(t, int64(2), res.Messages[0].ID)

	store.err = errors.New("boom")
	_, err = e.Run(context.Background(), 1, Filters{})
	assert.ErrorContains(t, err, "boom")
}

func TestResultPage(t *testing.T) {
	r := &Result{}
	for i := 0; i < 25; i++ {
		r.Messages = append(r.Messages, database.ArchivedMessage{ID: int64(i + 1)})
	}
	assert.Equal(t, 3, r.Pages())

	p := r.Page(1)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 0, p.Offset)
	assert.Len(t, p.Items, 10)

	p = r.Page(3)
	assert.Len(t, p.Items, 5)
	assert.Equal(t, 20, p.Offset)
	assert.Equal(t, int64(21), p.Items[0].ID)

	assert.Equal(t, 3, r.Page(99).Number)
	assert.Equal(t, 1, r.Page(-4).Number)

	empty := &Result{}
	p = empty.Page(2)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 0, p.Pages)
	assert.Empty(t, p.Items)

	m, ok := r.Find(7)
	require.True(t, ok)
	assert.Equal(t, int64(7), m.ID)
	_, ok = r.Find(100)
	assert.False(t, ok)
}

func TestExport(t *testing.T) {
	src := &database.Source{ID: 1, Title: "News", Type: database.SourceChannel}
	r := &Result{SourceID: 1, Filters: Filters{Text: "hello"}, Messages: sample()[:3]}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, src, r, day))
	out := buf.String()

	assert.Contains(t, out, "Source: News (channel)")
	assert.Contains(t, out, "- Text: hello")
	assert.Contains(t, out, "Results: 3")
	assert.Contains(t, out, "Exported: 2024-05-10 12:00:00")
	assert.Contains(t, out, "- Sender: Bob (8)")
	assert.Contains(t, out, "- Topic: 3")
	assert.Contains(t, out, "(no text)")
	assert.Equal(t, 4, strings.Count(out, "---"))
}

func TestWriteExportFile(t *testing.T) {
	dir := t.TempDir()
	r := &Result{Messages: sample()[:1]}

	path, err := WriteExportFile(filepath.Join(dir, "exports"), nil, r, day)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "search_results_20240510_120000_"))
	assert.True(t, strings.HasSuffix(path, ".txt"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello world")
}
