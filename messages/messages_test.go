package messages

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg_archive_bot/database"
)

func TestSplitShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, Split("hello", 10))
}

func TestSplitPrefersNewlines(t *testing.T) {
	text := "line one\nline two\nline three"
	parts := Split(text, 12)
	assert.Equal(t, []string{"line one", "line two", "line three"}, parts)
}

func TestSplitCountsRunes(t *testing.T) {
	text := strings.Repeat("я", 25)
	parts := Split(text, 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("я", 10), parts[0])
	assert.Equal(t, strings.Repeat("я", 5), parts[2])
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitCountsUTF16(t *testing.T) {
	// каждый эмодзи занимает две единицы UTF-16
	text := strings.Repeat("😀", 7)
	assert.Equal(t, 14, TextLen(text))

	parts := Split(text, 10)
	require.Len(t, parts, 2)
	assert.Equal(t, strings.Repeat("😀", 5), parts[0])
	assert.Equal(t, strings.Repeat("😀", 2), parts[1])
	for _, p := range parts {
		assert.LessOrEqual(t, TextLen(p), 10)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitMessageLimitWithEmoji(t *testing.T) {
	text := strings.Repeat("😀", MaxMessageLen/2+10)
	parts := Split(text, MaxMessageLen)
	require.Len(t, parts, 2)
	assert.Equal(t, MaxMessageLen, TextLen(parts[0]))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "😀😀…", Truncate(strings.Repeat("😀", 5), 6))
}

func TestIntervalLabel(t *testing.T) {
	assert.Equal(t, "off", IntervalLabel(0))
	assert.Equal(t, "every 30 minutes", IntervalLabel(30))
	assert.Equal(t, "every hour", IntervalLabel(60))
	assert.Equal(t, "every 6 hours", IntervalLabel(360))
	assert.Equal(t, "every day", IntervalLabel(1440))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "first", Snippet("first\nsecond", 20))
	assert.Equal(t, "abcd…", Snippet("abcdefgh", 5))
	assert.Equal(t, "", Snippet("   ", 5))
}

func TestFormatFilterMenu(t *testing.T) {
	f := database.DefaultFilterConfig()
	f.Toggle(database.KindSticker)
	f.Keywords = []string{"go", "rust"}
	text := FormatFilterMenu("News", database.SourceTopicGroup, &database.TopicList{IDs: []int{1, 2}}, f)

	assert.Contains(t, text, `Filters for "News"`)
	assert.Contains(t, text, "❌ Sticker")
	assert.Contains(t, text, "✅ Text")
	assert.Contains(t, text, "Keywords: go, rust")
	assert.Contains(t, text, "Topics: 1, 2")
}

func TestFormatResultsPage(t *testing.T) {
	items := []database.ArchivedMessage{
		{SenderName: "Jane", Text: "hello\nworld", Kind: database.KindText, MessageDate: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{SenderName: "Unknown", Kind: database.KindPhoto, MessageDate: time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)},
	}
	text := FormatResultsPage(12, 2, 2, 10, items)

	assert.Contains(t, text, "Found 12 message(s). Page 2/2")
	assert.Contains(t, text, "11. 💬 2024-05-01 09:30 | Jane")
	assert.Contains(t, text, "   hello")
	assert.NotContains(t, text, "world")
	assert.Contains(t, text, "12. 🖼 2024-04-30 08:00 | Unknown")
}

func TestFormatUserDetails(t *testing.T) {
	u := &database.User{ID: 5, Name: "Bob"}
	text := FormatUserDetails(u, []database.UserPermission{
		{SourceTitle: "A", CanSearch: true},
		{SourceTitle: "B", CanSearch: false},
	})
	assert.Contains(t, text, "✅ A")
	assert.NotContains(t, text, "B\n")

	admin := &database.User{ID: 1, Name: "Root", IsAdmin: true}
	assert.Contains(t, FormatUserDetails(admin, nil), "Admins can search every source.")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2<<20))
}
