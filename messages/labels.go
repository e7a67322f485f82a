package messages

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tg_archive_bot/database"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

var sourceTypeLabels = map[database.SourceType]string{
	database.SourceChannel:    "📢 Channel",
	database.SourceGroup:      "👥 Group",
	database.SourceSupergroup: "👥 Supergroup",
	database.SourceTopicGroup: "🧵 Topic group",
}

func SourceTypeLabel(t database.SourceType) string {
	if l, ok := sourceTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

var kindLabels = map[database.ContentKind]string{
	database.KindText:      "Text",
	database.KindPhoto:     "Photo",
	database.KindVideo:     "Video",
	database.KindDocument:  "Document",
	database.KindAudio:     "Audio",
	database.KindVoice:     "Voice",
	database.KindSticker:   "Sticker",
	database.KindAnimation: "Animation",
}

var kindIcons = map[database.ContentKind]string{
	database.KindText:      "💬",
	database.KindPhoto:     "🖼",
	database.KindVideo:     "🎬",
	database.KindDocument:  "📄",
	database.KindAudio:     "🎵",
	database.KindVoice:     "🎤",
	database.KindSticker:   "🏷",
	database.KindAnimation: "🎞",
}

func KindLabel(k database.ContentKind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

func KindIcon(k database.ContentKind) string {
	if i, ok := kindIcons[k]; ok {
		return i
	}
	return "❔"
}

func CheckMark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}

func ActiveLabel(active bool) string {
	if active {
		return "▶️ active"
	}
	return "⏸ paused"
}

func EnabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func RoleLabel(admin bool) string {
	if admin {
		return "👑 admin"
	}
	return "👤 user"
}

// IntervalLabel: интервал бэкапа в минутах, 0 = выключено
func IntervalLabel(minutes int) string {
	switch {
	case minutes <= 0:
		return "off"
	case minutes%1440 == 0:
		return plural(minutes/1440, "day")
	case minutes%60 == 0:
		return plural(minutes/60, "hour")
	default:
		return plural(minutes, "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "every " + unit
	}
	return fmt.Sprintf("every %d %ss", n, unit)
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(DateLayout)
}

func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(DateTimeLayout)
}

func FormatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Snippet: первая строка текста, обрезанная до max символов
func Snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
