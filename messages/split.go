package messages

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/exp/utf8string"
)

// MaxMessageLen: лимит Telegram на длину текста сообщения.
// Telegram считает длину в UTF-16, эмодзи вне BMP занимают две единицы.
const MaxMessageLen = 4096

// TextLen: длина текста в единицах UTF-16
func TextLen(text string) int {
	n := 0
	for _, r := range text {
		n += runeLen(r)
	}
	return n
}

func runeLen(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	// невалидный UTF-8 уходит как U+FFFD
	return 1
}

// Split режет текст на части не длиннее limit единиц UTF-16,
// по возможности по переводу строки.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	if TextLen(text) <= limit {
		return []string{text}
	}

	s := utf8string.NewString(text)
	total := s.RuneCount()
	var parts []string
	start := 0
	for start < total {
		end, units, newline := start, 0, -1
		for end < total {
			r := s.At(end)
			if units+runeLen(r) > limit {
				break
			}
			if r == '\n' {
				newline = end
			}
			units += runeLen(r)
			end++
		}
		if end == total {
			parts = append(parts, s.Slice(start, total))
			break
		}
		if end == start {
			// limit меньше суррогатной пары
			end = start + 1
		}
		if newline > start {
			parts = append(parts, s.Slice(start, newline))
			// перевод строки не переносим в следующую часть
			start = newline + 1
			continue
		}
		parts = append(parts, s.Slice(start, end))
		start = end
	}
	return parts
}

// Truncate обрезает текст до limit единиц UTF-16 с многоточием в конце
func Truncate(text string, limit int) string {
	if TextLen(text) <= limit {
		return text
	}
	var b strings.Builder
	units := 0
	for _, r := range text {
		if units+runeLen(r) > limit-1 {
			break
		}
		units += runeLen(r)
		b.WriteRune(r)
	}
	return b.String() + "…"
}
