package search

import (
	"fmt"
	"time"

	"tg_archive_bot/validate"
)

type DatePreset string

const (
	PresetToday     DatePreset = "today"
	PresetYesterday DatePreset = "yesterday"
	PresetWeek      DatePreset = "week"
	PresetMonth     DatePreset = "month"
)

var DatePresets = []DatePreset{PresetToday, PresetYesterday, PresetWeek, PresetMonth}

// PresetRange считает границы пресета относительно now, включительно
func PresetRange(p DatePreset, now time.Time) (from, to time.Time, err error) {
	today := startOfDay(now)
	switch p {
	case PresetToday:
		return today, validate.EndOfDay(today), nil
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		return y, validate.EndOfDay(y), nil
	case PresetWeek:
		return today.AddDate(0, 0, -6), validate.EndOfDay(today), nil
	case PresetMonth:
		return today.AddDate(0, -1, 0), validate.EndOfDay(today), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown date preset %q", p)
}

func PresetLabel(p DatePreset) string {
	switch p {
	case PresetToday:
		return "today"
	case PresetYesterday:
		return "yesterday"
	case PresetWeek:
		return "last 7 days"
	case PresetMonth:
		return "last month"
	}
	return string(p)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
