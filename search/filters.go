package search

import (
	"fmt"
	"time"

	"tg_archive_bot/database"
)

// Filters: набор фильтров поиска, все поля необязательны и объединяются через AND
type Filters struct {
	Text string

	From *time.Time
	To   *time.Time
	// Подпись диапазона для меню и экспорта
	DateLabel string

	// Пусто = любой тип
	Kind database.ContentKind

	// ID важнее имени, если заданы оба
	SenderID   int64
	SenderName string

	// nil = все темы
	TopicID *int
}

func (f Filters) Empty() bool {
	return len(f.Predicates()) == 0
}

func (f Filters) Predicates() []database.Predicate {
	var preds []database.Predicate
	if f.Text != "" {
		preds = append(preds, database.TextMatch{Text: f.Text})
	}
	if f.From != nil || f.To != nil {
		preds = append(preds, database.DateRange{From: f.From, To: f.To})
	}
	if f.Kind != "" {
		preds = append(preds, database.MediaKind{Kind: f.Kind})
	}
	switch {
	case f.SenderID != 0:
		preds = append(preds, database.SenderMatch{ID: f.SenderID})
	case f.SenderName != "":
		preds = append(preds, database.SenderMatch{Name: f.SenderName})
	}
	if f.TopicID != nil {
		preds = append(preds, database.TopicMatch{TopicID: *f.TopicID})
	}
	return preds
}

func (f *Filters) SetSender(id int64, name string) {
	f.SenderID = id
	f.SenderName = name
	if id != 0 {
		f.SenderName = ""
	}
}

func (f *Filters) SetDates(from, to time.Time, label string) {
	f.From = &from
	f.To = &to
	f.DateLabel = label
}

func (f *Filters) ClearDates() {
	f.From, f.To, f.DateLabel = nil, nil, ""
}

// Describe возвращает строки для меню поиска и отчёта
func (f Filters) Describe() []string {
	var lines []string
	if f.Text != "" {
		lines = append(lines, fmt.Sprintf("Text: %s", f.Text))
	}
	if f.From != nil || f.To != nil {
		label := f.DateLabel
		if label == "" {
			label = fmt.Sprintf("%s .. %s", formatBound(f.From, "start"), formatBound(f.To, "end"))
		}
		lines = append(lines, fmt.Sprintf("Date: %s", label))
	}
	if f.Kind != "" {
		lines = append(lines, fmt.Sprintf("Type: %s", f.Kind))
	}
	switch {
	case f.SenderID != 0:
		lines = append(lines, fmt.Sprintf("Sender ID: %d", f.SenderID))
	case f.SenderName != "":
		lines = append(lines, fmt.Sprintf("Sender: %s", f.SenderName))
	}
	if f.TopicID != nil {
		lines = append(lines, fmt.Sprintf("Topic: %d", *f.TopicID))
	}
	return lines
}

func formatBound(t *time.Time, def string) string {
	if t == nil {
		return def
	}
	return t.Format("2006-01-02")
}
