package database

import (
	"strconv"
	"strings"
	"time"
)

// Predicate: одно условие поиска по archived_messages.
// SQL использует плейсхолдеры "?", адаптер переписывает их под свой драйвер.
type Predicate interface {
	SQL() (string, []any)
	Match(m *ArchivedMessage) bool
}

// TextMatch: поиск подстроки в тексте без учёта регистра
type TextMatch struct {
	Text string
}

func (p TextMatch) SQL() (string, []any) {
	return `LOWER(message_text) LIKE ? ESCAPE '\'`, []any{likePattern(p.Text)}
}

func (p TextMatch) Match(m *ArchivedMessage) bool {
	return containsFold(m.Text, p.Text)
}

// DateRange: включительный диапазон по message_date, nil = без границы
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (p DateRange) SQL() (string, []any) {
	var (
		parts []string
		args  []any
	)
	if p.From != nil {
		parts = append(parts, "message_date >= ?")
		args = append(args, p.From.UTC())
	}
	if p.To != nil {
		parts = append(parts, "message_date <= ?")
		args = append(args, p.To.UTC())
	}
	if len(parts) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(parts, " AND "), args
}

func (p DateRange) Match(m *ArchivedMessage) bool {
	if p.From != nil && m.MessageDate.Before(*p.From) {
		return false
	}
	if p.To != nil && m.MessageDate.After(*p.To) {
		return false
	}
	return true
}

type MediaKind struct {
	Kind ContentKind
}

func (p MediaKind) SQL() (string, []any) {
	return "media_type = ?", []any{string(p.Kind)}
}

func (p MediaKind) Match(m *ArchivedMessage) bool {
	return m.Kind == p.Kind
}

// SenderMatch ищет по ID отправителя, если он задан,
// иначе по подстроке имени без учёта регистра.
type SenderMatch struct {
	ID   int64
	Name string
}

func (p SenderMatch) SQL() (string, []any) {
	if p.ID != 0 {
		return "sender_id = ?", []any{p.ID}
	}
	return `LOWER(sender_name) LIKE ? ESCAPE '\'`, []any{likePattern(p.Name)}
}

func (p SenderMatch) Match(m *ArchivedMessage) bool {
	if p.ID != 0 {
		return m.SenderID == p.ID
	}
	return containsFold(m.SenderName, p.Name)
}

type TopicMatch struct {
	TopicID int
}

func (p TopicMatch) SQL() (string, []any) {
	return "topic_id = ?", []any{p.TopicID}
}

func (p TopicMatch) Match(m *ArchivedMessage) bool {
	return m.TopicID != nil && *m.TopicID == p.TopicID
}

// BuildWhere склеивает фильтр по источнику и предикаты через AND
func BuildWhere(sourceID int64, preds []Predicate) (string, []any) {
	clauses := []string{"source_id = ?"}
	args := []any{sourceID}
	for _, p := range preds {
		sql, a := p.SQL()
		clauses = append(clauses, "("+sql+")")
		args = append(args, a...)
	}
	return strings.Join(clauses, " AND "), args
}

// MatchAll проверяет предикаты в памяти
func MatchAll(m *ArchivedMessage, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(m) {
			return false
		}
	}
	return true
}

// rebindDollar заменяет "?" на $1..$n
func rebindDollar(query string, offset int) string {
	var b strings.Builder
	n := offset
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
