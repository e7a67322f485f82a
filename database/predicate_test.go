package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildWhere(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := BuildWhere(7, []Predicate{
		TextMatch{Text: "Hello"},
		DateRange{From: &from},
		MediaKind{Kind: KindPhoto},
	})

	assert.Equal(t, `source_id = ? AND (LOWER(message_text) LIKE ? ESCAPE '\') AND (message_date >= ?) AND (media_type = ?)`, where)
	assert.Equal(t, []any{int64(7), "%hello%", from, "photo"}, args)

	assert.Equal(t,
		`source_id = $1 AND (LOWER(message_text) LIKE $2 ESCAPE '\') AND (message_date >= $3) AND (media_type = $4)`,
		rebindDollar(where, 0))
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\% off\_now\\%`, likePattern(`50% OFF_now\`))
}

func TestDateRangeOpenEnds(t *testing.T) {
	sql, args := DateRange{}.SQL()
	assert.Equal(t, "1 = 1", sql)
	assert.Empty(t, args)

	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	sql, args = DateRange{To: &to}.SQL()
	assert.Equal(t, "message_date <= ?", sql)
	assert.Equal(t, []any{to}, args)
}

func TestPredicateMatch(t *testing.T) {
	topic := 4
	m := &ArchivedMessage{
		SenderID:    9,
		SenderName:  "John Smith (@js)",
		Text:        "Quarterly REPORT attached",
		Kind:        KindDocument,
		TopicID:     &topic,
		MessageDate: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)

	assert.True(t, MatchAll(m, []Predicate{
		TextMatch{Text: "report"},
		DateRange{From: &from, To: &to},
		MediaKind{Kind: KindDocument},
		SenderMatch{Name: "smith"},
		SenderMatch{ID: 9},
		TopicMatch{TopicID: 4},
	}))

	assert.False(t, MatchAll(m, []Predicate{MediaKind{Kind: KindPhoto}}))
	assert.False(t, MatchAll(m, []Predicate{TopicMatch{TopicID: 5}}))
	assert.False(t, MatchAll(m, []Predicate{SenderMatch{ID: 10}}))

	later := to.Add(time.Hour)
	assert.False(t, DateRange{From: &later}.Match(m))
	assert.False(t, TopicMatch{TopicID: 4}.Match(&ArchivedMessage{}))
}
