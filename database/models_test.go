package database

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterConfigJSON(t *testing.T) {
	f := DefaultFilterConfig()
	f.Toggle(KindVoice)
	f.Keywords = []string{"urgent"}

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, false, flat["voice"])
	assert.Equal(t, true, flat["text"])
	assert.Equal(t, []any{"urgent"}, flat["keywords"])
	assert.Len(t, flat, len(ContentKinds)+1)
}

func TestFilterConfigDecodeMissingKinds(t *testing.T) {
	var f FilterConfig
	require.NoError(t, json.Unmarshal([]byte(`{"photo":false,"future_kind":true}`), &f))

	assert.False(t, f.Allows(KindPhoto))
	assert.True(t, f.Allows(KindText))
	assert.Empty(t, f.Keywords)
}

func TestFilterConfigCloneIsIndependent(t *testing.T) {
	f := DefaultFilterConfig()
	c := f.Clone()
	c.Toggle(KindText)
	c.Keywords = append(c.Keywords, "x")

	assert.True(t, f.Allows(KindText))
	assert.Empty(t, f.Keywords)
}

func TestTopicListJSON(t *testing.T) {
	raw, err := json.Marshal(TopicList{All: true})
	require.NoError(t, err)
	assert.JSONEq(t, `["all"]`, string(raw))

	raw, err = json.Marshal(TopicList{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	var tl TopicList
	require.NoError(t, json.Unmarshal([]byte(`[12, 40]`), &tl))
	assert.Equal(t, []int{12, 40}, tl.IDs)
	assert.True(t, tl.Allows(40))
	assert.False(t, tl.Allows(41))
	assert.Equal(t, "12, 40", tl.String())

	require.NoError(t, json.Unmarshal([]byte(`["ALL"]`), &tl))
	assert.True(t, tl.All)
	assert.True(t, tl.Allows(999))
	assert.False(t, tl.Empty())

	require.NoError(t, json.Unmarshal([]byte(`null`), &tl))
	assert.True(t, tl.Empty())
}

func TestParseEnums(t *testing.T) {
	kind, ok := ParseContentKind("animation")
	assert.True(t, ok)
	assert.Equal(t, KindAnimation, kind)

	_, ok = ParseContentKind("poll")
	assert.False(t, ok)

	st, ok := ParseSourceType("topic_group")
	assert.True(t, ok)
	assert.Equal(t, SourceTopicGroup, st)

	_, ok = ParseSourceType("bot")
	assert.False(t, ok)
}

func TestCreateStatementsDialects(t *testing.T) {
	pg := strings.Join(CreateStatements(postgresDialect{}), "\n")
	assert.Contains(t, pg, "id BIGSERIAL PRIMARY KEY")
	assert.Contains(t, pg, "filter_config JSONB NOT NULL")
	assert.Contains(t, pg, "FOREIGN KEY (source_id) REFERENCES sources(id),\n\tFOREIGN KEY (user_id) REFERENCES users(user_id)")

	lite := strings.Join(CreateStatements(sqliteDialect{}), "\n")
	assert.Contains(t, lite, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, lite, "is_admin BOOLEAN NOT NULL DEFAULT 0")
	assert.Contains(t, lite, "CREATE INDEX IF NOT EXISTS idx_archived_messages_date ON archived_messages (source_id, message_date)")
}
