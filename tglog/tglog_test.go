package tglog

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg_archive_bot/messages"
)

type recorder struct {
	mu   sync.Mutex
	sent []*bot.SendMessageParams
	err  error
}

func (r *recorder) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, p)
	return &models.Message{}, r.err
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.sent {
		out = append(out, p.Text)
	}
	return out
}

func newLogger(h *Hook) *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	l.AddHook(h)
	return l
}

func TestNewDisabled(t *testing.T) {
	assert.Nil(t, New(&recorder{}, 0))
	assert.Nil(t, New(nil, -100))
}

func TestHookForwardsWarnings(t *testing.T) {
	rec := &recorder{}
	h := New(rec, -1001)
	require.NotNil(t, h)
	l := newLogger(h)

	l.Info("not forwarded")
	l.WithFields(log.Fields{"source_id": 3, "component": "archive"}).Error("upsert failed")
	l.Warn("slow")
	h.Wait()

	texts := rec.texts()
	require.Len(t, texts, 2)
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "[ERROR]")
	assert.Contains(t, joined, "upsert failed\ncomponent=archive\nsource_id=3")
	assert.Contains(t, joined, "[WARNING]")
	assert.NotContains(t, joined, "not forwarded")

	for _, p := range rec.sent {
		assert.Equal(t, int64(-1001), p.ChatID)
	}
}

func TestHookSendErrorDoesNotFail(t *testing.T) {
	rec := &recorder{err: errors.New("forbidden")}
	h := New(rec, -1001)
	l := newLogger(h)

	l.Error("boom")
	h.Wait()
	assert.Len(t, rec.texts(), 1)
}

func TestFormatTruncates(t *testing.T) {
	e := &log.Entry{
		Level:   log.ErrorLevel,
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Message: strings.Repeat("я", 5000),
		Data:    log.Fields{},
	}
	text := Format(e)
	assert.True(t, strings.HasPrefix(text, "[ERROR] 2024-01-02 03:04:05\n"))
	assert.Equal(t, maxText, len([]rune(text)))
}

func TestFormatTruncatesEmojiByUTF16(t *testing.T) {
	e := &log.Entry{
		Level:   log.WarnLevel,
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Message: strings.Repeat("😀", 3000),
		Data:    log.Fields{},
	}
	text := Format(e)
	assert.LessOrEqual(t, messages.TextLen(text), maxText)
	assert.True(t, strings.HasSuffix(text, "…"))
}
