package tglog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/messages"
)

const (
	sendTimeout = 5 * time.Second
	// Лимит Telegram на длину сообщения
	maxText = 4096
)

// Sender: часть *bot.Bot, нужная хуку
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Hook пересылает записи уровня warn и выше в лог-канал.
// Отправка асинхронная и не блокирует логирующий код.
type Hook struct {
	sender    Sender
	channelID int64
	levels    []log.Level
	wg        sync.WaitGroup
}

// New возвращает nil, если канал не задан
func New(sender Sender, channelID int64) *Hook {
	if channelID == 0 || sender == nil {
		log.Info("LOG_CHANNEL_ID не задан, логирование в канал отключено")
		return nil
	}
	log.WithField("channel_id", channelID).Info("логирование в канал включено")
	return &Hook{
		sender:    sender,
		channelID: channelID,
		levels:    []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel},
	}
}

func (h *Hook) Levels() []log.Level {
	return h.levels
}

func (h *Hook) Fire(entry *log.Entry) error {
	text := Format(entry)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		_, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: h.channelID,
			Text:   text,
		})
		if err != nil {
			// не через logrus, иначе хук вызовет сам себя
			fmt.Printf("tglog: ошибка отправки лога в канал: %v\n", err)
		}
	}()
	return nil
}

// Wait дожидается отправки уже принятых записей
func (h *Hook) Wait() {
	h.wg.Wait()
}

func Format(entry *log.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n%s",
		strings.ToUpper(entry.Level.String()),
		entry.Time.UTC().Format("2006-01-02 15:04:05"),
		entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s=%v", k, entry.Data[k])
	}

	return messages.Truncate(b.String(), maxText)
}
