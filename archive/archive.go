package archive

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/database"
)

type Outcome string

const (
	Archived      Outcome = "archived"
	NoSource      Outcome = "no_source"
	KindDisabled  Outcome = "kind_disabled"
	TopicRejected Outcome = "topic_rejected"
	KeywordMiss   Outcome = "keyword_miss"
)

// Inbound: нормализованное входящее сообщение из группы или канала
type Inbound struct {
	ChatID       int64
	ChatUsername string
	MessageID    int64
	SenderID     int64
	SenderName   string
	Text         string
	Kind         database.ContentKind
	MediaFileID  string
	TopicID      *int
	Date         time.Time
}

// SourceFinder и MessageWriter: всё, что пайплайну нужно от хранилища
type SourceFinder interface {
	FindActiveSource(ctx context.Context, chatID int64, username string) (*database.Source, error)
}

type MessageWriter interface {
	UpsertMessage(ctx context.Context, m *database.ArchivedMessage) error
}

type Pipeline struct {
	sources  SourceFinder
	messages MessageWriter
	log      *log.Entry
}

func NewPipeline(sources SourceFinder, messages MessageWriter) *Pipeline {
	return &Pipeline{
		sources:  sources,
		messages: messages,
		log:      log.WithField("component", "archive"),
	}
}

// Process проверяет сообщение по фильтрам источника и сохраняет его.
// Проверки идут по порядку и прерываются на первой неудачной.
func (p *Pipeline) Process(ctx context.Context, in Inbound) (Outcome, error) {
	src, err := p.sources.FindActiveSource(ctx, in.ChatID, in.ChatUsername)
	if errors.Is(err, database.ErrNotFound) {
		return NoSource, nil
	}
	if err != nil {
		return "", errors.Wrap(err, "archive.Process.FindActiveSource")
	}

	if outcome := Evaluate(src, in); outcome != Archived {
		p.log.WithFields(log.Fields{
			"source_id":  src.ID,
			"message_id": in.MessageID,
			"outcome":    outcome,
		}).Debug("message skipped")
		return outcome, nil
	}

	m := &database.ArchivedMessage{
		SourceID:    src.ID,
		MessageID:   in.MessageID,
		SenderID:    in.SenderID,
		SenderName:  in.SenderName,
		Text:        in.Text,
		Kind:        in.Kind,
		MediaFileID: in.MediaFileID,
		TopicID:     in.TopicID,
		MessageDate: in.Date,
	}
	if in.Kind == database.KindText {
		m.MediaFileID = ""
	}
	if err := p.messages.UpsertMessage(ctx, m); err != nil {
		return "", errors.Wrap(err, "archive.Process.UpsertMessage")
	}

	p.log.WithFields(log.Fields{
		"source_id":  src.ID,
		"message_id": in.MessageID,
		"kind":       in.Kind,
	}).Debug("message archived")
	return Archived, nil
}

// Evaluate применяет фильтр типа, темы и ключевых слов источника
func Evaluate(src *database.Source, in Inbound) Outcome {
	if !src.Filter.Allows(in.Kind) {
		return KindDisabled
	}
	if src.Type == database.SourceTopicGroup && in.TopicID != nil {
		if src.Topics == nil || !src.Topics.Allows(*in.TopicID) {
			return TopicRejected
		}
	}
	if !MatchesKeywords(in.Text, src.Filter.Keywords) {
		return KeywordMiss
	}
	return Archived
}

// MatchesKeywords: пустой список пропускает всё, иначе нужно
// хотя бы одно вхождение без учёта регистра
func MatchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// FromTelegram переводит сообщение Bot API во внутренний формат.
// false, если тип контента не архивируется (сервисные сообщения, опросы и т.п.).
func FromTelegram(msg *models.Message) (Inbound, bool) {
	if msg == nil {
		return Inbound{}, false
	}
	in := Inbound{
		ChatID:       msg.Chat.ID,
		ChatUsername: msg.Chat.Username,
		MessageID:    int64(msg.ID),
		Date:         time.Unix(int64(msg.Date), 0).UTC(),
		SenderName:   SenderName(msg),
	}
	if msg.From != nil {
		in.SenderID = msg.From.ID
	} else if msg.SenderChat != nil {
		in.SenderID = msg.SenderChat.ID
	}

	in.Text = msg.Text
	if in.Text == "" {
		in.Text = msg.Caption
	}

	switch {
	case len(msg.Photo) > 0:
		in.Kind = database.KindPhoto
		// последний размер самый большой
		in.MediaFileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		in.Kind = database.KindVideo
		in.MediaFileID = msg.Video.FileID
	// анимация приходит вместе с document, проверяем раньше
	case msg.Animation != nil:
		in.Kind = database.KindAnimation
		in.MediaFileID = msg.Animation.FileID
	case msg.Document != nil:
		in.Kind = database.KindDocument
		in.MediaFileID = msg.Document.FileID
	case msg.Audio != nil:
		in.Kind = database.KindAudio
		in.MediaFileID = msg.Audio.FileID
	case msg.Voice != nil:
		in.Kind = database.KindVoice
		in.MediaFileID = msg.Voice.FileID
	case msg.Sticker != nil:
		in.Kind = database.KindSticker
		in.MediaFileID = msg.Sticker.FileID
	case msg.Text != "":
		in.Kind = database.KindText
	default:
		return Inbound{}, false
	}

	if msg.IsTopicMessage && msg.MessageThreadID != 0 {
		topic := msg.MessageThreadID
		in.TopicID = &topic
	}
	return in, true
}

// SenderName: "Имя Фамилия (@username)"; без отправителя-пользователя "Unknown".
// Посты каналов и анонимные админы тоже получают "Unknown".
func SenderName(msg *models.Message) string {
	if msg.From == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if msg.From.Username != "" {
		name = strings.TrimSpace(name + " (@" + msg.From.Username + ")")
	}
	if name == "" {
		return "Unknown"
	}
	return name
}
