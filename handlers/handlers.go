package handlers

//go:generate mockgen -source=handlers.go -destination=mocks/mock_handlers.go -package=mocks

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/archive"
	"tg_archive_bot/backup"
	"tg_archive_bot/config"
	"tg_archive_bot/database"
	"tg_archive_bot/messages"
	"tg_archive_bot/search"
	"tg_archive_bot/session"
)

// Sender: методы *bot.Bot, которыми пользуются обработчики
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
	SendVoice(ctx context.Context, params *bot.SendVoiceParams) (*models.Message, error)
	SendSticker(ctx context.Context, params *bot.SendStickerParams) (*models.Message, error)
	SendAnimation(ctx context.Context, params *bot.SendAnimationParams) (*models.Message, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

// Rescheduler меняет интервал фоновой задачи
type Rescheduler interface {
	Reschedule(name string, interval time.Duration) error
}

const BackupJob = "backup"

type Handler struct {
	bot      Sender
	cfg      *config.Config
	store    database.Store
	sessions *session.Store
	pipeline *archive.Pipeline
	engine   *search.Engine
	backups  *backup.Manager
	jobs     Rescheduler
	http     *http.Client
	now      func() time.Time
}

func New(b Sender, cfg *config.Config, store database.Store, sessions *session.Store, backups *backup.Manager, jobs Rescheduler) *Handler {
	return &Handler{
		bot:      b,
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		pipeline: archive.NewPipeline(store, store),
		engine:   search.NewEngine(store),
		backups:  backups,
		jobs:     jobs,
		http:     &http.Client{Timeout: time.Minute},
		now:      time.Now,
	}
}

// Recover не даёт панике в обработчике остановить диспетчер
func Recover(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("update_id", update.ID).Errorf("handler panic: %v\n%s", r, debug.Stack())
			}
		}()
		next(ctx, b, update)
	}
}

// IsArchivable: сообщения и посты из групп и каналов, включая правки
func IsArchivable(update *models.Update) bool {
	for _, msg := range []*models.Message{update.Message, update.EditedMessage, update.ChannelPost, update.EditedChannelPost} {
		if msg != nil && msg.Chat.Type != models.ChatTypePrivate {
			return true
		}
	}
	return false
}

// IsPrivateMessage: новое сообщение в личке с ботом
func IsPrivateMessage(update *models.Update) bool {
	return update.Message != nil && update.Message.Chat.Type == models.ChatTypePrivate
}

// ============================================
// Archival
// ============================================

func (h *Handler) OnArchive(ctx context.Context, _ *bot.Bot, update *models.Update) {
	for _, msg := range []*models.Message{update.Message, update.EditedMessage, update.ChannelPost, update.EditedChannelPost} {
		if msg == nil || msg.Chat.Type == models.ChatTypePrivate {
			continue
		}
		h.archiveMessage(ctx, msg)
	}
}

func (h *Handler) archiveMessage(ctx context.Context, msg *models.Message) {
	in, ok := archive.FromTelegram(msg)
	if !ok {
		return
	}
	outcome, err := h.pipeline.Process(ctx, in)
	if err != nil {
		// одно битое сообщение не должно останавливать поток
		log.WithError(err).WithFields(log.Fields{
			"chat_id":    in.ChatID,
			"message_id": in.MessageID,
		}).Error("archive failed")
		return
	}
	log.WithFields(log.Fields{
		"chat_id":    in.ChatID,
		"message_id": in.MessageID,
		"outcome":    outcome,
	}).Debug("inbound message processed")
}

// ============================================
// Private messages
// ============================================

func (h *Handler) OnMessage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat.Type != models.ChatTypePrivate {
		return
	}
	userID := msg.From.ID
	h.registerUser(ctx, msg.From)

	admin := h.isAdmin(ctx, userID)
	if !admin && !database.IsBotEnabled(ctx, h.store) {
		h.send(ctx, userID, messages.MsgBotDisabled, nil)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		h.onCommand(ctx, userID, text, admin)
		return
	}
	// кнопки меню прерывают незавершённый шаг
	if h.onMenu(ctx, userID, text, admin) {
		return
	}
	h.onInput(ctx, msg, admin)
}

func (h *Handler) onCommand(ctx context.Context, userID int64, text string, admin bool) {
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		h.dropSession(userID)
		welcome := messages.MsgWelcomeUser
		if admin {
			welcome = messages.MsgWelcomeAdmin
		}
		h.send(ctx, userID, welcome, mainMenu(admin))
	case "/help":
		h.sendHelp(ctx, userID, admin)
	case "/admin":
		if !admin {
			h.send(ctx, userID, messages.MsgAccessDenied, nil)
			return
		}
		h.send(ctx, userID, messages.MsgWelcomeAdmin, mainMenu(true))
	case "/cancel":
		if h.dropSession(userID) {
			h.send(ctx, userID, messages.MsgCancelled, mainMenu(admin))
			return
		}
		h.send(ctx, userID, messages.MsgNothingToCancel, mainMenu(admin))
	default:
		h.send(ctx, userID, messages.MsgUnknownInput, mainMenu(admin))
	}
}

func (h *Handler) sendHelp(ctx context.Context, userID int64, admin bool) {
	text := messages.MsgHelpUser
	if admin {
		text = messages.MsgHelpAdmin
	}
	h.send(ctx, userID, text, mainMenu(admin))
}

// onMenu обрабатывает кнопки reply-клавиатуры
func (h *Handler) onMenu(ctx context.Context, userID int64, text string, admin bool) bool {
	switch text {
	case messages.BtnSearch:
		h.startSearch(ctx, userID, admin)
	case messages.BtnHelp:
		h.sendHelp(ctx, userID, admin)
	case messages.BtnContact:
		h.startContact(ctx, userID)
	case messages.BtnNewArchive, messages.BtnSources, messages.BtnUsers, messages.BtnBackup, messages.BtnSettings:
		if !admin {
			h.send(ctx, userID, messages.MsgAccessDenied, nil)
			return true
		}
		switch text {
		case messages.BtnNewArchive:
			h.startSetup(ctx, userID)
		case messages.BtnSources:
			h.showSources(ctx, target{chatID: userID})
		case messages.BtnUsers:
			h.showUsers(ctx, target{chatID: userID})
		case messages.BtnBackup:
			h.showBackup(ctx, target{chatID: userID})
		case messages.BtnSettings:
			h.showSettings(ctx, target{chatID: userID})
		}
	default:
		return false
	}
	return true
}

// onInput передаёт свободный ввод текущему шагу диалога
func (h *Handler) onInput(ctx context.Context, msg *models.Message, admin bool) {
	userID := msg.From.ID
	st, err := h.sessions.Get(userID)
	switch {
	case errors.Is(err, session.ErrExpired):
		h.cleanupState(st)
		h.send(ctx, userID, messages.MsgSessionExpired, mainMenu(admin))
		return
	case err != nil:
		h.send(ctx, userID, messages.MsgUnknownInput, mainMenu(admin))
		return
	}

	if adminFlow(st.Flow) && !admin {
		h.dropSession(userID)
		h.send(ctx, userID, messages.MsgAccessDenied, mainMenu(false))
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch st.Flow {
	case session.FlowSetup, session.FlowEditSource:
		h.setupInput(ctx, st, text)
	case session.FlowSearch:
		h.searchInput(ctx, st, text)
	case session.FlowAddAdmin:
		h.addAdminInput(ctx, st, text)
	case session.FlowBroadcast:
		h.broadcastInput(ctx, st, text)
	case session.FlowAdminChat:
		h.adminChatInput(ctx, st, text)
	case session.FlowBackupChannel:
		h.backupChannelInput(ctx, st, text)
	case session.FlowRestore:
		h.restoreInput(ctx, st, msg)
	case session.FlowContact:
		h.contactInput(ctx, st, msg)
	default:
		h.send(ctx, userID, messages.MsgUnknownInput, mainMenu(admin))
	}
}

func adminFlow(f session.Flow) bool {
	switch f {
	case session.FlowSearch, session.FlowContact:
		return false
	}
	return true
}

// ============================================
// Callbacks
// ============================================

func (h *Handler) OnCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	h.answer(ctx, cb.ID)

	data, err := ParseCallback(cb.Data)
	if err != nil {
		log.WithError(err).WithField("user_id", cb.From.ID).Warn("callback ignored")
		return
	}

	userID := cb.From.ID
	h.registerUser(ctx, &cb.From)
	admin := h.isAdmin(ctx, userID)
	if !admin && !database.IsBotEnabled(ctx, h.store) {
		h.send(ctx, userID, messages.MsgBotDisabled, nil)
		return
	}

	t := callbackTarget(cb)
	if data.Prefix == PrefixSearch {
		h.onSearchCallback(ctx, userID, admin, t, data)
		return
	}
	if !admin {
		h.send(ctx, userID, messages.MsgAccessDenied, nil)
		return
	}
	switch data.Prefix {
	case PrefixArchive:
		h.onArchiveCallback(ctx, userID, t, data)
	case PrefixUser:
		h.onUserCallback(ctx, userID, t, data)
	case PrefixBackup:
		h.onBackupCallback(ctx, userID, t, data)
	case PrefixConfig:
		h.onConfigCallback(ctx, userID, t, data)
	}
}

// unknownAction: действие без обработчика или без нужного ID
func unknownAction(data Callback) {
	log.WithField("data", data.String()).Warn("callback ignored: unknown action")
}

// target: куда отвечать; с messageID сообщение редактируется
type target struct {
	chatID    int64
	messageID int
}

func callbackTarget(cb *models.CallbackQuery) target {
	if m := cb.Message.Message; m != nil {
		return target{chatID: m.Chat.ID, messageID: m.ID}
	}
	return target{chatID: cb.From.ID}
}

// ============================================
// Helpers
// ============================================

func (h *Handler) registerUser(ctx context.Context, u *models.User) {
	if err := h.store.RegisterUser(ctx, u.ID, displayName(u)); err != nil {
		log.WithError(err).WithField("user_id", u.ID).Error("register user failed")
	}
}

func displayName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	if name == "" {
		name = fmt.Sprintf("User_%d", u.ID)
	}
	return name
}

func (h *Handler) isAdmin(ctx context.Context, userID int64) bool {
	admin, err := database.IsAdmin(ctx, h.store, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("admin check failed")
		return false
	}
	return admin
}

// dropSession сбрасывает диалог и удаляет его временные файлы
func (h *Handler) dropSession(userID int64) bool {
	st, active := h.sessions.Clear(userID)
	h.cleanupState(st)
	return active
}

// startFlow начинает новый диалог и предупреждает о сброшенном
func (h *Handler) startFlow(ctx context.Context, userID int64, flow session.Flow, step session.Step) session.State {
	st, replaced := h.sessions.Start(userID, flow, step)
	if replaced != nil {
		h.cleanupState(*replaced)
		h.send(ctx, userID, messages.FormatWizardReplaced(replaced.Label()), nil)
	}
	return st
}

func (h *Handler) save(st session.State) {
	if !h.sessions.Put(st) {
		log.WithFields(log.Fields{"user_id": st.UserID, "flow": st.Flow}).Debug("stale session not saved")
	}
}

func (h *Handler) answer(ctx context.Context, callbackID string) {
	_, err := h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID})
	if err != nil {
		log.WithError(err).Debug("answer callback failed")
	}
}

// send режет длинный текст на части, клавиатура уходит с последней
func (h *Handler) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) *models.Message {
	parts := messages.Split(text, messages.MaxMessageLen)
	var last *models.Message
	for i, part := range parts {
		params := &bot.SendMessageParams{ChatID: chatID, Text: part}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}
		m, err := h.bot.SendMessage(ctx, params)
		if err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("send message failed")
			return nil
		}
		last = m
	}
	return last
}

// reply редактирует сообщение с кнопками или отправляет новое
func (h *Handler) reply(ctx context.Context, t target, text string, markup *models.InlineKeyboardMarkup) {
	if t.messageID == 0 || messages.TextLen(text) > messages.MaxMessageLen {
		if markup == nil {
			h.send(ctx, t.chatID, text, nil)
			return
		}
		h.send(ctx, t.chatID, text, markup)
		return
	}

	params := &bot.EditMessageTextParams{ChatID: t.chatID, MessageID: t.messageID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	_, err := h.bot.EditMessageText(ctx, params)
	if err == nil {
		return
	}
	if strings.Contains(err.Error(), "message is not modified") {
		return
	}
	log.WithError(err).WithField("chat_id", t.chatID).Debug("edit failed, sending new message")
	if markup == nil {
		h.send(ctx, t.chatID, text, nil)
		return
	}
	h.send(ctx, t.chatID, text, markup)
}

func (h *Handler) deleteMessage(ctx context.Context, m *models.Message) {
	if m == nil {
		return
	}
	_, err := h.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: m.Chat.ID, MessageID: m.ID})
	if err != nil {
		log.WithError(err).Debug("delete message failed")
	}
}

// fail логирует ошибку хранилища и сообщает пользователю коротко.
// Пропавшая запись завершает текущий диалог и возвращает в меню.
func (h *Handler) fail(ctx context.Context, t target, err error, op string) {
	if errors.Is(err, database.ErrNotFound) {
		// ответы идут в личный чат, его ID совпадает с ID пользователя
		h.dropSession(t.chatID)
		h.send(ctx, t.chatID, messages.MsgNotFound, mainMenu(h.isAdmin(ctx, t.chatID)))
		return
	}
	log.WithError(err).WithField("op", op).Error("operation failed")
	h.reply(ctx, t, messages.MsgError, nil)
}

// activeState возвращает состояние одного из диалогов flows,
// иначе сообщает пользователю, что диалог истёк
func (h *Handler) activeState(ctx context.Context, userID int64, t target, flows ...session.Flow) (session.State, bool) {
	st, err := h.sessions.Get(userID)
	if err == nil {
		for _, f := range flows {
			if st.Flow == f {
				return st, true
			}
		}
	}
	if errors.Is(err, session.ErrExpired) {
		h.cleanupState(st)
	}
	h.reply(ctx, t, messages.MsgSessionExpired, nil)
	return session.State{}, false
}
