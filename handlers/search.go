package handlers

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/database"
	"tg_archive_bot/messages"
	"tg_archive_bot/search"
	"tg_archive_bot/session"
	"tg_archive_bot/validate"
)

// Лимит подписи к медиа в Telegram
const maxCaptionLen = 1024

// searchZone: пресеты и введённые даты считаются в одной зоне с message_date
var searchZone = time.UTC

func (h *Handler) startSearch(ctx context.Context, userID int64, admin bool) {
	sources, err := h.store.AccessibleSources(ctx, userID)
	if err != nil {
		h.fail(ctx, target{chatID: userID}, err, "AccessibleSources")
		return
	}
	if len(sources) == 0 {
		h.send(ctx, userID, messages.MsgNoAccessibleSources, mainMenu(admin))
		return
	}
	h.startFlow(ctx, userID, session.FlowSearch, session.StepSearchSource)
	h.send(ctx, userID, messages.MsgChooseSearchSource, searchSourcesKeyboard(sources))
}

// canSearch: админ видит всё, остальные только разрешённые активные источники
func (h *Handler) canSearch(ctx context.Context, userID, sourceID int64) (bool, error) {
	sources, err := h.store.AccessibleSources(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, s := range sources {
		if s.ID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (h *Handler) showSearchMenu(ctx context.Context, t target, st session.State) {
	src, err := h.store.GetSource(ctx, st.SearchSourceID)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}
	text := messages.FormatSearchMenu(src.Title, st.Filters.Describe())
	h.reply(ctx, t, text, searchMenuKeyboard(st.Filters, src.Type == database.SourceTopicGroup))
}

func (h *Handler) onSearchCallback(ctx context.Context, userID int64, admin bool, t target, data Callback) {
	if data.Action == "new" {
		h.startSearch(ctx, userID, admin)
		return
	}
	if data.Action == "cancel" {
		h.dropSession(userID)
		h.reply(ctx, t, messages.MsgCancelled, nil)
		return
	}

	st, ok := h.activeState(ctx, userID, t, session.FlowSearch)
	if !ok {
		return
	}
	id, hasID := data.ID(0)

	switch data.Action {
	case "source":
		if !hasID {
			unknownAction(data)
			return
		}
		allowed, err := h.canSearch(ctx, userID, id)
		if err != nil {
			h.fail(ctx, t, err, "AccessibleSources")
			return
		}
		if !allowed {
			h.reply(ctx, t, messages.MsgAccessDenied, nil)
			return
		}
		st.SearchSourceID = id
		st.Filters = search.Filters{}
		st.Result = nil
		st.Step = session.StepSearchMenu
		h.save(st)
		h.showSearchMenu(ctx, t, st)
		return
	}

	// остальные действия требуют выбранного источника
	if st.SearchSourceID == 0 {
		h.reply(ctx, t, messages.MsgSessionExpired, nil)
		return
	}

	switch data.Action {
	case "menu":
		st.Step = session.StepSearchMenu
		h.save(st)
		h.showSearchMenu(ctx, t, st)

	case "text":
		h.askSearchInput(ctx, t, st, session.StepSearchText, messages.MsgAskSearchText)
	case "sender":
		h.askSearchInput(ctx, t, st, session.StepSearchSender, messages.MsgAskSender)
	case "topic":
		h.askSearchInput(ctx, t, st, session.StepSearchTopic, messages.MsgAskTopic)
	case "date_custom":
		h.askSearchInput(ctx, t, st, session.StepSearchDate, messages.MsgAskCustomDate)

	case "date":
		h.reply(ctx, t, messages.MsgChooseDate, dateKeyboard())
	case "preset":
		if !hasID || id < 0 || int(id) >= len(search.DatePresets) {
			unknownAction(data)
			return
		}
		p := search.DatePresets[id]
		from, to, err := search.PresetRange(p, h.now().In(searchZone))
		if err != nil {
			unknownAction(data)
			return
		}
		st.Filters.SetDates(from, to, search.PresetLabel(p))
		h.filtersChanged(ctx, t, st)
	case "date_clear":
		st.Filters.ClearDates()
		h.filtersChanged(ctx, t, st)

	case "kind":
		h.reply(ctx, t, messages.MsgChooseKind, kindKeyboard())
	case "set_kind":
		if !hasID || id < 0 || int(id) >= len(database.ContentKinds) {
			unknownAction(data)
			return
		}
		st.Filters.Kind = database.ContentKinds[id]
		h.filtersChanged(ctx, t, st)
	case "kind_any":
		st.Filters.Kind = ""
		h.filtersChanged(ctx, t, st)

	case "reset":
		st.Filters = search.Filters{}
		h.filtersChanged(ctx, t, st)

	case "run":
		h.runSearch(ctx, t, st)
	case "page":
		if !hasID {
			unknownAction(data)
			return
		}
		h.showResults(ctx, t, st, int(id))
	case "open":
		if !hasID {
			unknownAction(data)
			return
		}
		h.openResult(ctx, t, st, id)
	case "export":
		h.exportResults(ctx, t, st)

	default:
		unknownAction(data)
	}
}

func (h *Handler) askSearchInput(ctx context.Context, t target, st session.State, step session.Step, prompt string) {
	st.Step = step
	h.save(st)
	h.reply(ctx, t, prompt, nil)
}

// filtersChanged: прежний результат больше не соответствует фильтрам
func (h *Handler) filtersChanged(ctx context.Context, t target, st session.State) {
	st.Result = nil
	st.Step = session.StepSearchMenu
	h.save(st)
	h.showSearchMenu(ctx, t, st)
}

func (h *Handler) searchInput(ctx context.Context, st session.State, text string) {
	userID := st.UserID
	t := target{chatID: userID}

	switch st.Step {
	case session.StepSearchText:
		q, err := validate.ParseSearchText(text)
		if err != nil {
			h.send(ctx, userID, messages.MsgInvalidSearchText, nil)
			return
		}
		st.Filters.Text = q

	case session.StepSearchDate:
		from, to, err := validate.ParseDateRange(text, searchZone)
		if err != nil {
			h.send(ctx, userID, messages.MsgInvalidDate, nil)
			return
		}
		st.Filters.SetDates(from, to, "")

	case session.StepSearchSender:
		id, name, err := validate.ParseSender(text)
		if err != nil {
			h.send(ctx, userID, messages.MsgInvalidSender, nil)
			return
		}
		st.Filters.SetSender(id, name)

	case session.StepSearchTopic:
		topic, all, err := validate.ParseTopicFilter(text)
		if err != nil {
			h.send(ctx, userID, messages.MsgInvalidTopic, nil)
			return
		}
		st.Filters.TopicID = nil
		if !all {
			st.Filters.TopicID = &topic
		}

	default:
		h.send(ctx, userID, messages.MsgUnknownInput, nil)
		return
	}
	h.filtersChanged(ctx, t, st)
}

func (h *Handler) runSearch(ctx context.Context, t target, st session.State) {
	res, err := h.engine.Run(ctx, st.SearchSourceID, st.Filters)
	if err != nil {
		h.fail(ctx, t, err, "SearchMessages")
		return
	}
	log.WithFields(log.Fields{
		"user_id":   st.UserID,
		"source_id": st.SearchSourceID,
		"found":     res.Total(),
	}).Info("search executed")

	st.Result = res
	st.Step = session.StepResults
	h.save(st)
	if res.Total() == 0 {
		h.reply(ctx, t, messages.MsgNoResults, noResultsKeyboard())
		return
	}
	h.showResults(ctx, t, st, 1)
}

// showResults листает сохранённый результат без повторного запроса
func (h *Handler) showResults(ctx context.Context, t target, st session.State, n int) {
	if st.Result == nil {
		h.reply(ctx, t, messages.MsgSearchExpired, noResultsKeyboard())
		return
	}
	p := st.Result.Page(n)
	st.Page = p.Number
	h.save(st)
	text := messages.FormatResultsPage(st.Result.Total(), p.Number, p.Pages, p.Offset, p.Items)
	h.reply(ctx, t, text, resultsKeyboard(p))
}

func (h *Handler) openResult(ctx context.Context, t target, st session.State, id int64) {
	if st.Result == nil {
		h.reply(ctx, t, messages.MsgSearchExpired, noResultsKeyboard())
		return
	}
	m, ok := st.Result.Find(id)
	if !ok {
		h.send(ctx, t.chatID, messages.MsgNotFound, nil)
		return
	}
	// название источника для карточки
	if m.SourceTitle == "" {
		if full, err := h.store.GetMessage(ctx, m.ID); err == nil {
			m = full
		}
	}

	details := messages.FormatMessageDetails(m)
	if m.Kind == database.KindText || m.MediaFileID == "" {
		h.send(ctx, t.chatID, details, nil)
		return
	}

	caption := details
	if messages.TextLen(caption) > maxCaptionLen || m.Kind == database.KindSticker {
		caption = ""
	}
	if err := h.sendMedia(ctx, t.chatID, m, caption); err != nil {
		log.WithError(err).WithFields(log.Fields{"message_id": m.ID, "kind": m.Kind}).Warn("media re-send failed")
		h.send(ctx, t.chatID, messages.MsgMediaUnavailable+"\n\n"+details, nil)
		return
	}
	if caption == "" {
		h.send(ctx, t.chatID, details, nil)
	}
}

// sendMedia пересылает медиа по сохранённому file_id
func (h *Handler) sendMedia(ctx context.Context, chatID int64, m *database.ArchivedMessage, caption string) error {
	file := &models.InputFileString{Data: m.MediaFileID}
	var err error
	switch m.Kind {
	case database.KindPhoto:
		_, err = h.bot.SendPhoto(ctx, &bot.SendPhotoParams{ChatID: chatID, Photo: file, Caption: caption})
	case database.KindVideo:
		_, err = h.bot.SendVideo(ctx, &bot.SendVideoParams{ChatID: chatID, Video: file, Caption: caption})
	case database.KindDocument:
		_, err = h.bot.SendDocument(ctx, &bot.SendDocumentParams{ChatID: chatID, Document: file, Caption: caption})
	case database.KindAudio:
		_, err = h.bot.SendAudio(ctx, &bot.SendAudioParams{ChatID: chatID, Audio: file, Caption: caption})
	case database.KindVoice:
		_, err = h.bot.SendVoice(ctx, &bot.SendVoiceParams{ChatID: chatID, Voice: file, Caption: caption})
	case database.KindAnimation:
		_, err = h.bot.SendAnimation(ctx, &bot.SendAnimationParams{ChatID: chatID, Animation: file, Caption: caption})
	case database.KindSticker:
		_, err = h.bot.SendSticker(ctx, &bot.SendStickerParams{ChatID: chatID, Sticker: file})
	}
	return err
}

// exportResults выгружает сохранённый результат файлом, временный файл удаляется
func (h *Handler) exportResults(ctx context.Context, t target, st session.State) {
	if st.Result == nil {
		h.reply(ctx, t, messages.MsgSearchExpired, noResultsKeyboard())
		return
	}
	src, err := h.store.GetSource(ctx, st.SearchSourceID)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}

	progress := h.send(ctx, t.chatID, messages.MsgExportInProgress, nil)
	defer h.deleteMessage(ctx, progress)

	path, err := search.WriteExportFile(h.exportDir(), src, st.Result, h.now())
	if err != nil {
		log.WithError(err).Error("export failed")
		h.send(ctx, t.chatID, messages.MsgError, nil)
		return
	}
	defer os.Remove(path)

	if err := h.sendFile(ctx, t.chatID, path, messages.FormatExportCaption(st.Result.Total())); err != nil {
		log.WithError(err).WithField("file", filepath.Base(path)).Error("send export failed")
		h.send(ctx, t.chatID, messages.MsgError, nil)
	}
}

func (h *Handler) exportDir() string {
	if h.cfg == nil {
		return ""
	}
	return h.cfg.ExportDir
}

// sendFile загружает локальный файл документом
func (h *Handler) sendFile(ctx context.Context, chatID int64, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = h.bot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filepath.Base(path), Data: f},
		Caption:  caption,
	})
	return err
}
