package handlers

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tg_archive_bot/database"
	"tg_archive_bot/messages"
	"tg_archive_bot/session"
	"tg_archive_bot/validate"
)

// Мастер источника: тип → ссылка → название → [темы] → фильтры → сохранение.
// Черновик живёт только в сессии, в базу пишется одним вызовом на шаге save.

func (h *Handler) startSetup(ctx context.Context, userID int64) {
	st := h.startFlow(ctx, userID, session.FlowSetup, session.StepSourceType)
	st.Draft = &database.Source{
		IsActive:  true,
		Filter:    database.DefaultFilterConfig(),
		CreatedBy: userID,
	}
	h.save(st)
	h.send(ctx, userID, messages.MsgChooseSourceType, sourceTypeKeyboard())
}

// startEdit открывает шаг фильтров для существующего источника
func (h *Handler) startEdit(ctx context.Context, userID int64, t target, sourceID int64) {
	src, err := h.store.GetSource(ctx, sourceID)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}
	st := h.startFlow(ctx, userID, session.FlowEditSource, session.StepFilters)
	draft := *src
	draft.Filter = src.Filter.Clone()
	if src.Topics != nil {
		topics := *src.Topics
		topics.IDs = append([]int(nil), src.Topics.IDs...)
		draft.Topics = &topics
	}
	st.Draft = &draft
	st.EditingID = src.ID
	h.save(st)
	h.reply(ctx, t, filterMenuText(&draft), filterKeyboard(&draft))
}

func filterMenuText(d *database.Source) string {
	return messages.FormatFilterMenu(d.Title, d.Type, d.Topics, d.Filter)
}

func (h *Handler) setupInput(ctx context.Context, st session.State, text string) {
	userID := st.UserID
	d := st.Draft
	if d == nil {
		h.dropSession(userID)
		h.send(ctx, userID, messages.MsgSessionExpired, mainMenu(true))
		return
	}

	switch st.Step {
	case session.StepSourceLink:
		link, err := validate.ParseSourceLink(text)
		if err != nil {
			h.send(ctx, userID, messages.MsgInvalidLink, nil)
			return
		}
		d.ChatID, d.Username = link.ChatID, link.Username
		st.Step = session.StepTitle
		h.save(st)
		h.send(ctx, userID, messages.MsgAskTitle, nil)

	case session.StepTitle:
		title, err := validate.ParseTitle(text)
		if err != nil {
			h.send(ctx, userID, messages.MsgInvalidTitle, nil)
			return
		}
		d.Title = title
		if d.Type == database.SourceTopicGroup {
			st.Step = session.StepTopics
			h.save(st)
			h.send(ctx, userID, messages.MsgAskTopics, nil)
			return
		}
		st.Step = session.StepFilters
		h.save(st)
		h.send(ctx, userID, filterMenuText(d), filterKeyboard(d))

	case session.StepTopics:
		topics, err := validate.ParseTopics(text)
		if err != nil {
			h.send(ctx, userID, messages.MsgInvalidTopics, nil)
			return
		}
		d.Topics = &topics
		st.Step = session.StepFilters
		h.save(st)
		h.send(ctx, userID, filterMenuText(d), filterKeyboard(d))

	case session.StepKeywords:
		keywords, cleared := validate.ParseKeywords(text)
		d.Filter.Keywords = keywords
		notice := messages.FormatKeywordsSaved(len(keywords))
		if cleared {
			d.Filter.Keywords = nil
			notice = messages.MsgKeywordsCleared
		}
		st.Step = session.StepFilters
		h.save(st)
		h.send(ctx, userID, notice, nil)
		h.send(ctx, userID, filterMenuText(d), filterKeyboard(d))

	case session.StepSourceType, session.StepFilters:
		// ждём нажатия кнопки
		h.send(ctx, userID, messages.MsgUnknownInput, nil)
	}
}

func (h *Handler) onArchiveCallback(ctx context.Context, userID int64, t target, data Callback) {
	id, hasID := data.ID(0)

	switch data.Action {
	case "list":
		h.showSources(ctx, t)
	case "view":
		if !hasID {
			unknownAction(data)
			return
		}
		h.showSource(ctx, t, id)
	case "active":
		if !hasID {
			unknownAction(data)
			return
		}
		h.toggleSourceActive(ctx, t, id)
	case "edit":
		if !hasID {
			unknownAction(data)
			return
		}
		h.startEdit(ctx, userID, t, id)
	case "delete":
		if !hasID {
			unknownAction(data)
			return
		}
		h.confirmDeleteSource(ctx, t, id)
	case "delete_ok":
		if !hasID {
			unknownAction(data)
			return
		}
		h.deleteSource(ctx, t, id)

	case "type":
		st, ok := h.activeState(ctx, userID, t, session.FlowSetup)
		if !ok {
			return
		}
		if !hasID || id < 0 || int(id) >= len(database.SourceTypes) || st.Step != session.StepSourceType || st.Draft == nil {
			unknownAction(data)
			return
		}
		st.Draft.Type = database.SourceTypes[id]
		st.Step = session.StepSourceLink
		h.save(st)
		h.reply(ctx, t, messages.MsgAskSourceLink, nil)

	case "toggle":
		st, ok := h.activeState(ctx, userID, t, session.FlowSetup, session.FlowEditSource)
		if !ok {
			return
		}
		if !hasID || id < 0 || int(id) >= len(database.ContentKinds) || !filterStep(st) {
			unknownAction(data)
			return
		}
		st.Draft.Filter.Toggle(database.ContentKinds[id])
		st.Step = session.StepFilters
		h.save(st)
		h.reply(ctx, t, filterMenuText(st.Draft), filterKeyboard(st.Draft))

	case "keywords":
		st, ok := h.activeState(ctx, userID, t, session.FlowSetup, session.FlowEditSource)
		if !ok {
			return
		}
		if !filterStep(st) {
			unknownAction(data)
			return
		}
		st.Step = session.StepKeywords
		h.save(st)
		h.send(ctx, userID, messages.MsgAskKeywords, nil)

	case "topics":
		st, ok := h.activeState(ctx, userID, t, session.FlowSetup, session.FlowEditSource)
		if !ok {
			return
		}
		if !filterStep(st) {
			unknownAction(data)
			return
		}
		st.Step = session.StepTopics
		h.save(st)
		h.send(ctx, userID, messages.MsgAskTopics, nil)

	case "save":
		st, ok := h.activeState(ctx, userID, t, session.FlowSetup, session.FlowEditSource)
		if !ok {
			return
		}
		h.saveSource(ctx, t, st)

	case "cancel":
		h.dropSession(userID)
		h.reply(ctx, t, messages.MsgCancelled, nil)

	default:
		unknownAction(data)
	}
}

// filterStep: кнопки меню фильтров действуют только после названия и тем
func filterStep(st session.State) bool {
	if st.Draft == nil {
		return false
	}
	return st.Step == session.StepFilters || st.Step == session.StepKeywords
}

// saveSource: единственная запись мастера в базу
func (h *Handler) saveSource(ctx context.Context, t target, st session.State) {
	d := st.Draft
	if d == nil || st.Step != session.StepFilters || d.Title == "" {
		h.reply(ctx, t, messages.MsgSessionExpired, nil)
		return
	}
	if d.Type == database.SourceTopicGroup && d.Topics == nil {
		st.Step = session.StepTopics
		h.save(st)
		h.send(ctx, st.UserID, messages.MsgAskTopics, nil)
		return
	}

	if st.Flow == session.FlowEditSource {
		d.ID = st.EditingID
		if err := h.store.UpdateSource(ctx, d); err != nil {
			h.fail(ctx, t, err, "UpdateSource")
			return
		}
		h.sessions.Clear(st.UserID)
		log.WithFields(log.Fields{"source_id": d.ID, "user_id": st.UserID}).Info("source updated")
		h.reply(ctx, t, messages.FormatSourceUpdated(d.Title), backToSourcesKeyboard())
		return
	}

	if err := h.store.CreateSource(ctx, d); err != nil {
		h.fail(ctx, t, err, "CreateSource")
		return
	}
	h.sessions.Clear(st.UserID)
	log.WithFields(log.Fields{"source_id": d.ID, "type": d.Type, "user_id": st.UserID}).Info("source created")
	h.reply(ctx, t, messages.FormatSourceSaved(d.Title, d.ID), backToSourcesKeyboard())
}
