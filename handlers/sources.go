package handlers

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tg_archive_bot/messages"
)

func (h *Handler) showSources(ctx context.Context, t target) {
	sources, err := h.store.ListSources(ctx)
	if err != nil {
		h.fail(ctx, t, err, "ListSources")
		return
	}
	if len(sources) == 0 {
		h.reply(ctx, t, messages.MsgNoSources, nil)
		return
	}
	h.reply(ctx, t, messages.MsgSourcesList, sourceListKeyboard(sources))
}

func (h *Handler) showSource(ctx context.Context, t target, id int64) {
	src, err := h.store.GetSource(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}
	count, err := h.store.CountMessages(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "CountMessages")
		return
	}
	h.reply(ctx, t, messages.FormatSourceDetails(src, count), sourceDetailsKeyboard(src))
}

func (h *Handler) toggleSourceActive(ctx context.Context, t target, id int64) {
	src, err := h.store.GetSource(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}
	if err := h.store.SetSourceActive(ctx, id, !src.IsActive); err != nil {
		h.fail(ctx, t, err, "SetSourceActive")
		return
	}
	log.WithFields(log.Fields{"source_id": id, "active": !src.IsActive}).Info("source toggled")
	h.showSource(ctx, t, id)
}

func (h *Handler) confirmDeleteSource(ctx context.Context, t target, id int64) {
	src, err := h.store.GetSource(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}
	count, err := h.store.CountMessages(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "CountMessages")
		return
	}
	h.reply(ctx, t, messages.FormatConfirmDelete(src.Title, count), confirmDeleteKeyboard(id))
}

func (h *Handler) deleteSource(ctx context.Context, t target, id int64) {
	src, err := h.store.GetSource(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}
	if err := h.store.DeleteSource(ctx, id); err != nil {
		h.fail(ctx, t, err, "DeleteSource")
		return
	}
	log.WithFields(log.Fields{"source_id": id, "title": src.Title}).Info("source deleted")
	h.reply(ctx, t, messages.FormatSourceDeleted(src.Title), backToSourcesKeyboard())
}
