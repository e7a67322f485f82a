package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/database"
	"tg_archive_bot/messages"
	"tg_archive_bot/session"
	"tg_archive_bot/validate"
)

func (h *Handler) configInt(ctx context.Context, name string, def int) int {
	v, err := h.store.GetConfig(ctx, name, strconv.Itoa(def))
	if err != nil {
		log.WithError(err).WithField("name", name).Error("get config failed")
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func (h *Handler) configString(ctx context.Context, name string) string {
	v, err := h.store.GetConfig(ctx, name, "")
	if err != nil {
		log.WithError(err).WithField("name", name).Error("get config failed")
		return ""
	}
	return strings.TrimSpace(v)
}

func (h *Handler) showSettings(ctx context.Context, t target) {
	view := messages.SettingsView{
		BotEnabled:      database.IsBotEnabled(ctx, h.store),
		BackupInterval:  h.configInt(ctx, database.ConfigBackupInterval, 0),
		AdminChatID:     h.configString(ctx, database.ConfigAdminChatID),
		BackupChannelID: h.configString(ctx, database.ConfigBackupChannelID),
	}
	h.reply(ctx, t, messages.FormatSettings(view), settingsKeyboard(view.BotEnabled))
}

func (h *Handler) onConfigCallback(ctx context.Context, userID int64, t target, data Callback) {
	switch data.Action {
	case "menu":
		h.showSettings(ctx, t)

	case "toggle_bot":
		enabled := !database.IsBotEnabled(ctx, h.store)
		if err := h.store.SetConfig(ctx, database.ConfigBotEnabled, strconv.FormatBool(enabled)); err != nil {
			h.fail(ctx, t, err, "SetConfig")
			return
		}
		log.WithFields(log.Fields{"enabled": enabled, "by": userID}).Info("bot toggled")
		h.send(ctx, userID, messages.FormatBotToggled(enabled), nil)
		h.showSettings(ctx, t)

	case "broadcast":
		h.startFlow(ctx, userID, session.FlowBroadcast, session.StepInput)
		h.reply(ctx, t, messages.MsgAskBroadcast, nil)

	case "broadcast_ok":
		st, ok := h.activeState(ctx, userID, t, session.FlowBroadcast)
		if !ok {
			return
		}
		if st.Step != session.StepConfirm || st.Payload == "" {
			h.reply(ctx, t, messages.MsgSessionExpired, nil)
			return
		}
		h.sessions.Clear(userID)
		h.broadcast(ctx, t, st.Payload)

	case "broadcast_no":
		h.dropSession(userID)
		h.reply(ctx, t, messages.MsgCancelled, nil)

	case "admin_chat":
		h.startFlow(ctx, userID, session.FlowAdminChat, session.StepInput)
		h.reply(ctx, t, messages.MsgAskAdminChat, nil)

	default:
		unknownAction(data)
	}
}

func (h *Handler) broadcastInput(ctx context.Context, st session.State, text string) {
	if st.Step != session.StepInput {
		h.send(ctx, st.UserID, messages.MsgUnknownInput, nil)
		return
	}
	if text == "" {
		h.send(ctx, st.UserID, messages.MsgBroadcastEmpty, nil)
		return
	}
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.fail(ctx, target{chatID: st.UserID}, err, "ListUsers")
		return
	}
	st.Payload = text
	st.Step = session.StepConfirm
	h.save(st)
	h.send(ctx, st.UserID, messages.FormatBroadcastPreview(text, len(users)),
		confirmKeyboard(PrefixConfig, "broadcast_ok", "broadcast_no"))
}

// broadcast отправляет текст всем пользователям, ошибки доставки только считаются
func (h *Handler) broadcast(ctx context.Context, t target, text string) {
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.fail(ctx, t, err, "ListUsers")
		return
	}
	var sent, failed int
	for _, u := range users {
		if h.send(ctx, u.ID, text, nil) == nil {
			failed++
			continue
		}
		sent++
	}
	log.WithFields(log.Fields{"sent": sent, "failed": failed}).Info("broadcast finished")
	h.reply(ctx, t, messages.FormatBroadcastDone(sent, failed), nil)
}

func (h *Handler) adminChatInput(ctx context.Context, st session.State, text string) {
	value := ""
	if !strings.EqualFold(text, "clear") {
		id, err := validate.ParseChatID(text)
		if err != nil {
			h.send(ctx, st.UserID, messages.MsgInvalidChatID, nil)
			return
		}
		value = strconv.FormatInt(id, 10)
	}
	if err := h.store.SetConfig(ctx, database.ConfigAdminChatID, value); err != nil {
		h.fail(ctx, target{chatID: st.UserID}, err, "SetConfig")
		return
	}
	h.sessions.Clear(st.UserID)
	h.send(ctx, st.UserID, messages.MsgAdminChatSet, mainMenu(true))
}

// ============================================
// Contact admin
// ============================================

func (h *Handler) startContact(ctx context.Context, userID int64) {
	h.startFlow(ctx, userID, session.FlowContact, session.StepInput)
	h.send(ctx, userID, messages.MsgAskContact, nil)
}

// adminChat: чат из настроек, иначе первый админ
func (h *Handler) adminChat(ctx context.Context) (int64, error) {
	if v := h.configString(ctx, database.ConfigAdminChatID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err == nil && id != 0 {
			return id, nil
		}
		log.WithField("value", v).Warn("invalid admin_chat_id in config")
	}
	admin, err := h.store.FirstAdmin(ctx)
	if err != nil {
		return 0, err
	}
	return admin.ID, nil
}

func (h *Handler) contactInput(ctx context.Context, st session.State, msg *models.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.send(ctx, st.UserID, messages.MsgAskContact, nil)
		return
	}
	admin := h.isAdmin(ctx, st.UserID)

	chatID, err := h.adminChat(ctx)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.WithError(err).Error("admin chat lookup failed")
		}
		h.sessions.Clear(st.UserID)
		h.send(ctx, st.UserID, messages.MsgContactUnavailable, mainMenu(admin))
		return
	}

	if h.send(ctx, chatID, messages.FormatContactForward(senderName(msg), st.UserID, text), nil) == nil {
		h.send(ctx, st.UserID, messages.MsgContactUnavailable, mainMenu(admin))
		h.sessions.Clear(st.UserID)
		return
	}
	h.sessions.Clear(st.UserID)
	h.send(ctx, st.UserID, messages.MsgContactSent, mainMenu(admin))
}

func senderName(msg *models.Message) string {
	if msg.From == nil {
		return "unknown"
	}
	return displayName(msg.From)
}
