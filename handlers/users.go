package handlers

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tg_archive_bot/messages"
	"tg_archive_bot/session"
	"tg_archive_bot/validate"
)

func (h *Handler) showUsers(ctx context.Context, t target) {
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.fail(ctx, t, err, "ListUsers")
		return
	}
	if len(users) == 0 {
		h.reply(ctx, t, messages.MsgNoUsers, nil)
		return
	}
	h.reply(ctx, t, messages.MsgUsersMenu, usersKeyboard(users))
}

func (h *Handler) showUser(ctx context.Context, userID int64, t target, id int64) {
	u, err := h.store.GetUser(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "GetUser")
		return
	}
	perms, err := h.store.ListUserPermissions(ctx, id)
	if err != nil {
		h.fail(ctx, t, err, "ListUserPermissions")
		return
	}
	h.reply(ctx, t, messages.FormatUserDetails(u, perms), userDetailsKeyboard(u, id == userID))
}

func (h *Handler) onUserCallback(ctx context.Context, userID int64, t target, data Callback) {
	id, hasID := data.ID(0)

	switch data.Action {
	case "list":
		h.showUsers(ctx, t)

	case "view":
		if !hasID {
			unknownAction(data)
			return
		}
		h.showUser(ctx, userID, t, id)

	case "admin":
		if !hasID {
			unknownAction(data)
			return
		}
		if id == userID {
			h.send(ctx, userID, messages.MsgCannotDemoteSelf, nil)
			return
		}
		u, err := h.store.GetUser(ctx, id)
		if err != nil {
			h.fail(ctx, t, err, "GetUser")
			return
		}
		if err := h.store.SetAdmin(ctx, id, !u.IsAdmin); err != nil {
			h.fail(ctx, t, err, "SetAdmin")
			return
		}
		log.WithFields(log.Fields{"user_id": id, "admin": !u.IsAdmin, "by": userID}).Info("admin flag changed")
		h.send(ctx, userID, messages.FormatAdminToggled(u.Name, !u.IsAdmin), nil)
		h.showUser(ctx, userID, t, id)

	case "add":
		h.startFlow(ctx, userID, session.FlowAddAdmin, session.StepInput)
		h.reply(ctx, t, messages.MsgAskAdminID, nil)

	case "perms":
		sources, err := h.store.ListSources(ctx)
		if err != nil {
			h.fail(ctx, t, err, "ListSources")
			return
		}
		if len(sources) == 0 {
			h.reply(ctx, t, messages.MsgNoSources, nil)
			return
		}
		h.reply(ctx, t, messages.MsgChoosePermSource, permSourcesKeyboard(sources))

	case "src":
		if !hasID {
			unknownAction(data)
			return
		}
		h.showMembers(ctx, t, id)

	case "perm":
		member, ok := data.ID(1)
		if !hasID || !ok {
			unknownAction(data)
			return
		}
		granted, err := h.store.TogglePermission(ctx, member, id)
		if err != nil {
			h.fail(ctx, t, err, "TogglePermission")
			return
		}
		log.WithFields(log.Fields{"user_id": member, "source_id": id, "can_search": granted}).Info("permission toggled")
		h.showMembers(ctx, t, id)

	default:
		unknownAction(data)
	}
}

func (h *Handler) showMembers(ctx context.Context, t target, sourceID int64) {
	src, err := h.store.GetSource(ctx, sourceID)
	if err != nil {
		h.fail(ctx, t, err, "GetSource")
		return
	}
	members, err := h.store.ListSourceMembers(ctx, sourceID)
	if err != nil {
		h.fail(ctx, t, err, "ListSourceMembers")
		return
	}
	if len(members) == 0 {
		h.reply(ctx, t, messages.MsgNoRegularUsers, permSourcesBackKeyboard())
		return
	}
	h.reply(ctx, t, messages.FormatSourceMembers(src.Title), membersKeyboard(sourceID, members))
}

func (h *Handler) addAdminInput(ctx context.Context, st session.State, text string) {
	id, err := validate.ParseUserID(text)
	if err != nil {
		h.send(ctx, st.UserID, messages.MsgInvalidUserID, nil)
		return
	}
	if err := h.store.EnsureAdmin(ctx, id, fmt.Sprintf("Admin_%d", id)); err != nil {
		h.fail(ctx, target{chatID: st.UserID}, err, "EnsureAdmin")
		return
	}
	h.sessions.Clear(st.UserID)
	log.WithFields(log.Fields{"user_id": id, "by": st.UserID}).Info("admin added")
	h.send(ctx, st.UserID, messages.FormatAdminAdded(id), mainMenu(true))
}
