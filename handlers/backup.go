package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/backup"
	"tg_archive_bot/database"
	"tg_archive_bot/messages"
	"tg_archive_bot/session"
	"tg_archive_bot/validate"
)

const backupListLimit = 10

func (h *Handler) showBackup(ctx context.Context, t target) {
	interval := h.configInt(ctx, database.ConfigBackupInterval, 0)
	channel := h.configString(ctx, database.ConfigBackupChannelID)
	h.reply(ctx, t, messages.FormatBackupMenu(interval, channel), backupKeyboard())
}

func (h *Handler) onBackupCallback(ctx context.Context, userID int64, t target, data Callback) {
	id, hasID := data.ID(0)

	switch data.Action {
	case "menu":
		h.showBackup(ctx, t)

	case "create":
		progress := h.send(ctx, userID, messages.MsgBackupInProgress, nil)
		a, err := h.backups.Create(ctx)
		h.deleteMessage(ctx, progress)
		if err != nil {
			h.send(ctx, userID, messages.FormatBackupFailed(err), nil)
			return
		}
		if err := h.sendFile(ctx, userID, a.Path, messages.FormatBackupCreated(a.Name, a.Size)); err != nil {
			log.WithError(err).WithField("file", a.Name).Error("send backup failed")
			h.send(ctx, userID, messages.FormatBackupCreated(a.Name, a.Size), nil)
		}

	case "interval":
		current := h.configInt(ctx, database.ConfigBackupInterval, 0)
		h.reply(ctx, t, messages.MsgChooseInterval, intervalKeyboard(current))

	case "set_interval":
		if !hasID || !knownInterval(int(id)) {
			unknownAction(data)
			return
		}
		minutes := int(id)
		if err := h.store.SetConfig(ctx, database.ConfigBackupInterval, strconv.Itoa(minutes)); err != nil {
			h.fail(ctx, t, err, "SetConfig")
			return
		}
		h.reschedule(minutes)
		h.reply(ctx, t, messages.FormatIntervalSet(minutes), backupKeyboard())

	case "channel":
		h.startFlow(ctx, userID, session.FlowBackupChannel, session.StepInput)
		h.reply(ctx, t, messages.MsgAskBackupChannel, nil)

	case "list":
		logs, err := h.backups.List(ctx, backupListLimit)
		if err != nil {
			h.fail(ctx, t, err, "ListBackups")
			return
		}
		if len(logs) == 0 {
			h.reply(ctx, t, messages.MsgNoBackups, backupListKeyboard(nil))
			return
		}
		h.reply(ctx, t, messages.FormatBackupList(logs), backupListKeyboard(logs))

	case "get":
		if !hasID {
			unknownAction(data)
			return
		}
		entry, path, err := h.backups.Open(ctx, id)
		if errors.Is(err, backup.ErrFileMissing) {
			h.send(ctx, userID, messages.MsgBackupFileMissing, nil)
			return
		}
		if err != nil {
			h.fail(ctx, t, err, "OpenBackup")
			return
		}
		if err := h.sendFile(ctx, userID, path, messages.FormatBackupCreated(entry.FileName, entry.FileSize)); err != nil {
			log.WithError(err).WithField("file", entry.FileName).Error("send backup failed")
			h.send(ctx, userID, messages.MsgError, nil)
		}

	case "del":
		if !hasID {
			unknownAction(data)
			return
		}
		_, err := h.backups.Delete(ctx, id)
		if errors.Is(err, backup.ErrFileMissing) {
			h.send(ctx, userID, messages.MsgBackupFileMissing, nil)
			return
		}
		if err != nil {
			h.fail(ctx, t, err, "DeleteBackup")
			return
		}
		h.send(ctx, userID, messages.MsgBackupDeleted, nil)

	case "restore":
		h.startFlow(ctx, userID, session.FlowRestore, session.StepInput)
		h.reply(ctx, t, messages.MsgAskRestoreFile, nil)

	case "restore_ok":
		st, ok := h.activeState(ctx, userID, t, session.FlowRestore)
		if !ok {
			return
		}
		if st.Step != session.StepConfirm || st.FilePath == "" {
			h.reply(ctx, t, messages.MsgAskRestoreFile, nil)
			return
		}
		h.sessions.Clear(userID)
		defer h.cleanupState(st)

		if _, err := h.backups.Restore(ctx, st.FilePath); err != nil {
			log.WithError(err).Error("restore failed")
			h.reply(ctx, t, messages.FormatRestoreFailed(err), nil)
			return
		}
		h.reschedule(h.configInt(ctx, database.ConfigBackupInterval, 0))
		log.WithField("by", userID).Warn("database restored from backup")
		h.reply(ctx, t, messages.MsgRestoreDone, nil)

	case "restore_no":
		h.dropSession(userID)
		h.reply(ctx, t, messages.MsgCancelled, nil)

	default:
		unknownAction(data)
	}
}

func knownInterval(m int) bool {
	for _, v := range backupIntervals {
		if v == m {
			return true
		}
	}
	return false
}

func (h *Handler) reschedule(minutes int) {
	if h.jobs == nil {
		return
	}
	if err := h.jobs.Reschedule(BackupJob, time.Duration(minutes)*time.Minute); err != nil {
		log.WithError(err).Error("reschedule backup failed")
	}
}

func (h *Handler) backupChannelInput(ctx context.Context, st session.State, text string) {
	if strings.EqualFold(text, "clear") {
		if err := h.store.SetConfig(ctx, database.ConfigBackupChannelID, ""); err != nil {
			h.fail(ctx, target{chatID: st.UserID}, err, "SetConfig")
			return
		}
		h.sessions.Clear(st.UserID)
		h.send(ctx, st.UserID, messages.MsgBackupChannelClear, mainMenu(true))
		return
	}

	id, err := validate.ParseChannelID(text)
	if err != nil {
		h.send(ctx, st.UserID, messages.MsgInvalidChannelID, nil)
		return
	}
	// пробное сообщение проверяет права бота в канале
	if _, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: id, Text: messages.MsgBackupChannelTest}); err != nil {
		log.WithError(err).WithField("channel_id", id).Warn("backup channel test failed")
		h.send(ctx, st.UserID, messages.MsgBackupChannelFailed, nil)
		return
	}
	if err := h.store.SetConfig(ctx, database.ConfigBackupChannelID, strconv.FormatInt(id, 10)); err != nil {
		h.fail(ctx, target{chatID: st.UserID}, err, "SetConfig")
		return
	}
	h.sessions.Clear(st.UserID)
	h.send(ctx, st.UserID, messages.FormatBackupChannelSet(id), mainMenu(true))
}

func (h *Handler) restoreInput(ctx context.Context, st session.State, msg *models.Message) {
	doc := msg.Document
	if st.Step != session.StepInput || doc == nil || !strings.EqualFold(filepath.Ext(doc.FileName), ".zip") {
		h.send(ctx, st.UserID, messages.MsgNotAZip, nil)
		return
	}

	path, err := h.download(ctx, doc.FileID)
	if err != nil {
		log.WithError(err).WithField("file", doc.FileName).Error("download backup failed")
		h.send(ctx, st.UserID, messages.MsgError, nil)
		return
	}
	h.cleanupState(st)
	st.FilePath = path
	st.Payload = doc.FileName
	st.Step = session.StepConfirm
	if !h.sessions.Put(st) {
		os.Remove(path)
		h.send(ctx, st.UserID, messages.MsgSessionExpired, mainMenu(true))
		return
	}
	h.send(ctx, st.UserID, messages.FormatConfirmRestore(doc.FileName),
		confirmKeyboard(PrefixBackup, "restore_ok", "restore_no"))
}

// download сохраняет файл из Telegram во временный файл
func (h *Handler) download(ctx context.Context, fileID string) (string, error) {
	f, err := h.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", errors.Wrap(err, "GetFile")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.bot.FileDownloadLink(f), nil)
	if err != nil {
		return "", errors.Wrap(err, "download.NewRequest")
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "download.Do")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("download: unexpected status %s", resp.Status)
	}

	out, err := os.CreateTemp("", "restore_*.zip")
	if err != nil {
		return "", errors.Wrap(err, "download.CreateTemp")
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", errors.Wrap(err, "download.Copy")
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", errors.Wrap(err, "download.Close")
	}
	return out.Name(), nil
}

// cleanupState удаляет временные файлы завершённого диалога
func (h *Handler) cleanupState(st session.State) {
	if st.FilePath == "" {
		return
	}
	if err := os.Remove(st.FilePath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("file", st.FilePath).Warn("temp file cleanup failed")
	}
}

// ============================================
// Scheduled jobs
// ============================================

// BackupInterval: интервал автобэкапа из настроек, 0 отключает задачу
func (h *Handler) BackupInterval(ctx context.Context) time.Duration {
	return time.Duration(h.configInt(ctx, database.ConfigBackupInterval, 0)) * time.Minute
}

// AutoBackup создаёт бэкап и, если задан канал, отправляет туда архив
func (h *Handler) AutoBackup(ctx context.Context) error {
	a, err := h.backups.Create(ctx)
	if err != nil {
		return errors.Wrap(err, "AutoBackup")
	}
	channel := h.configString(ctx, database.ConfigBackupChannelID)
	if channel == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "AutoBackup: invalid channel %q", channel)
	}
	if err := h.sendFile(ctx, chatID, a.Path, messages.FormatAutoBackupCaption(h.now())); err != nil {
		return errors.Wrap(err, "AutoBackup.send")
	}
	return nil
}

// SweepSessions вычищает просроченные диалоги
func (h *Handler) SweepSessions(_ context.Context) error {
	expired := h.sessions.Sweep()
	for _, st := range expired {
		h.cleanupState(st)
	}
	if len(expired) > 0 {
		log.WithField("count", len(expired)).Debug("expired sessions removed")
	}
	return nil
}
