package messages

import (
	"fmt"
	"strings"
	"time"

	"tg_archive_bot/database"
)

// Кнопки главного меню (reply-клавиатура)
const (
	BtnNewArchive = "📥 New archive"
	BtnSources    = "📚 Sources"
	BtnSearch     = "🔍 Search"
	BtnUsers      = "👥 Users"
	BtnBackup     = "💾 Backup"
	BtnSettings   = "⚙️ Settings"
	BtnHelp       = "❓ Help"
	BtnContact    = "📨 Contact admin"
)

const (
	MsgWelcomeAdmin = `👋 Welcome, admin!

Use the menu below to set up archives, manage sources and users, search the archive or configure backups.`

	MsgWelcomeUser = `👋 Welcome!

This bot keeps an archive of selected channels and groups. Use 🔍 Search to look through the sources you have access to.`

	MsgHelpAdmin = `❓ Help

📥 New archive: add a channel, group or topic group to archive
📚 Sources: view, pause, edit or delete sources
🔍 Search: search archived messages
👥 Users: admins and search permissions
💾 Backup: manual and scheduled backups, restore
⚙️ Settings: bot status, broadcast, admin contact

/cancel aborts the current step.`

	MsgHelpUser = `❓ Help

🔍 Search: pick a source, add filters and run the search
📨 Contact admin: send a message to the administrators

/cancel aborts the current step.`

	MsgBotDisabled     = `⛔ The bot is temporarily disabled. Please try again later.`
	MsgError           = `❌ Something went wrong. Please try again later.`
	MsgNotFound        = `❌ Not found. It may have been deleted.`
	MsgAccessDenied    = `⛔ You do not have access to this action.`
	MsgCancelled       = `✖️ Cancelled.`
	MsgNothingToCancel = `Nothing to cancel.`
	MsgWizardReplaced  = `⚠️ Your unfinished "%s" was discarded.`
	MsgSessionExpired  = `⌛ This dialog has expired. Please start again from the menu.`
	MsgUnknownInput    = `Please use the menu below.`

	// Настройка архива
	MsgChooseSourceType = `📥 New archive

Choose the source type:`
	MsgAskSourceLink = `🔗 Send the source link or identifier:

• https://t.me/channel_name
• @channel_name
• -1001234567890 (chat id)`
	MsgInvalidLink   = `❌ Invalid link or identifier. Please try again.`
	MsgAskTitle      = `📝 Enter a title for this source (3-100 characters):`
	MsgInvalidTitle  = `❌ The title must be between 3 and 100 characters. Please try again.`
	MsgAskTopics     = `📋 Enter topic IDs separated by commas, or "all" for every topic.
Example: 1,2,5,10 or all`
	MsgInvalidTopics = `❌ Invalid topic IDs. Please try again.`
	MsgAskKeywords   = `🔑 Send keywords separated by commas.
Only messages containing at least one of them will be archived.
Send "clear" to remove the keyword filter.`
	MsgKeywordsCleared = `✅ Keyword filter removed.`
	MsgKeywordsSaved   = `✅ %d keyword(s) saved.`
	MsgSourceSaved     = `✅ Archive "%s" saved (ID %d). Messages will be archived from now on.`
	MsgSourceUpdated   = `✅ Source "%s" updated.`

	// Источники
	MsgNoSources      = `📚 No sources yet. Use 📥 New archive to add one.`
	MsgSourcesList    = `📚 Sources:`
	MsgConfirmDelete  = `🗑 Delete "%s" together with its %d archived message(s)? This cannot be undone.`
	MsgSourceDeleted  = `🗑 Source "%s" deleted.`
	MsgSourceEnabled  = `▶️ Archiving resumed.`
	MsgSourceDisabled = `⏸ Archiving paused.`

	// Поиск
	MsgNoAccessibleSources = `🔍 There are no sources available for you to search.`
	MsgChooseSearchSource  = `🔍 Choose a source to search:`
	MsgAskSearchText       = `🔤 Send the text to search for (at least 2 characters):`
	MsgInvalidSearchText   = `❌ The search text must be at least 2 characters. Please try again.`
	MsgChooseDate          = `📅 Choose a date range:`
	MsgAskCustomDate       = `📅 Send a date or range:
YYYY-MM-DD or YYYY-MM-DD - YYYY-MM-DD`
	MsgInvalidDate      = `❌ Invalid date. Use YYYY-MM-DD or YYYY-MM-DD - YYYY-MM-DD.`
	MsgChooseKind       = `🗂 Choose the content type:`
	MsgAskSender        = `👤 Send the sender's numeric ID or part of their name:`
	MsgInvalidSender    = `❌ Send a numeric ID or at least 2 characters of the name.`
	MsgAskTopic         = `🧵 Send the topic ID, or "all" for every topic:`
	MsgInvalidTopic     = `❌ Send a positive topic ID or "all".`
	MsgNoResults        = `🔍 Nothing found. Try changing the filters.`
	MsgMediaUnavailable = `⚠️ The media file is no longer available. Showing the saved text.`
	MsgExportCaption    = `📄 Search results export (%d message(s))`
	MsgExportInProgress = `⏳ Preparing export...`
	MsgSearchExpired    = `⌛ These search results are no longer available. Start a new search.`

	// Пользователи
	MsgUsersMenu          = `👥 User management:`
	MsgNoUsers            = `👥 No users yet.`
	MsgAskAdminID         = `👑 Send the numeric user ID of the new admin:`
	MsgInvalidUserID      = `❌ Invalid user ID. Send digits only.`
	MsgAdminAdded         = `✅ User %d is now an admin.`
	MsgCannotDemoteSelf   = `⚠️ You cannot remove your own admin rights.`
	MsgAdminGranted       = `👑 %s is now an admin.`
	MsgAdminRevoked       = `👤 %s is no longer an admin.`
	MsgChoosePermSource   = `🔒 Choose a source to manage search access:`
	MsgSourceMembers      = `🔒 Search access for "%s". Tap a user to toggle:`
	MsgNoRegularUsers     = `👥 There are no regular users yet.`
	MsgPermissionGranted  = `✅ Access granted.`
	MsgPermissionRevoked  = `🚫 Access revoked.`

	// Настройки
	MsgAskBroadcast       = `📢 Send the message to broadcast to all users:`
	MsgBroadcastPreview   = `📢 Preview:

%s

Send to %d user(s)?`
	MsgBroadcastDone      = `📢 Broadcast finished: %d sent, %d failed.`
	MsgBroadcastEmpty     = `❌ The broadcast text cannot be empty.`
	MsgAskAdminChat       = `📨 Send the chat ID that should receive user messages, or "clear" to use the first admin:`
	MsgInvalidChatID      = `❌ Invalid chat ID. Send a number like 123456789 or -1001234567890.`
	MsgAdminChatSet       = `✅ Admin contact chat updated.`
	MsgBotToggled         = `✅ The bot is now %s.`

	// Связь с админом
	MsgAskContact         = `📨 Send your message for the administrators:`
	MsgContactSent        = `✅ Your message has been delivered.`
	MsgContactUnavailable = `❌ No administrator is available right now.`
	MsgContactForward     = `📨 Message from %s (ID %d):

%s`

	// Бэкапы
	MsgBackupInProgress    = `⏳ Creating backup...`
	MsgBackupCreated       = `✅ Backup created: %s (%s)`
	MsgBackupFailed        = `❌ Backup failed: %s`
	MsgChooseInterval      = `⏱ Choose the automatic backup interval:`
	MsgIntervalSet         = `✅ Automatic backup: %s.`
	MsgAskBackupChannel    = `📡 Send the channel ID for backup reports (-100...), or "clear" to disable:`
	MsgInvalidChannelID    = `❌ Invalid channel ID. It must look like -1001234567890.`
	MsgBackupChannelTest   = `✅ This channel will receive automatic backups.`
	MsgBackupChannelSet    = `✅ Backup channel set to %d.`
	MsgBackupChannelClear  = `✅ Backup channel removed.`
	MsgBackupChannelFailed = `❌ Cannot send to this channel. Add the bot as an admin and try again.`
	MsgNoBackups           = `💾 No backups yet.`
	MsgBackupList          = `💾 Recent backups:`
	MsgBackupFileMissing   = `❌ The backup file is no longer on disk.`
	MsgBackupDeleted       = `🗑 Backup deleted.`
	MsgAskRestoreFile      = `♻️ Send the backup .zip file to restore.`
	MsgNotAZip             = `❌ Please send a .zip backup file.`
	MsgConfirmRestore      = `⚠️ Restore "%s"? All current data will be replaced.`
	MsgRestoreDone         = `✅ Restore complete.`
	MsgRestoreFailed       = `❌ Restore failed: %s`
	MsgAutoBackupCaption   = `💾 Automatic backup %s`
)

func FormatWizardReplaced(flow string) string {
	return fmt.Sprintf(MsgWizardReplaced, flow)
}

func FormatKeywordsSaved(n int) string {
	return fmt.Sprintf(MsgKeywordsSaved, n)
}

func FormatSourceSaved(title string, id int64) string {
	return fmt.Sprintf(MsgSourceSaved, title, id)
}

func FormatSourceUpdated(title string) string {
	return fmt.Sprintf(MsgSourceUpdated, title)
}

func FormatConfirmDelete(title string, count int) string {
	return fmt.Sprintf(MsgConfirmDelete, title, count)
}

func FormatSourceDeleted(title string) string {
	return fmt.Sprintf(MsgSourceDeleted, title)
}

// FormatFilterMenu показывает черновик источника на шаге выбора фильтров
func FormatFilterMenu(title string, st database.SourceType, topics *database.TopicList, f database.FilterConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚙️ Filters for \"%s\" (%s)\n\n", title, SourceTypeLabel(st))
	b.WriteString("Tap a content type to toggle it:\n")
	for _, k := range database.ContentKinds {
		fmt.Fprintf(&b, "%s %s\n", CheckMark(f.Allows(k)), KindLabel(k))
	}
	b.WriteString("\n🔑 Keywords: ")
	if len(f.Keywords) == 0 {
		b.WriteString("none (archive everything)")
	} else {
		b.WriteString(strings.Join(f.Keywords, ", "))
	}
	if topics != nil {
		fmt.Fprintf(&b, "\n🧵 Topics: %s", topics.String())
	}
	return b.String()
}

func FormatSourceDetails(s *database.Source, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📚 %s\n\n", s.Title)
	fmt.Fprintf(&b, "ID: %d\n", s.ID)
	fmt.Fprintf(&b, "Type: %s\n", SourceTypeLabel(s.Type))
	if s.ChatID != nil {
		fmt.Fprintf(&b, "Chat ID: %d\n", *s.ChatID)
	}
	if s.Username != "" {
		fmt.Fprintf(&b, "Username: @%s\n", s.Username)
	}
	fmt.Fprintf(&b, "Status: %s\n", ActiveLabel(s.IsActive))
	fmt.Fprintf(&b, "Archived messages: %d\n", count)
	fmt.Fprintf(&b, "Added: %s\n", FormatDate(s.CreatedAt))

	var enabled []string
	for _, k := range database.ContentKinds {
		if s.Filter.Allows(k) {
			enabled = append(enabled, string(k))
		}
	}
	if len(enabled) == 0 {
		enabled = []string{"none"}
	}
	fmt.Fprintf(&b, "\nContent types: %s\n", strings.Join(enabled, ", "))
	if len(s.Filter.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(s.Filter.Keywords, ", "))
	}
	if s.Topics != nil {
		fmt.Fprintf(&b, "Topics: %s\n", s.Topics.String())
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSearchMenu: текущий набор фильтров перед запуском поиска
func FormatSearchMenu(sourceTitle string, filters []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Search in \"%s\"\n\n", sourceTitle)
	if len(filters) == 0 {
		b.WriteString("No filters: all messages, newest first.")
	} else {
		b.WriteString("Filters:\n")
		for _, f := range filters {
			fmt.Fprintf(&b, "• %s\n", f)
		}
	}
	b.WriteString("\nAdd filters or run the search:")
	return strings.TrimRight(b.String(), "\n")
}

// FormatResultsPage: одна страница результатов, offset задаёт сквозную нумерацию
func FormatResultsPage(total, page, pages, offset int, items []database.ArchivedMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Found %d message(s). Page %d/%d\n\n", total, page, pages)
	for i, m := range items {
		fmt.Fprintf(&b, "%d. %s %s | %s\n", offset+i+1, KindIcon(m.Kind), FormatDateTime(m.MessageDate), m.SenderName)
		if snippet := Snippet(m.Text, 80); snippet != "" {
			fmt.Fprintf(&b, "   %s\n", snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatMessageDetails(m *database.ArchivedMessage) string {
	var b strings.Builder
	if m.SourceTitle != "" {
		fmt.Fprintf(&b, "📚 %s\n", m.SourceTitle)
	}
	fmt.Fprintf(&b, "👤 %s\n", m.SenderName)
	fmt.Fprintf(&b, "🕒 %s\n", FormatDateTime(m.MessageDate))
	fmt.Fprintf(&b, "%s %s\n", KindIcon(m.Kind), KindLabel(m.Kind))
	if m.TopicID != nil {
		fmt.Fprintf(&b, "🧵 Topic %d\n", *m.TopicID)
	}
	if m.Text != "" {
		fmt.Fprintf(&b, "\n%s", m.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatExportCaption(n int) string {
	return fmt.Sprintf(MsgExportCaption, n)
}

func FormatUserDetails(u *database.User, perms []database.UserPermission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n\n", u.Name)
	fmt.Fprintf(&b, "ID: %d\n", u.ID)
	fmt.Fprintf(&b, "Role: %s\n", RoleLabel(u.IsAdmin))
	fmt.Fprintf(&b, "Registered: %s\n", FormatDate(u.CreatedAt))
	if u.IsAdmin {
		b.WriteString("\nAdmins can search every source.")
		return b.String()
	}
	b.WriteString("\nSearch access:\n")
	granted := 0
	for _, p := range perms {
		if p.CanSearch {
			fmt.Fprintf(&b, "✅ %s\n", p.SourceTitle)
			granted++
		}
	}
	if granted == 0 {
		b.WriteString("none")
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatAdminAdded(id int64) string {
	return fmt.Sprintf(MsgAdminAdded, id)
}

func FormatAdminToggled(name string, admin bool) string {
	if admin {
		return fmt.Sprintf(MsgAdminGranted, name)
	}
	return fmt.Sprintf(MsgAdminRevoked, name)
}

func FormatSourceMembers(title string) string {
	return fmt.Sprintf(MsgSourceMembers, title)
}

// SettingsView: значения для экрана настроек
type SettingsView struct {
	BotEnabled      bool
	BackupInterval  int
	AdminChatID     string
	BackupChannelID string
}

func FormatSettings(v SettingsView) string {
	adminChat := v.AdminChatID
	if adminChat == "" {
		adminChat = "first admin"
	}
	channel := v.BackupChannelID
	if channel == "" {
		channel = "not set"
	}
	return fmt.Sprintf(`⚙️ Settings

🤖 Bot: %s
⏱ Automatic backup: %s
📨 Admin contact: %s
📡 Backup channel: %s`, EnabledLabel(v.BotEnabled), IntervalLabel(v.BackupInterval), adminChat, channel)
}

func FormatBackupMenu(interval int, channel string) string {
	if channel == "" {
		channel = "not set"
	}
	return fmt.Sprintf(`💾 Backup

⏱ Automatic backup: %s
📡 Report channel: %s`, IntervalLabel(interval), channel)
}

func FormatBroadcastPreview(text string, users int) string {
	return fmt.Sprintf(MsgBroadcastPreview, text, users)
}

func FormatBroadcastDone(sent, failed int) string {
	return fmt.Sprintf(MsgBroadcastDone, sent, failed)
}

func FormatBotToggled(enabled bool) string {
	return fmt.Sprintf(MsgBotToggled, EnabledLabel(enabled))
}

func FormatContactForward(name string, id int64, text string) string {
	return fmt.Sprintf(MsgContactForward, name, id, text)
}

func FormatBackupCreated(name string, size int64) string {
	return fmt.Sprintf(MsgBackupCreated, name, FormatSize(size))
}

func FormatBackupFailed(err error) string {
	return fmt.Sprintf(MsgBackupFailed, err)
}

func FormatIntervalSet(minutes int) string {
	return fmt.Sprintf(MsgIntervalSet, IntervalLabel(minutes))
}

func FormatBackupChannelSet(id int64) string {
	return fmt.Sprintf(MsgBackupChannelSet, id)
}

func FormatBackupList(logs []database.BackupLog) string {
	var b strings.Builder
	b.WriteString(MsgBackupList + "\n\n")
	for _, l := range logs {
		if l.Status == database.BackupSuccess {
			fmt.Fprintf(&b, "✅ #%d %s %s (%s)\n", l.ID, FormatDateTime(l.CreatedAt), l.FileName, FormatSize(l.FileSize))
		} else {
			fmt.Fprintf(&b, "❌ #%d %s %s\n", l.ID, FormatDateTime(l.CreatedAt), Snippet(l.Message, 60))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatConfirmRestore(name string) string {
	return fmt.Sprintf(MsgConfirmRestore, name)
}

func FormatRestoreFailed(err error) string {
	return fmt.Sprintf(MsgRestoreFailed, err)
}

func FormatAutoBackupCaption(now time.Time) string {
	return fmt.Sprintf(MsgAutoBackupCaption, FormatDateTime(now))
}
