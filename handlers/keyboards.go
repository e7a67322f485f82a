package handlers

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"tg_archive_bot/database"
	"tg_archive_bot/messages"
	"tg_archive_bot/search"
)

// Интервалы автобэкапа в минутах, 0 = выключен
var backupIntervals = []int{30, 60, 360, 720, 1440, 0}

func btn(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func inline(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func row(btns ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return btns
}

// pairs раскладывает кнопки по две в ряд
func pairs(btns []models.InlineKeyboardButton) [][]models.InlineKeyboardButton {
	var rows [][]models.InlineKeyboardButton
	for i := 0; i < len(btns); i += 2 {
		end := i + 2
		if end > len(btns) {
			end = len(btns)
		}
		rows = append(rows, btns[i:end])
	}
	return rows
}

func mainMenu(admin bool) *models.ReplyKeyboardMarkup {
	kb := func(rows ...[]string) *models.ReplyKeyboardMarkup {
		m := &models.ReplyKeyboardMarkup{ResizeKeyboard: true}
		for _, r := range rows {
			var buttons []models.KeyboardButton
			for _, text := range r {
				buttons = append(buttons, models.KeyboardButton{Text: text})
			}
			m.Keyboard = append(m.Keyboard, buttons)
		}
		return m
	}
	if admin {
		return kb(
			[]string{messages.BtnNewArchive, messages.BtnSources},
			[]string{messages.BtnSearch, messages.BtnUsers},
			[]string{messages.BtnBackup, messages.BtnSettings},
			[]string{messages.BtnHelp},
		)
	}
	return kb(
		[]string{messages.BtnSearch},
		[]string{messages.BtnHelp, messages.BtnContact},
	)
}

// ============================================
// Archive setup / sources
// ============================================

func sourceTypeKeyboard() *models.InlineKeyboardMarkup {
	var btns []models.InlineKeyboardButton
	for i, t := range database.SourceTypes {
		btns = append(btns, btn(messages.SourceTypeLabel(t), callbackData(PrefixArchive, "type", int64(i))))
	}
	rows := pairs(btns)
	rows = append(rows, row(btn("✖️ Cancel", callbackData(PrefixArchive, "cancel"))))
	return inline(rows...)
}

func filterKeyboard(draft *database.Source) *models.InlineKeyboardMarkup {
	var btns []models.InlineKeyboardButton
	for i, k := range database.ContentKinds {
		label := fmt.Sprintf("%s %s", messages.CheckMark(draft.Filter.Allows(k)), messages.KindLabel(k))
		btns = append(btns, btn(label, callbackData(PrefixArchive, "toggle", int64(i))))
	}
	rows := pairs(btns)
	rows = append(rows, row(btn("🔑 Keywords", callbackData(PrefixArchive, "keywords"))))
	if draft.Type == database.SourceTopicGroup {
		rows = append(rows, row(btn("🧵 Topics", callbackData(PrefixArchive, "topics"))))
	}
	rows = append(rows, row(
		btn("💾 Save", callbackData(PrefixArchive, "save")),
		btn("✖️ Cancel", callbackData(PrefixArchive, "cancel")),
	))
	return inline(rows...)
}

func sourceListKeyboard(sources []database.Source) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, s := range sources {
		icon := "▶️"
		if !s.IsActive {
			icon = "⏸"
		}
		label := fmt.Sprintf("%s %s", icon, s.Title)
		rows = append(rows, row(btn(label, callbackData(PrefixArchive, "view", s.ID))))
	}
	return inline(rows...)
}

func sourceDetailsKeyboard(s *database.Source) *models.InlineKeyboardMarkup {
	toggle := "⏸ Pause"
	if !s.IsActive {
		toggle = "▶️ Resume"
	}
	return inline(
		row(
			btn(toggle, callbackData(PrefixArchive, "active", s.ID)),
			btn("✏️ Edit filters", callbackData(PrefixArchive, "edit", s.ID)),
		),
		row(btn("🗑 Delete", callbackData(PrefixArchive, "delete", s.ID))),
		row(btn("⬅️ Back", callbackData(PrefixArchive, "list"))),
	)
}

func confirmDeleteKeyboard(id int64) *models.InlineKeyboardMarkup {
	return inline(row(
		btn("🗑 Yes, delete", callbackData(PrefixArchive, "delete_ok", id)),
		btn("⬅️ No", callbackData(PrefixArchive, "view", id)),
	))
}

func backToSourcesKeyboard() *models.InlineKeyboardMarkup {
	return inline(row(btn("⬅️ Sources", callbackData(PrefixArchive, "list"))))
}

// ============================================
// Search
// ============================================

func searchSourcesKeyboard(sources []database.Source) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, s := range sources {
		rows = append(rows, row(btn("📚 "+s.Title, callbackData(PrefixSearch, "source", s.ID))))
	}
	return inline(rows...)
}

func searchMenuKeyboard(f search.Filters, topicGroup bool) *models.InlineKeyboardMarkup {
	mark := func(set bool, label string) string {
		if set {
			return "✅ " + label
		}
		return label
	}
	rows := [][]models.InlineKeyboardButton{
		row(
			btn(mark(f.Text != "", "🔤 Text"), callbackData(PrefixSearch, "text")),
			btn(mark(f.From != nil || f.To != nil, "📅 Date"), callbackData(PrefixSearch, "date")),
		),
		row(
			btn(mark(f.Kind != "", "🗂 Type"), callbackData(PrefixSearch, "kind")),
			btn(mark(f.SenderID != 0 || f.SenderName != "", "👤 Sender"), callbackData(PrefixSearch, "sender")),
		),
	}
	if topicGroup {
		rows = append(rows, row(btn(mark(f.TopicID != nil, "🧵 Topic"), callbackData(PrefixSearch, "topic"))))
	}
	rows = append(rows,
		row(btn("🔍 Search", callbackData(PrefixSearch, "run"))),
		row(
			btn("♻️ Reset filters", callbackData(PrefixSearch, "reset")),
			btn("✖️ Cancel", callbackData(PrefixSearch, "cancel")),
		),
	)
	return inline(rows...)
}

func dateKeyboard() *models.InlineKeyboardMarkup {
	var btns []models.InlineKeyboardButton
	for i, p := range search.DatePresets {
		btns = append(btns, btn("📅 "+search.PresetLabel(p), callbackData(PrefixSearch, "preset", int64(i))))
	}
	rows := pairs(btns)
	rows = append(rows,
		row(
			btn("✏️ Custom", callbackData(PrefixSearch, "date_custom")),
			btn("🚫 Any date", callbackData(PrefixSearch, "date_clear")),
		),
		row(btn("⬅️ Back", callbackData(PrefixSearch, "menu"))),
	)
	return inline(rows...)
}

func kindKeyboard() *models.InlineKeyboardMarkup {
	var btns []models.InlineKeyboardButton
	for i, k := range database.ContentKinds {
		btns = append(btns, btn(messages.KindIcon(k)+" "+messages.KindLabel(k), callbackData(PrefixSearch, "set_kind", int64(i))))
	}
	rows := pairs(btns)
	rows = append(rows,
		row(btn("🚫 Any type", callbackData(PrefixSearch, "kind_any"))),
		row(btn("⬅️ Back", callbackData(PrefixSearch, "menu"))),
	)
	return inline(rows...)
}

func resultsKeyboard(p search.Page) *models.InlineKeyboardMarkup {
	var btns []models.InlineKeyboardButton
	for i, m := range p.Items {
		btns = append(btns, btn(fmt.Sprintf("%d", p.Offset+i+1), callbackData(PrefixSearch, "open", m.ID)))
	}
	var rows [][]models.InlineKeyboardButton
	for i := 0; i < len(btns); i += 5 {
		end := i + 5
		if end > len(btns) {
			end = len(btns)
		}
		rows = append(rows, btns[i:end])
	}

	var nav []models.InlineKeyboardButton
	if p.Number > 1 {
		nav = append(nav, btn("⬅️", callbackData(PrefixSearch, "page", int64(p.Number-1))))
	}
	if p.Number < p.Pages {
		nav = append(nav, btn("➡️", callbackData(PrefixSearch, "page", int64(p.Number+1))))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows,
		row(
			btn("📄 Export", callbackData(PrefixSearch, "export")),
			btn("⚙️ Filters", callbackData(PrefixSearch, "menu")),
		),
		row(btn("🔍 New search", callbackData(PrefixSearch, "new"))),
	)
	return inline(rows...)
}

func noResultsKeyboard() *models.InlineKeyboardMarkup {
	return inline(row(
		btn("⚙️ Filters", callbackData(PrefixSearch, "menu")),
		btn("🔍 New search", callbackData(PrefixSearch, "new")),
	))
}

// ============================================
// Users
// ============================================

func usersKeyboard(users []database.User) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, u := range users {
		icon := "👤"
		if u.IsAdmin {
			icon = "👑"
		}
		rows = append(rows, row(btn(fmt.Sprintf("%s %s", icon, u.Name), callbackData(PrefixUser, "view", u.ID))))
	}
	rows = append(rows, row(
		btn("➕ Add admin", callbackData(PrefixUser, "add")),
		btn("🔒 Search access", callbackData(PrefixUser, "perms")),
	))
	return inline(rows...)
}

func userDetailsKeyboard(u *database.User, self bool) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	if !self {
		label := "👑 Make admin"
		if u.IsAdmin {
			label = "👤 Remove admin"
		}
		rows = append(rows, row(btn(label, callbackData(PrefixUser, "admin", u.ID))))
	}
	rows = append(rows, row(btn("⬅️ Back", callbackData(PrefixUser, "list"))))
	return inline(rows...)
}

func permSourcesKeyboard(sources []database.Source) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, s := range sources {
		rows = append(rows, row(btn("📚 "+s.Title, callbackData(PrefixUser, "src", s.ID))))
	}
	rows = append(rows, row(btn("⬅️ Back", callbackData(PrefixUser, "list"))))
	return inline(rows...)
}

func membersKeyboard(sourceID int64, members []database.SourceMember) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, m := range members {
		label := fmt.Sprintf("%s %s", messages.CheckMark(m.CanSearch), m.User.Name)
		rows = append(rows, row(btn(label, callbackData(PrefixUser, "perm", sourceID, m.User.ID))))
	}
	rows = append(rows, row(btn("⬅️ Back", callbackData(PrefixUser, "perms"))))
	return inline(rows...)
}

// ============================================
// Settings / backup
// ============================================

func settingsKeyboard(enabled bool) *models.InlineKeyboardMarkup {
	toggle := "⏸ Disable bot"
	if !enabled {
		toggle = "▶️ Enable bot"
	}
	return inline(
		row(btn(toggle, callbackData(PrefixConfig, "toggle_bot"))),
		row(btn("📢 Broadcast", callbackData(PrefixConfig, "broadcast"))),
		row(btn("📨 Admin contact", callbackData(PrefixConfig, "admin_chat"))),
	)
}

func confirmKeyboard(prefix, yes, no string) *models.InlineKeyboardMarkup {
	return inline(row(
		btn("✅ Confirm", callbackData(prefix, yes)),
		btn("✖️ Cancel", callbackData(prefix, no)),
	))
}

func backupKeyboard() *models.InlineKeyboardMarkup {
	return inline(
		row(btn("💾 Create backup", callbackData(PrefixBackup, "create"))),
		row(
			btn("⏱ Interval", callbackData(PrefixBackup, "interval")),
			btn("📡 Report channel", callbackData(PrefixBackup, "channel")),
		),
		row(
			btn("📋 Backups", callbackData(PrefixBackup, "list")),
			btn("♻️ Restore", callbackData(PrefixBackup, "restore")),
		),
	)
}

func intervalKeyboard(current int) *models.InlineKeyboardMarkup {
	var btns []models.InlineKeyboardButton
	for _, m := range backupIntervals {
		label := messages.IntervalLabel(m)
		if m == current {
			label = "✅ " + label
		}
		btns = append(btns, btn(label, callbackData(PrefixBackup, "set_interval", int64(m))))
	}
	rows := pairs(btns)
	rows = append(rows, row(btn("⬅️ Back", callbackData(PrefixBackup, "menu"))))
	return inline(rows...)
}

func backupListKeyboard(logs []database.BackupLog) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, l := range logs {
		if l.Status != database.BackupSuccess {
			continue
		}
		rows = append(rows, row(
			btn(fmt.Sprintf("⬇️ #%d", l.ID), callbackData(PrefixBackup, "get", l.ID)),
			btn(fmt.Sprintf("🗑 #%d", l.ID), callbackData(PrefixBackup, "del", l.ID)),
		))
	}
	rows = append(rows, row(btn("⬅️ Back", callbackData(PrefixBackup, "menu"))))
	return inline(rows...)
}

func permSourcesBackKeyboard() *models.InlineKeyboardMarkup {
	return inline(row(btn("⬅️ Back", callbackData(PrefixUser, "perms"))))
}
