package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tg_archive_bot/database"
)

type Rule string

const (
	RuleLink      Rule = "link"
	RuleTitle     Rule = "title"
	RuleTopics    Rule = "topics"
	RuleUserID    Rule = "user_id"
	RuleChannelID Rule = "channel_id"
	RuleChatID    Rule = "chat_id"
	RuleText      Rule = "text"
	RuleDate      Rule = "date"
	RuleSender    Rule = "sender"
	RuleTopic     Rule = "topic"
)

// Violation: ввод не прошёл проверку правила
type Violation struct {
	Rule  Rule
	Input string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invalid %s: %q", v.Rule, v.Input)
}

func violation(rule Rule, input string) error {
	return &Violation{Rule: rule, Input: input}
}

const (
	MinTitleLen  = 3
	MaxTitleLen  = 100
	MinSearchLen = 2
	DateLayout   = "2006-01-02"
)

var (
	// https://t.me/name, t.me/name
	tmePattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?t\.me/([a-z0-9_]{3,32})/?$`)
	// @name
	usernamePattern = regexp.MustCompile(`^@([A-Za-z0-9_]{3,32})$`)
	// -100XXXXXXXXXX
	channelIDPattern = regexp.MustCompile(`^-100\d{1,13}$`)
	digitsPattern    = regexp.MustCompile(`^\d{1,19}$`)
	chatIDPattern    = regexp.MustCompile(`^-?\d{1,19}$`)
	rangeSplit       = regexp.MustCompile(`\s+-\s+|\s*\.\.\s*`)
)

// SourceLink: результат разбора ссылки на источник, задано ровно одно поле
type SourceLink struct {
	ChatID   *int64
	Username string
}

// ParseSourceLink принимает https://t.me/name, @name или -100<digits>
func ParseSourceLink(input string) (SourceLink, error) {
	s := strings.TrimSpace(input)
	if m := tmePattern.FindStringSubmatch(s); m != nil {
		return SourceLink{Username: m[1]}, nil
	}
	if m := usernamePattern.FindStringSubmatch(s); m != nil {
		return SourceLink{Username: m[1]}, nil
	}
	if channelIDPattern.MatchString(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return SourceLink{}, violation(RuleLink, input)
		}
		return SourceLink{ChatID: &id}, nil
	}
	return SourceLink{}, violation(RuleLink, input)
}

func ParseTitle(input string) (string, error) {
	s := strings.TrimSpace(input)
	n := utf8.RuneCountInString(s)
	if n < MinTitleLen || n > MaxTitleLen {
		return "", violation(RuleTitle, input)
	}
	return s, nil
}

// ParseTopics принимает "all" или список ID через запятую
func ParseTopics(input string) (database.TopicList, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "all" {
		return database.TopicList{All: true}, nil
	}
	seen := make(map[int]bool)
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !digitsPattern.MatchString(part) {
			return database.TopicList{}, violation(RuleTopics, input)
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return database.TopicList{}, violation(RuleTopics, input)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return database.TopicList{}, violation(RuleTopics, input)
	}
	sort.Ints(ids)
	return database.TopicList{IDs: ids}, nil
}

// ParseKeywords: "clear" очищает список, иначе слова через запятую
func ParseKeywords(input string) (keywords []string, cleared bool) {
	s := strings.TrimSpace(input)
	if strings.EqualFold(s, "clear") {
		return []string{}, true
	}
	keywords = []string{}
	seen := make(map[string]bool)
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, k)
	}
	return keywords, len(keywords) == 0
}

func ParseUserID(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if !digitsPattern.MatchString(s) {
		return 0, violation(RuleUserID, input)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, violation(RuleUserID, input)
	}
	return id, nil
}

// ParseChannelID принимает только ID вида -100XXXXXXXXXX
func ParseChannelID(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if !channelIDPattern.MatchString(s) {
		return 0, violation(RuleChannelID, input)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, violation(RuleChannelID, input)
	}
	return id, nil
}

// ParseChatID: ID пользователя или группы, допускается минус
func ParseChatID(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if !chatIDPattern.MatchString(s) {
		return 0, violation(RuleChatID, input)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, violation(RuleChatID, input)
	}
	return id, nil
}

func ParseSearchText(input string) (string, error) {
	s := strings.TrimSpace(input)
	if utf8.RuneCountInString(s) < MinSearchLen {
		return "", violation(RuleText, input)
	}
	return s, nil
}

// ParseSender: число считается ID отправителя, иначе подстрока имени
func ParseSender(input string) (id int64, name string, err error) {
	s := strings.TrimSpace(input)
	if digitsPattern.MatchString(s) {
		id, err = strconv.ParseInt(s, 10, 64)
		if err == nil && id > 0 {
			return id, "", nil
		}
	}
	s = strings.TrimPrefix(s, "@")
	if utf8.RuneCountInString(s) < MinSearchLen {
		return 0, "", violation(RuleSender, input)
	}
	return 0, s, nil
}

// ParseTopicFilter: "all" снимает ограничение по теме
func ParseTopicFilter(input string) (id int, all bool, err error) {
	s := strings.TrimSpace(input)
	if strings.EqualFold(s, "all") {
		return 0, true, nil
	}
	if !digitsPattern.MatchString(s) {
		return 0, false, violation(RuleTopic, input)
	}
	id, convErr := strconv.Atoi(s)
	if convErr != nil || id <= 0 {
		return 0, false, violation(RuleTopic, input)
	}
	return id, false, nil
}

// ParseDateRange принимает "YYYY-MM-DD" или "YYYY-MM-DD - YYYY-MM-DD".
// Конец диапазона включительно, до конца дня.
func ParseDateRange(input string, loc *time.Location) (from, to time.Time, err error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(input)
	parts := rangeSplit.Split(s, 2)

	from, err = time.ParseInLocation(DateLayout, strings.TrimSpace(parts[0]), loc)
	if err != nil {
		return time.Time{}, time.Time{}, violation(RuleDate, input)
	}
	end := from
	if len(parts) == 2 {
		end, err = time.ParseInLocation(DateLayout, strings.TrimSpace(parts[1]), loc)
		if err != nil {
			return time.Time{}, time.Time{}, violation(RuleDate, input)
		}
	}
	if end.Before(from) {
		return time.Time{}, time.Time{}, violation(RuleDate, input)
	}
	return from, EndOfDay(end), nil
}

func EndOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
