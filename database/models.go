package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type SourceType string

const (
	SourceChannel    SourceType = "channel"
	SourceGroup      SourceType = "group"
	SourceSupergroup SourceType = "supergroup"
	SourceTopicGroup SourceType = "topic_group"
)

var SourceTypes = []SourceType{SourceChannel, SourceGroup, SourceSupergroup, SourceTopicGroup}

func ParseSourceType(s string) (SourceType, bool) {
	for _, t := range SourceTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

type ContentKind string

const (
	KindText      ContentKind = "text"
	KindPhoto     ContentKind = "photo"
	KindVideo     ContentKind = "video"
	KindDocument  ContentKind = "document"
	KindAudio     ContentKind = "audio"
	KindVoice     ContentKind = "voice"
	KindSticker   ContentKind = "sticker"
	KindAnimation ContentKind = "animation"
)

// ContentKinds: фиксированный список типов, в порядке меню
var ContentKinds = []ContentKind{
	KindText, KindPhoto, KindVideo, KindDocument,
	KindAudio, KindVoice, KindSticker, KindAnimation,
}

func ParseContentKind(s string) (ContentKind, bool) {
	for _, k := range ContentKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

type BackupStatus string

const (
	BackupSuccess BackupStatus = "success"
	BackupFailed  BackupStatus = "failed"
)

type User struct {
	ID        int64
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
}

// FilterConfig: флаги типов контента и список ключевых слов.
// Отсутствующий в карте тип считается включённым.
type FilterConfig struct {
	Kinds    map[ContentKind]bool
	Keywords []string
}

func DefaultFilterConfig() FilterConfig {
	kinds := make(map[ContentKind]bool, len(ContentKinds))
	for _, k := range ContentKinds {
		kinds[k] = true
	}
	return FilterConfig{Kinds: kinds, Keywords: []string{}}
}

func (f FilterConfig) Allows(kind ContentKind) bool {
	enabled, ok := f.Kinds[kind]
	return !ok || enabled
}

func (f *FilterConfig) Toggle(kind ContentKind) {
	if f.Kinds == nil {
		f.Kinds = make(map[ContentKind]bool)
	}
	f.Kinds[kind] = !f.Allows(kind)
}

func (f FilterConfig) Clone() FilterConfig {
	c := FilterConfig{
		Kinds:    make(map[ContentKind]bool, len(f.Kinds)),
		Keywords: append([]string{}, f.Keywords...),
	}
	for k, v := range f.Kinds {
		c.Kinds[k] = v
	}
	return c
}

// MarshalJSON сохраняет плоский формат {"text":true,...,"keywords":[...]}
func (f FilterConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ContentKinds)+1)
	for _, k := range ContentKinds {
		out[string(k)] = f.Allows(k)
	}
	keywords := f.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	out["keywords"] = keywords
	return json.Marshal(out)
}

func (f *FilterConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Kinds = make(map[ContentKind]bool)
	f.Keywords = []string{}
	for key, val := range raw {
		if key == "keywords" {
			if err := json.Unmarshal(val, &f.Keywords); err != nil {
				return fmt.Errorf("keywords: %w", err)
			}
			continue
		}
		kind, ok := ParseContentKind(key)
		if !ok {
			continue
		}
		var enabled bool
		if err := json.Unmarshal(val, &enabled); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		f.Kinds[kind] = enabled
	}
	return nil
}

// TopicList: либо "all", либо явный список ID тем
type TopicList struct {
	All bool
	IDs []int
}

func (t TopicList) Empty() bool { return !t.All && len(t.IDs) == 0 }

func (t TopicList) Allows(topicID int) bool {
	if t.All {
		return true
	}
	for _, id := range t.IDs {
		if id == topicID {
			return true
		}
	}
	return false
}

func (t TopicList) String() string {
	if t.All {
		return "all"
	}
	parts := make([]string, len(t.IDs))
	for i, id := range t.IDs {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

func (t TopicList) MarshalJSON() ([]byte, error) {
	if t.All {
		return []byte(`["all"]`), nil
	}
	ids := t.IDs
	if ids == nil {
		ids = []int{}
	}
	return json.Marshal(ids)
}

func (t *TopicList) UnmarshalJSON(data []byte) error {
	*t = TopicList{}
	if string(data) == "null" {
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if strings.EqualFold(v, "all") {
				t.All = true
			}
		case float64:
			t.IDs = append(t.IDs, int(v))
		}
	}
	if t.All {
		t.IDs = nil
	}
	return nil
}

type Source struct {
	ID        int64
	Type      SourceType
	ChatID    *int64
	Username  string
	Title     string
	IsActive  bool
	Filter    FilterConfig
	Topics    *TopicList
	CreatedBy int64
	CreatedAt time.Time
}

type Permission struct {
	UserID    int64
	SourceID  int64
	CanSearch bool
}

// UserPermission: право доступа вместе с названием источника
type UserPermission struct {
	SourceID    int64
	SourceTitle string
	CanSearch   bool
}

// SourceMember: обычный пользователь и его флаг доступа к источнику
type SourceMember struct {
	User      User
	CanSearch bool
}

type ArchivedMessage struct {
	ID          int64
	SourceID    int64
	MessageID   int64
	SenderID    int64
	SenderName  string
	Text        string
	Kind        ContentKind
	MediaFileID string
	TopicID     *int
	MessageDate time.Time
	ArchivedAt  time.Time

	// Заполняется только в GetMessage
	SourceTitle string
}

type BackupLog struct {
	ID        int64
	FileName  string
	FileSize  int64
	Status    BackupStatus
	Message   string
	CreatedAt time.Time
}

type ConfigEntry struct {
	Name      string
	Value     string
	UpdatedAt time.Time
}

// Snapshot: полная копия всех таблиц для бэкапа и восстановления
type Snapshot struct {
	Users       []User            `json:"users"`
	Config      []ConfigEntry     `json:"config"`
	Sources     []Source          `json:"sources"`
	Permissions []Permission      `json:"permissions"`
	Messages    []ArchivedMessage `json:"archived_messages"`
	BackupLogs  []BackupLog       `json:"backup_logs"`
}
