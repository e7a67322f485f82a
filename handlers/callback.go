package handlers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Префиксы callback-данных: prefix:action[:id[:id]]
const (
	PrefixArchive = "archive"
	PrefixSearch  = "search"
	PrefixUser    = "user"
	PrefixBackup  = "backup"
	PrefixConfig  = "config"

	// Лимит Telegram на callback_data
	maxCallbackLen = 64
	maxCallbackIDs = 2
)

var (
	ErrMalformedCallback = errors.New("malformed callback data")

	actionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
	knownPrefixes = map[string]bool{
		PrefixArchive: true,
		PrefixSearch:  true,
		PrefixUser:    true,
		PrefixBackup:  true,
		PrefixConfig:  true,
	}
)

type Callback struct {
	Prefix string
	Action string
	IDs    []int64
}

// ID возвращает i-й числовой аргумент
func (c Callback) ID(i int) (int64, bool) {
	if i < 0 || i >= len(c.IDs) {
		return 0, false
	}
	return c.IDs[i], true
}

func (c Callback) String() string {
	return callbackData(c.Prefix, c.Action, c.IDs...)
}

func ParseCallback(data string) (Callback, error) {
	if data == "" || len(data) > maxCallbackLen {
		return Callback{}, errors.Wrapf(ErrMalformedCallback, "%q: bad length", data)
	}
	parts := strings.Split(data, ":")
	if len(parts) < 2 || len(parts) > 2+maxCallbackIDs {
		return Callback{}, errors.Wrapf(ErrMalformedCallback, "%q: bad shape", data)
	}
	if !knownPrefixes[parts[0]] {
		return Callback{}, errors.Wrapf(ErrMalformedCallback, "%q: unknown prefix", data)
	}
	if !actionPattern.MatchString(parts[1]) {
		return Callback{}, errors.Wrapf(ErrMalformedCallback, "%q: bad action", data)
	}

	c := Callback{Prefix: parts[0], Action: parts[1]}
	for _, p := range parts[2:] {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return Callback{}, errors.Wrapf(ErrMalformedCallback, "%q: bad id", data)
		}
		c.IDs = append(c.IDs, id)
	}
	return c, nil
}

func callbackData(prefix, action string, ids ...int64) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(action)
	for _, id := range ids {
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
