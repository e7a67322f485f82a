package database

import (
	"fmt"
	"sort"
	"strings"
)

type ColumnType int

const (
	ColSerial ColumnType = iota
	ColBigInt
	ColInt
	ColText
	ColBool
	ColTimestamp
	ColJSON
)

type Column struct {
	Name    string
	Type    ColumnType
	PK      bool
	NotNull bool
	Unique  bool
	Default string // "", "true", "false", "now" или литерал
}

type Table struct {
	Name    string
	Columns []Column
	// Составные UNIQUE
	Uniques [][]string
	// колонка -> "table(column)"
	ForeignKeys map[string]string
	Indexes     []Index
}

type Index struct {
	Name    string
	Columns []string
}

// Dialect переводит описание схемы в DDL конкретной СУБД
type Dialect interface {
	ColumnType(c Column) string
	Default(def string) string
}

// Tables: все таблицы в порядке зависимостей
var Tables = []Table{
	{
		Name: "users",
		Columns: []Column{
			{Name: "user_id", Type: ColBigInt, PK: true},
			{Name: "username", Type: ColText, NotNull: true, Default: "''"},
			{Name: "is_admin", Type: ColBool, NotNull: true, Default: "false"},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: "now"},
		},
	},
	{
		Name: "config",
		Columns: []Column{
			{Name: "name", Type: ColText, PK: true},
			{Name: "value", Type: ColText, NotNull: true, Default: "''"},
			{Name: "updated_at", Type: ColTimestamp, NotNull: true, Default: "now"},
		},
	},
	{
		Name: "sources",
		Columns: []Column{
			{Name: "id", Type: ColSerial, PK: true},
			{Name: "type", Type: ColText, NotNull: true},
			{Name: "chat_id", Type: ColBigInt},
			{Name: "chat_title", Type: ColText, NotNull: true},
			{Name: "chat_username", Type: ColText, NotNull: true, Default: "''"},
			{Name: "is_active", Type: ColBool, NotNull: true, Default: "true"},
			{Name: "filter_config", Type: ColJSON, NotNull: true},
			{Name: "topics_config", Type: ColJSON},
			{Name: "added_by", Type: ColBigInt, NotNull: true, Default: "0"},
			{Name: "added_at", Type: ColTimestamp, NotNull: true, Default: "now"},
		},
		Indexes: []Index{{Name: "idx_sources_chat_id", Columns: []string{"chat_id"}}},
	},
	{
		Name: "permissions",
		Columns: []Column{
			{Name: "id", Type: ColSerial, PK: true},
			{Name: "user_id", Type: ColBigInt, NotNull: true},
			{Name: "source_id", Type: ColBigInt, NotNull: true},
			{Name: "can_search", Type: ColBool, NotNull: true, Default: "true"},
		},
		Uniques: [][]string{{"user_id", "source_id"}},
		ForeignKeys: map[string]string{
			"user_id":   "users(user_id)",
			"source_id": "sources(id)",
		},
	},
	{
		Name: "archived_messages",
		Columns: []Column{
			{Name: "id", Type: ColSerial, PK: true},
			{Name: "source_id", Type: ColBigInt, NotNull: true},
			{Name: "message_id", Type: ColBigInt, NotNull: true},
			{Name: "sender_id", Type: ColBigInt, NotNull: true, Default: "0"},
			{Name: "sender_name", Type: ColText, NotNull: true, Default: "''"},
			{Name: "message_text", Type: ColText, NotNull: true, Default: "''"},
			{Name: "media_type", Type: ColText, NotNull: true},
			{Name: "media_file_id", Type: ColText, NotNull: true, Default: "''"},
			{Name: "topic_id", Type: ColInt},
			{Name: "message_date", Type: ColTimestamp, NotNull: true},
			{Name: "archived_at", Type: ColTimestamp, NotNull: true, Default: "now"},
		},
		Uniques:     [][]string{{"source_id", "message_id"}},
		ForeignKeys: map[string]string{"source_id": "sources(id)"},
		Indexes: []Index{
			{Name: "idx_archived_messages_date", Columns: []string{"source_id", "message_date"}},
		},
	},
	{
		Name: "backup_logs",
		Columns: []Column{
			{Name: "id", Type: ColSerial, PK: true},
			{Name: "file_name", Type: ColText, NotNull: true, Default: "''"},
			{Name: "file_size", Type: ColBigInt, NotNull: true, Default: "0"},
			{Name: "status", Type: ColText, NotNull: true},
			{Name: "message", Type: ColText, NotNull: true, Default: "''"},
			{Name: "created_at", Type: ColTimestamp, NotNull: true, Default: "now"},
		},
	},
}

// TableNames возвращает имена таблиц в порядке зависимостей
func TableNames() []string {
	names := make([]string, len(Tables))
	for i, t := range Tables {
		names[i] = t.Name
	}
	return names
}

// CreateStatements генерирует CREATE TABLE / CREATE INDEX для диалекта
func CreateStatements(d Dialect) []string {
	var stmts []string
	for _, t := range Tables {
		var defs []string
		for _, c := range t.Columns {
			def := c.Name + " " + d.ColumnType(c)
			if c.NotNull && !c.PK {
				def += " NOT NULL"
			}
			if c.Unique {
				def += " UNIQUE"
			}
			if c.Default != "" {
				def += " DEFAULT " + d.Default(c.Default)
			}
			defs = append(defs, def)
		}
		for _, u := range t.Uniques {
			defs = append(defs, fmt.Sprintf("UNIQUE (%s)", strings.Join(u, ", ")))
		}
		fkCols := make([]string, 0, len(t.ForeignKeys))
		for col := range t.ForeignKeys {
			fkCols = append(fkCols, col)
		}
		sort.Strings(fkCols)
		for _, col := range fkCols {
			defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s", col, t.ForeignKeys[col]))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t")))
		for _, idx := range t.Indexes {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				idx.Name, t.Name, strings.Join(idx.Columns, ", ")))
		}
	}
	return stmts
}

type postgresDialect struct{}

func (postgresDialect) ColumnType(c Column) string {
	switch c.Type {
	case ColSerial:
		return "BIGSERIAL PRIMARY KEY"
	case ColBigInt:
		if c.PK {
			return "BIGINT PRIMARY KEY"
		}
		return "BIGINT"
	case ColInt:
		return "INTEGER"
	case ColBool:
		return "BOOLEAN"
	case ColTimestamp:
		return "TIMESTAMPTZ"
	case ColJSON:
		return "JSONB"
	default:
		if c.PK {
			return "TEXT PRIMARY KEY"
		}
		return "TEXT"
	}
}

func (postgresDialect) Default(def string) string {
	if def == "now" {
		return "NOW()"
	}
	return def
}

type sqliteDialect struct{}

func (sqliteDialect) ColumnType(c Column) string {
	switch c.Type {
	case ColSerial:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	case ColBigInt, ColInt:
		if c.PK {
			return "INTEGER PRIMARY KEY"
		}
		return "INTEGER"
	case ColBool:
		return "BOOLEAN"
	case ColTimestamp:
		return "TIMESTAMP"
	default:
		if c.PK {
			return "TEXT PRIMARY KEY"
		}
		return "TEXT"
	}
}

func (sqliteDialect) Default(def string) string {
	switch def {
	case "now":
		return "CURRENT_TIMESTAMP"
	case "true":
		return "1"
	case "false":
		return "0"
	}
	return def
}
