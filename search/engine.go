package search

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/database"
)

const PageSize = 10

type Searcher interface {
	SearchMessages(ctx context.Context, sourceID int64, preds []database.Predicate) ([]database.ArchivedMessage, error)
}

type Engine struct {
	store Searcher
	now   func() time.Time
}

func NewEngine(store Searcher) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Run выполняет поиск один раз; результат живёт в сессии и
// листается без повторных запросов.
func (e *Engine) Run(ctx context.Context, sourceID int64, f Filters) (*Result, error) {
	preds := f.Predicates()
	msgs, err := e.store.SearchMessages(ctx, sourceID, preds)
	if err != nil {
		return nil, errors.Wrap(err, "search.Run")
	}
	log.WithFields(log.Fields{
		"source_id": sourceID,
		"filters":   len(preds),
		"found":     len(msgs),
	}).Debug("search executed")

	return &Result{
		SourceID:  sourceID,
		Filters:   f,
		Messages:  msgs,
		CreatedAt: e.now(),
	}, nil
}

type Result struct {
	SourceID  int64
	Filters   Filters
	Messages  []database.ArchivedMessage
	CreatedAt time.Time
}

type Page struct {
	Number int
	Pages  int
	Offset int
	Items  []database.ArchivedMessage
}

func (r *Result) Total() int {
	return len(r.Messages)
}

func (r *Result) Pages() int {
	return (len(r.Messages) + PageSize - 1) / PageSize
}

// Page возвращает страницу n, номер прижимается к [1, Pages()]
func (r *Result) Page(n int) Page {
	pages := r.Pages()
	if n > pages {
		n = pages
	}
	if n < 1 {
		n = 1
	}
	start := (n - 1) * PageSize
	end := start + PageSize
	if end > len(r.Messages) {
		end = len(r.Messages)
	}
	if start > end {
		start = end
	}
	return Page{Number: n, Pages: pages, Offset: start, Items: r.Messages[start:end]}
}

// Find ищет сообщение только среди сохранённых результатов
func (r *Result) Find(id int64) (*database.ArchivedMessage, bool) {
	for i := range r.Messages {
		if r.Messages[i].ID == id {
			return &r.Messages[i], true
		}
	}
	return nil, false
}
