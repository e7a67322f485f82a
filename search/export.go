package search

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tg_archive_bot/database"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// Export пишет текстовый отчёт по сохранённым результатам, без нового запроса
func Export(w io.Writer, src *database.Source, r *Result, now time.Time) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# Archive search results")
	fmt.Fprintln(bw)
	if src != nil {
		fmt.Fprintf(bw, "Source: %s (%s)\n", src.Title, src.Type)
	}
	if lines := r.Filters.Describe(); len(lines) > 0 {
		fmt.Fprintln(bw, "Filters:")
		for _, l := range lines {
			fmt.Fprintf(bw, "- %s\n", l)
		}
	}
	fmt.Fprintf(bw, "\nResults: %d\n", r.Total())
	fmt.Fprintf(bw, "Exported: %s\n\n", now.UTC().Format(exportTimeLayout))
	fmt.Fprintln(bw, "---")

	for i, m := range r.Messages {
		fmt.Fprintf(bw, "\n## %d. Message %d\n", i+1, m.MessageID)
		fmt.Fprintf(bw, "- Sender: %s (%d)\n", m.SenderName, m.SenderID)
		fmt.Fprintf(bw, "- Date: %s\n", m.MessageDate.UTC().Format(exportTimeLayout))
		fmt.Fprintf(bw, "- Type: %s\n", m.Kind)
		if m.TopicID != nil {
			fmt.Fprintf(bw, "- Topic: %d\n", *m.TopicID)
		}
		text := m.Text
		if text == "" {
			text = "(no text)"
		}
		fmt.Fprintf(bw, "\n%s\n\n---\n", text)
	}
	return bw.Flush()
}

// WriteExportFile создаёт файл отчёта в dir (пусто = временный каталог ОС).
// Удалить файл после отправки должен вызывающий.
func WriteExportFile(dir string, src *database.Source, r *Result, now time.Time) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "search.WriteExportFile.MkdirAll")
	}
	path := filepath.Join(dir, fmt.Sprintf("search_results_%s_%s.txt", now.UTC().Format("20060102_150405"), uuid.NewString()[:8]))

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "search.WriteExportFile.Create")
	}
	if err := Export(f, src, r, now); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrap(err, "search.WriteExportFile.Export")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "search.WriteExportFile.Close")
	}
	return path, nil
}
