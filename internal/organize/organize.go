// Package organize раскладывает медиафайлы по папкам YYYY/MM по дате съёмки.
package organize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/artemshloyda/photoledger/internal/fsx"
	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/metadata"
	"github.com/artemshloyda/photoledger/internal/progress"
	"github.com/artemshloyda/photoledger/internal/report"
)

// Disposition - итог обработки файла.
type Disposition string

const (
	Moved            Disposition = "moved"
	WouldMove        Disposition = "would_move"
	AlreadyOrganized Disposition = "already_organized"
	NoDate           Disposition = "no_date"
	TargetExists     Disposition = "target_exists"
	Tracked          Disposition = "tracked"
	Error            Disposition = "error"
)

// Outcome - результат по одному файлу.
type Outcome struct {
	Path        string
	Target      string
	Disposition Disposition
	Err         error
}

// Result - исходы, упорядоченные по пути.
type Result struct {
	Outcomes []Outcome
}

// Count возвращает количество файлов с указанным итогом.
func (r *Result) Count(d Disposition) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Disposition == d {
			n++
		}
	}
	return n
}

// HasFailures возвращает true, если были ошибки чтения или перемещения.
func (r *Result) HasFailures() bool {
	return r.Count(Error) > 0
}

// Engine перемещает файлы из корня Root в Root/YYYY/MM.
type Engine struct {
	// Root - корень дерева.
	Root string

	// Dates читает дату съёмки.
	Dates metadata.DateReader

	// Tracker - журнал (опционально). HEIC с записью не перемещаются:
	// путь JPEG выводится из пути исходника. JPEG, записанные в журнал
	// как результат конвертации, тоже остаются на месте (--out внутри --src).
	Tracker *ledger.Tracker

	// DryRun - только показать перемещения.
	DryRun bool

	Sink progress.Sink

	move func(src, dst string) error

	// destinations - пути JPEG из журнала (media.PathKey).
	destinations map[string]struct{}
}

// Run обрабатывает HEIC и JPEG из канала.
func (e *Engine) Run(ctx context.Context, files <-chan media.File) (*Result, error) {
	if e.Dates == nil {
		return nil, fmt.Errorf("organize: не задан Dates")
	}
	if e.Sink == nil {
		e.Sink = progress.Discard{}
	}
	if e.move == nil {
		e.move = fsx.MoveNoReplace
	}

	e.destinations = make(map[string]struct{})
	if e.Tracker != nil {
		for _, rec := range e.Tracker.Snapshot().Records() {
			if rec.Destination != "" {
				e.destinations[media.PathKey(rec.Destination)] = struct{}{}
			}
		}
	}

	result := &Result{}
	for file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if file.Format == media.FormatOther {
			continue
		}
		o := e.organizeOne(file)
		result.Outcomes = append(result.Outcomes, o)
		e.report(o)
	}

	sort.Slice(result.Outcomes, func(i, j int) bool { return result.Outcomes[i].Path < result.Outcomes[j].Path })
	return result, ctx.Err()
}

func (e *Engine) organizeOne(file media.File) Outcome {
	o := Outcome{Path: file.Path}

	rel, err := filepath.Rel(e.Root, file.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		o.Disposition = Error
		o.Err = fmt.Errorf("файл вне корня %s", e.Root)
		return o
	}
	if IsDateFolder(rel) {
		o.Disposition = AlreadyOrganized
		return o
	}

	if e.tracked(file) {
		o.Disposition = Tracked
		return o
	}

	if !file.HasCreationDate() {
		date, err := e.Dates.ReadCreationDate(file.Path)
		if err != nil {
			o.Disposition = Error
			o.Err = err
			return o
		}
		if date == nil {
			o.Disposition = NoDate
			return o
		}
		file = file.WithCreationDate(*date)
	}

	o.Target = TargetPath(e.Root, file.Path, *file.CreationDate)
	if e.DryRun {
		if _, err := os.Lstat(o.Target); err == nil {
			o.Disposition = TargetExists
			return o
		}
		o.Disposition = WouldMove
		return o
	}

	if err := e.move(file.Path, o.Target); err != nil {
		if fsx.IsTargetExists(err) {
			o.Disposition = TargetExists
			return o
		}
		o.Disposition = Error
		o.Err = err
		return o
	}
	o.Disposition = Moved
	return o
}

// tracked - файл известен журналу: HEIC как исходник или JPEG как результат.
func (e *Engine) tracked(file media.File) bool {
	if e.Tracker == nil {
		return false
	}
	if file.IsHEIC() {
		if _, ok := e.Tracker.Get(file.Path); ok {
			return true
		}
	}
	_, ok := e.destinations[media.PathKey(file.Path)]
	return ok
}

func (e *Engine) report(o Outcome) {
	switch o.Disposition {
	case Moved:
		e.Sink.Detail("📁 %s -> %s", o.Path, o.Target)
	case WouldMove:
		e.Sink.Detail("📁 [dry-run] %s -> %s", o.Path, o.Target)
	case NoDate:
		e.Sink.Detail("⏭️  Пропущен (нет даты): %s", o.Path)
	case TargetExists:
		e.Sink.Warn("целевой файл уже существует, пропущен: %s", o.Path)
	case Tracked:
		e.Sink.Detail("⏭️  Пропущен (есть запись в журнале): %s", o.Path)
	case Error:
		e.Sink.Error("%s: %v", o.Path, o.Err)
	}
}

// TargetPath возвращает root/YYYY/MM/<имя файла>.
func TargetPath(root, path string, date time.Time) string {
	return filepath.Join(root, fmt.Sprintf("%04d", date.Year()), fmt.Sprintf("%02d", int(date.Month())), filepath.Base(path))
}

// IsDateFolder проверяет, что относительный путь начинается с YYYY/MM/.
func IsDateFolder(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return len(parts) >= 3 && isDigits(parts[0], 4) && isDigits(parts[1], 2)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Describe заполняет отчёт этапа.
func (r *Result) Describe(doc *report.Document) {
	titles := []struct {
		d     Disposition
		title string
	}{
		{Moved, "Перемещены"},
		{WouldMove, "Будут перемещены (dry-run)"},
		{NoDate, "Нет даты съёмки"},
		{TargetExists, "Целевой файл уже существует"},
		{Tracked, "Есть запись в журнале конвертации"},
		{Error, "Ошибки"},
	}

	doc.Section("Итого")
	doc.Field("Файлов", len(r.Outcomes))
	doc.Field("Уже разложены", r.Count(AlreadyOrganized))
	for _, t := range titles {
		if n := r.Count(t.d); n > 0 {
			doc.Field(t.title, n)
		}
	}

	for _, t := range titles {
		if r.Count(t.d) == 0 {
			continue
		}
		doc.Section(t.title)
		for _, o := range r.Outcomes {
			if o.Disposition != t.d {
				continue
			}
			switch {
			case o.Err != nil:
				doc.Item("%s: %v", o.Path, o.Err)
			case o.Target != "":
				doc.Item("%s -> %s", o.Path, o.Target)
			default:
				doc.Item("%s", o.Path)
			}
		}
	}
}
