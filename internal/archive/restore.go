package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/artemshloyda/photoledger/internal/ledger"
)

// Restore возвращает заархивированный оригинал на исходное место и удаляет
// запись из журнала, после чего файл снова считается несконвертированным.
// name - имя файла (без учёта регистра) или путь относительно исходников.
func (e *Engine) Restore(ctx context.Context, name string) (*Result, error) {
	if e.Tracker == nil {
		return nil, fmt.Errorf("archive: не задан Tracker")
	}
	e.defaults()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	matches := e.findArchived(name)
	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Name: name}
	case 1:
	default:
		var candidates []string
		for _, r := range matches {
			candidates = append(candidates, r.Source)
		}
		return nil, &AmbiguousError{Name: name, Candidates: candidates}
	}

	rec := matches[0]
	out := Outcome{Source: rec.Source, ArchivePath: rec.ArchivePath}
	result := &Result{}

	switch {
	case e.DryRun:
		out.Disposition = WouldRestore
	default:
		if err := e.move(rec.ArchivePath, rec.Source); err != nil {
			out.Disposition = RestoreFailed
			out.Err = err
			break
		}
		e.Tracker.Forget(rec.Source)
		out.Disposition = Restored
	}

	result.Outcomes = append(result.Outcomes, out)
	result.finalize(time.Since(start))

	switch out.Disposition {
	case Restored:
		e.Sink.Info("♻️  Восстановлен: %s -> %s", rec.ArchivePath, rec.Source)
	case WouldRestore:
		e.Sink.Info("♻️  [dry-run] %s -> %s", rec.ArchivePath, rec.Source)
	case RestoreFailed:
		e.Sink.Error("%s: %v", rec.Source, out.Err)
	}

	if !e.DryRun {
		if err := e.Tracker.Save(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// findArchived ищет записи archived по имени файла или относительному пути.
func (e *Engine) findArchived(name string) []ledger.Record {
	name = filepath.Clean(name)
	byPath := strings.ContainsRune(name, filepath.Separator)

	var out []ledger.Record
	for rec := range e.Tracker.Query(ledger.WithStatus(ledger.StatusArchived)) {
		if filepath.IsAbs(name) {
			if rec.Source == name {
				out = append(out, rec)
			}
			continue
		}
		if byPath {
			rel, err := e.Layout.Rel(rec.Source)
			if err == nil && strings.EqualFold(rel, name) {
				out = append(out, rec)
			}
			continue
		}
		if strings.EqualFold(filepath.Base(rec.Source), name) {
			out = append(out, rec)
		}
	}
	return out
}
