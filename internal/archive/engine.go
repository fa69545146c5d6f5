// Package archive переносит оригиналы с подтверждённой конвертацией в архив
// и возвращает их обратно по запросу.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artemshloyda/photoledger/internal/fsx"
	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/progress"
	"github.com/artemshloyda/photoledger/internal/reconcile"
)

// Engine архивирует исходники со статусом converted.
type Engine struct {
	// Tracker - журнал (уже загруженный).
	Tracker *ledger.Tracker

	// Layout задаёт корни исходников и архива.
	Layout media.Layout

	// RunID - текущий запуск. Принимаются только отчёты сверки с тем же RunID.
	RunID string

	// DryRun - ничего не перемещать и не сохранять журнал.
	DryRun bool

	// CheckpointEvery - сохранять журнал каждые N перемещений (по умолчанию 1).
	CheckpointEvery int

	// Sink - вывод сообщений.
	Sink progress.Sink

	// move перемещает файл; подменяется в тестах.
	move func(src, dst string) error

	now func() time.Time
}

func (e *Engine) defaults() {
	if e.Sink == nil {
		e.Sink = progress.Discard{}
	}
	if e.move == nil {
		e.move = fsx.MoveNoReplace
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.CheckpointEvery <= 0 {
		e.CheckpointEvery = 1
	}
}

// Run архивирует каждую запись converted, которую подтвердил отчёт rep.
// Без отчёта, с отчётом другого запуска или без подтверждения файл не
// перемещается (UnconfirmedConversionError в исходе). Ошибка перемещения
// оставляет исходник на месте, а запись converted.
func (e *Engine) Run(ctx context.Context, rep *reconcile.Report) (*Result, error) {
	if e.Tracker == nil {
		return nil, fmt.Errorf("archive: не задан Tracker")
	}
	if e.Layout.ArchiveDir == "" {
		return nil, fmt.Errorf("archive: директория архива не задана")
	}
	e.defaults()

	start := time.Now()
	result := &Result{}

	for rec := range e.Tracker.Query(ledger.WithStatus(ledger.StatusConverted)) {
		if ctx.Err() != nil {
			break
		}

		out, err := e.archiveOne(rec, rep)
		if err != nil {
			result.finalize(time.Since(start))
			return result, err
		}
		result.Outcomes = append(result.Outcomes, out)
		e.report(out)

		if out.Disposition == Archived {
			if err := e.Tracker.Checkpoint(e.CheckpointEvery); err != nil {
				result.finalize(time.Since(start))
				return result, err
			}
		}
	}

	result.finalize(time.Since(start))

	if !e.DryRun {
		if err := e.Tracker.Save(); err != nil {
			return result, err
		}
	}
	return result, ctx.Err()
}

// archiveOne обрабатывает одну запись. Ошибка - только фатальная ошибка журнала.
func (e *Engine) archiveOne(rec ledger.Record, rep *reconcile.Report) (Outcome, error) {
	out := Outcome{Source: rec.Source}

	if err := e.confirm(rec, rep); err != nil {
		out.Disposition = Unconfirmed
		out.Err = err
		return out, nil
	}

	archivePath, err := e.Layout.ArchivePath(rec.Source)
	if err != nil {
		out.Disposition = MoveFailed
		out.Err = err
		return out, nil
	}
	out.ArchivePath = archivePath

	if e.DryRun {
		out.Disposition = WouldArchive
		return out, nil
	}

	if err := e.move(rec.Source, archivePath); err != nil {
		out.Disposition = MoveFailed
		out.Err = err
		return out, nil
	}

	now := e.now()
	rec.Status = ledger.StatusArchived
	rec.ArchivePath = archivePath
	rec.ArchivedAt = &now
	if err := e.Tracker.Upsert(rec); err != nil {
		// запись не обновилась - возвращаем файл, чтобы журнал не врал
		if rbErr := fsx.Rename(archivePath, rec.Source); rbErr != nil {
			return out, errors.Join(err, fmt.Errorf("не удалось вернуть %s: %w", archivePath, rbErr))
		}
		return out, err
	}

	out.Disposition = Archived
	return out, nil
}

// confirm проверяет, что сверка текущего запуска подтвердила JPEG.
func (e *Engine) confirm(rec ledger.Record, rep *reconcile.Report) error {
	switch {
	case rep == nil:
		return &UnconfirmedConversionError{Source: rec.Source, Reason: "сверка не выполнялась"}
	case rep.RunID != e.RunID:
		return &UnconfirmedConversionError{Source: rec.Source, Reason: fmt.Sprintf("отчёт сверки из другого запуска (%s)", rep.RunID)}
	case !rep.Confirmed(rec.Source):
		reason := "файл не попал в сверку"
		if entry, ok := rep.Entry(rec.Source); ok {
			reason = fmt.Sprintf("сверка: %s", entry.Class)
			if entry.Reason != reconcile.ReasonNone {
				reason += " (" + string(entry.Reason) + ")"
			}
		}
		return &UnconfirmedConversionError{Source: rec.Source, Reason: reason}
	}
	return nil
}

func (e *Engine) report(o Outcome) {
	switch o.Disposition {
	case Archived:
		e.Sink.Detail("📦 %s -> %s", o.Source, o.ArchivePath)
	case WouldArchive:
		e.Sink.Detail("📦 [dry-run] %s -> %s", o.Source, o.ArchivePath)
	case Unconfirmed:
		e.Sink.Warn("%v", o.Err)
	case MoveFailed:
		e.Sink.Error("%s: %v", o.Source, o.Err)
	}
}
