// Package convert содержит этап конвертации HEIC -> JPEG: проверку даты
// съёмки, вызов кодека, перенос метаданных и обновление журнала.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/artemshloyda/photoledger/internal/converter"
	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/metadata"
	"github.com/artemshloyda/photoledger/internal/progress"
	"github.com/artemshloyda/photoledger/internal/worker"
)

// Engine конвертирует HEIC-файлы и ведёт журнал.
type Engine struct {
	// Tracker - журнал (уже загруженный вызывающим кодом).
	Tracker *ledger.Tracker

	// Dates читает дату съёмки.
	Dates metadata.DateReader

	// Codec выполняет конвертацию.
	Codec converter.Transcoder

	// Copier переносит метаданные на JPEG.
	Copier metadata.Copier

	// Layout выводит путь JPEG из пути исходника.
	Layout media.Layout

	// Workers - количество параллельных конвертаций.
	Workers int

	// MaxMemoryMB - ограничение памяти воркеров (0 = без ограничения).
	MaxMemoryMB int

	// CheckpointEvery - сохранять журнал каждые N изменений.
	CheckpointEvery int

	// DryRun - ничего не менять: ни журнал, ни файлы, кодек не вызывается.
	DryRun bool

	// Sink - вывод сообщений (по умолчанию progress.Discard).
	Sink progress.Sink

	// Bar - прогресс-бар (опционально).
	Bar *progress.Bar

	// now подменяется в тестах.
	now func() time.Time

	// claims - владельцы путей JPEG (media.PathKey -> исходник): записи
	// журнала и исходники, уже допущенные в этом запуске.
	claimsMu sync.Mutex
	claims   map[string]string
}

// errFileFailed помечает файл как неудачный для статистики пула.
var errFileFailed = errors.New("file failed")

// Run обрабатывает файлы из канала до его закрытия или отмены ctx.
// Ошибки отдельных файлов попадают в Result и не прерывают запуск.
// Ошибка возвращается только при нарушении целостности журнала,
// невозможности его сохранить или отмене ctx; Result при этом всё равно
// содержит исходы уже обработанных файлов.
func (e *Engine) Run(ctx context.Context, files <-chan media.File) (*Result, error) {
	if e.Tracker == nil || e.Dates == nil || e.Codec == nil {
		return nil, fmt.Errorf("convert: не заданы Tracker, Dates или Codec")
	}
	e.defaults()
	e.loadClaims()

	start := time.Now()
	result := &Result{}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalOnce sync.Once
		fatal     error
	)
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatal = err
			cancel()
		})
	}

	pool := worker.New(e.Workers, e.MaxMemoryMB).OnInterrupted(func(file media.File, err error) {
		// Файл взят из канала, но отмена пришла раньше, чем нашлась память
		if !file.IsHEIC() {
			return
		}
		out := Outcome{Source: file.Path, InputBytes: file.Size, Disposition: Interrupted, Detail: err.Error()}
		out.Destination, _ = e.Layout.DestPath(file.Path)
		result.add(out)
		e.report(out)
	})
	pool.Process(runCtx, files, func(ctx context.Context, file media.File) error {
		out, err := e.processFile(ctx, file)
		if err != nil {
			if ledger.IsFatal(err) {
				abort(err)
				return err
			}
			out = &Outcome{Source: file.Path, InputBytes: file.Size, Disposition: Failed, Detail: err.Error()}
		}
		if out == nil {
			return nil
		}

		result.add(*out)
		e.report(*out)

		if !e.DryRun {
			if err := e.Tracker.Checkpoint(e.CheckpointEvery); err != nil {
				abort(err)
				return err
			}
		}
		if out.Disposition == Failed || out.Disposition == Corrupt {
			return errFileFailed
		}
		return nil
	})

	result.finalize(time.Since(start))

	if fatal != nil {
		return result, fatal
	}

	// Прерванный запуск тоже сохраняется: pending и converted остаются
	// правдивыми отметками для следующего запуска.
	if !e.DryRun {
		if err := e.Tracker.Save(); err != nil {
			return result, err
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// loadClaims заполняет claims путями JPEG из журнала.
func (e *Engine) loadClaims() {
	e.claimsMu.Lock()
	defer e.claimsMu.Unlock()
	e.claims = make(map[string]string)
	for _, rec := range e.Tracker.Snapshot().Records() {
		if rec.Destination == "" {
			continue
		}
		key := media.PathKey(rec.Destination)
		if _, taken := e.claims[key]; !taken {
			e.claims[key] = rec.Source
		}
	}
}

// claim закрепляет dest за source. Возвращает владельца, если путь уже
// занят другим исходником (IMG_0001.HEIC и IMG_0001.heif дают один JPEG).
func (e *Engine) claim(dest, source string) (owner string, ok bool) {
	e.claimsMu.Lock()
	defer e.claimsMu.Unlock()
	key := media.PathKey(dest)
	if owner, taken := e.claims[key]; taken && owner != source {
		return owner, false
	}
	e.claims[key] = source
	return source, true
}

func (e *Engine) defaults() {
	if e.Copier == nil {
		e.Copier = metadata.NopCopier{}
	}
	if e.Sink == nil {
		e.Sink = progress.Discard{}
	}
	if e.Workers < 1 {
		e.Workers = 1
	}
	if e.now == nil {
		e.now = time.Now
	}
}

// processFile проводит один файл через конечный автомат:
// обнаружен -> (проверка даты) -> конвертация -> converted | failed.
// nil, nil - файл не относится к этапу (не HEIC).
// Ошибка - только ошибка журнала.
func (e *Engine) processFile(ctx context.Context, file media.File) (*Outcome, error) {
	if !file.IsHEIC() {
		return nil, nil
	}

	out := &Outcome{Source: file.Path, InputBytes: file.Size}

	dest, err := e.Layout.DestPath(file.Path)
	if err != nil {
		out.Disposition = Failed
		out.Detail = err.Error()
		return out, nil
	}
	out.Destination = dest

	prev, exists := e.Tracker.Get(file.Path)
	if exists {
		switch prev.Status {
		case ledger.StatusFailed:
			out.Disposition = SkippedFailed
			out.Detail = prev.Error
			return out, nil
		case ledger.StatusArchived:
			out.Disposition = SkippedConverted
			return out, nil
		case ledger.StatusConverted:
			if fileExists(prev.Destination) {
				out.Disposition = SkippedConverted
				return out, nil
			}
			// JPEG удалён после конвертации: конвертируем заново
		}
	}

	date, err := e.Dates.ReadCreationDate(file.Path)
	if err != nil {
		out.Disposition = Corrupt
		out.Detail = err.Error()
		return out, nil
	}
	if date == nil {
		out.Disposition = SkippedNoDate
		return out, nil
	}
	file = file.WithCreationDate(*date)

	rec := ledger.Record{
		Source:       file.Path,
		Destination:  dest,
		Status:       ledger.StatusPending,
		CreationDate: file.CreationDate,
	}
	refresh := exists && prev.Status == ledger.StatusConverted

	if owner, ok := e.claim(dest, file.Path); !ok {
		out.Disposition = Failed
		out.Detail = fmt.Sprintf("JPEG %s уже занят исходником %s", dest, owner)
		if e.DryRun {
			return out, nil
		}
		if refresh {
			prev.Error = out.Detail
			return out, e.Tracker.Upsert(prev)
		}
		rec.Status = ledger.StatusFailed
		rec.Error = out.Detail
		return out, e.Tracker.Upsert(rec)
	}

	if e.DryRun {
		out.Disposition = WouldConvert
		return out, nil
	}

	if !refresh {
		if err := e.Tracker.Upsert(rec); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	if err := e.Codec.Transcode(ctx, file.Path, dest); err != nil {
		if ctx.Err() != nil {
			// Запись остаётся pending: следующий запуск продолжит с неё
			out.Disposition = Interrupted
			out.Detail = ctx.Err().Error()
			return out, nil
		}

		out.Disposition = Failed
		out.Detail = err.Error()

		if refresh {
			// converted -> failed запрещён: запись остаётся converted,
			// сверка покажет её как устаревшую
			prev.Error = err.Error()
			return out, e.Tracker.Upsert(prev)
		}
		rec.Status = ledger.StatusFailed
		rec.Error = err.Error()
		return out, e.Tracker.Upsert(rec)
	}
	out.Duration = time.Since(started)

	if err := e.Copier.CopyMetadata(ctx, file.Path, dest); err != nil {
		out.Warning = err.Error()
	}

	if info, err := os.Stat(dest); err == nil {
		out.OutputBytes = info.Size()
	}

	now := e.now()
	rec.Status = ledger.StatusConverted
	rec.ConvertedAt = &now
	rec.Warning = out.Warning
	if err := e.Tracker.Upsert(rec); err != nil {
		return nil, err
	}

	out.Disposition = Converted
	return out, nil
}

// report выводит исход файла и двигает прогресс-бар.
func (e *Engine) report(o Outcome) {
	switch o.Disposition {
	case Converted:
		e.Sink.Detail("✅ %s -> %s (%.2fs)", o.Source, o.Destination, o.Duration.Seconds())
		if o.Warning != "" {
			e.Sink.Warn("%s: метаданные не перенесены: %s", o.Source, o.Warning)
		}
	case WouldConvert:
		e.Sink.Detail("🔄 [dry-run] %s -> %s", o.Source, o.Destination)
	case SkippedConverted:
		e.Sink.Detail("⏭️  Пропущен: %s (уже сконвертирован)", o.Source)
	case SkippedNoDate:
		e.Sink.Detail("⏭️  Пропущен: %s (нет даты съёмки)", o.Source)
	case SkippedFailed:
		e.Sink.Detail("⏭️  Пропущен: %s (ошибка в прошлом запуске)", o.Source)
	case Corrupt, Failed:
		e.Sink.Error("%s: %s", o.Source, o.Detail)
	}

	if e.Bar == nil {
		return
	}
	switch o.Disposition {
	case Converted, WouldConvert:
		e.Bar.Increment()
	case Corrupt, Failed, Interrupted:
		e.Bar.IncrementFailed()
	default:
		e.Bar.IncrementSkipped()
	}
}

// fileExists - файл есть и не пустой.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

/*
Возможные расширения:
- Повторная попытка для failed по явному флагу (--retry-failed)
- Проверка целостности JPEG после конвертации
*/
