// Package reconcile сверяет журнал с файловой системой.
//
// Каждый HEIC-исходник (найденный при сканировании или упомянутый в журнале)
// получает ровно один класс: reconciled или unconverted. Отдельно
// перечисляются JPEG-сироты: файлы в выходном дереве, которых журнал
// никогда не записывал. Сверка ничего не меняет.
package reconcile

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/media"
)

// Class - класс исходника по итогам сверки.
type Class string

const (
	// Reconciled - журнал говорит converted/archived, JPEG есть и не пустой.
	Reconciled Class = "reconciled"
	// Unconverted - конвертация не подтверждена (см. Reason).
	Unconverted Class = "unconverted"
	// Orphaned - JPEG без записи в журнале.
	Orphaned Class = "orphaned"
)

// Reason уточняет класс Unconverted.
type Reason string

const (
	ReasonNone Reason = ""
	// ReasonNoRecord - записи в журнале нет.
	ReasonNoRecord Reason = "no_record"
	// ReasonPending - конвертация начата, но не завершена.
	ReasonPending Reason = "pending"
	// ReasonFailed - ошибка конвертации, нужен ручной разбор.
	ReasonFailed Reason = "failed"
	// ReasonStale - журнал говорит converted, но JPEG удалён или пуст.
	ReasonStale Reason = "stale"
	// ReasonCollision - тот же JPEG записан за другим исходником.
	ReasonCollision Reason = "collision"
)

// Reasons возвращает причины Unconverted в порядке вывода.
func Reasons() []Reason {
	return []Reason{ReasonNoRecord, ReasonPending, ReasonFailed, ReasonStale, ReasonCollision}
}

// Entry - итог сверки для одного файла.
type Entry struct {
	// Path - путь исходника (для сирот - путь JPEG).
	Path string

	Class  Class
	Reason Reason

	// Status - статус в журнале (пусто, если записи нет).
	Status ledger.Status

	// Destination - путь JPEG (для сирот - исходник с таким же путём, если найден).
	Destination string

	// SourcePresent - исходник найден при сканировании.
	SourcePresent bool

	// Size, DestSize - размеры исходника и JPEG.
	Size     int64
	DestSize int64
}

// Report - результат сверки.
type Report struct {
	// RunID - запуск, в котором выполнена сверка.
	RunID string

	// GeneratedAt - время снимка файловой системы.
	GeneratedAt time.Time

	// Entries - исходники, упорядоченные по пути.
	Entries []Entry

	// Orphans - JPEG-сироты, упорядоченные по пути.
	Orphans []Entry

	// HEICBytes, JPEGBytes - суммарные размеры подтверждённых пар.
	HEICBytes int64
	JPEGBytes int64

	confirmed map[string]struct{}
}

// Reconcile классифицирует исходники. Чистая функция: одинаковые входы
// дают одинаковый отчёт.
func Reconcile(snap ledger.Snapshot, fs Snapshot, layout media.Layout, runID string) *Report {
	rep := &Report{
		RunID:       runID,
		GeneratedAt: fs.TakenAt,
		confirmed:   make(map[string]struct{}),
	}

	outputs := make(map[string]media.File, len(fs.Outputs))
	for _, f := range fs.Outputs {
		outputs[filepath.Clean(f.Path)] = f
	}

	sources := make(map[string]media.File, len(fs.Sources))
	expected := make(map[string]string, len(fs.Sources))
	for _, f := range fs.Sources {
		sources[f.Path] = f
		if dest, err := layout.DestPath(f.Path); err == nil {
			expected[filepath.Clean(dest)] = f.Path
		}
	}

	// объединение исходников из сканирования и журнала
	paths := make(map[string]struct{}, len(sources)+snap.Len())
	for p := range sources {
		paths[p] = struct{}{}
	}
	recorded := make(map[string]struct{}, snap.Len())
	// claimants - сколько converted/archived записей указывают на один JPEG
	claimants := make(map[string]int, snap.Len())
	for _, r := range snap.Records() {
		paths[r.Source] = struct{}{}
		if r.Destination != "" {
			recorded[filepath.Clean(r.Destination)] = struct{}{}
			if r.Status.AtLeastConverted() {
				claimants[media.PathKey(r.Destination)]++
			}
		}
	}

	for p := range paths {
		src, present := sources[p]
		rec, hasRecord := snap.Get(p)

		e := Entry{Path: p, SourcePresent: present, Size: src.Size}
		if hasRecord {
			e.Status = rec.Status
			e.Destination = rec.Destination
		} else if dest, err := layout.DestPath(p); err == nil {
			e.Destination = dest
		}

		switch {
		case !hasRecord:
			e.Class, e.Reason = Unconverted, ReasonNoRecord
		case rec.Status == ledger.StatusPending:
			e.Class, e.Reason = Unconverted, ReasonPending
		case rec.Status == ledger.StatusFailed:
			e.Class, e.Reason = Unconverted, ReasonFailed
		case claimants[media.PathKey(rec.Destination)] > 1:
			// один JPEG не подтверждает два оригинала
			e.Class, e.Reason = Unconverted, ReasonCollision
		default:
			out, ok := outputs[filepath.Clean(rec.Destination)]
			if ok && out.Size > 0 {
				e.Class = Reconciled
				e.DestSize = out.Size
			} else {
				e.Class, e.Reason = Unconverted, ReasonStale
			}
		}

		if e.Class == Reconciled {
			rep.confirmed[p] = struct{}{}
			rep.HEICBytes += e.Size
			rep.JPEGBytes += e.DestSize
		}
		rep.Entries = append(rep.Entries, e)
	}

	for path, out := range outputs {
		if _, ok := recorded[path]; ok {
			continue
		}
		rep.Orphans = append(rep.Orphans, Entry{
			Path:          out.Path,
			Class:         Orphaned,
			Destination:   expected[path],
			SourcePresent: expected[path] != "",
			DestSize:      out.Size,
		})
	}

	sort.Slice(rep.Entries, func(i, j int) bool { return rep.Entries[i].Path < rep.Entries[j].Path })
	sort.Slice(rep.Orphans, func(i, j int) bool { return rep.Orphans[i].Path < rep.Orphans[j].Path })

	return rep
}

// Confirmed возвращает true, если сверка подтвердила JPEG для исходника.
func (r *Report) Confirmed(source string) bool {
	if r == nil {
		return false
	}
	_, ok := r.confirmed[source]
	return ok
}

// Entry возвращает итог сверки для исходника.
func (r *Report) Entry(source string) (Entry, bool) {
	i := sort.Search(len(r.Entries), func(i int) bool { return r.Entries[i].Path >= source })
	if i < len(r.Entries) && r.Entries[i].Path == source {
		return r.Entries[i], true
	}
	return Entry{}, false
}

// Count возвращает количество записей класса.
func (r *Report) Count(c Class) int {
	if c == Orphaned {
		return len(r.Orphans)
	}
	n := 0
	for _, e := range r.Entries {
		if e.Class == c {
			n++
		}
	}
	return n
}

// CountReason возвращает количество неподтверждённых исходников по причине.
func (r *Report) CountReason(reason Reason) int {
	n := 0
	for _, e := range r.Entries {
		if e.Class == Unconverted && e.Reason == reason {
			n++
		}
	}
	return n
}

// ConversionRate - доля подтверждённых исходников в процентах.
func (r *Report) ConversionRate() float64 {
	if len(r.Entries) == 0 {
		return 0
	}
	return float64(r.Count(Reconciled)) / float64(len(r.Entries)) * 100
}

// SpaceSaved - разница размеров HEIC и JPEG по подтверждённым парам.
func (r *Report) SpaceSaved() int64 {
	return r.HEICBytes - r.JPEGBytes
}
