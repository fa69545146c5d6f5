package archive

import (
	"sort"
	"time"

	"github.com/artemshloyda/photoledger/internal/fsx"
	"github.com/artemshloyda/photoledger/internal/report"
)

// Disposition - итог архивации одного файла.
type Disposition string

const (
	Archived      Disposition = "archived"
	WouldArchive  Disposition = "would_archive"
	Unconfirmed   Disposition = "unconfirmed"
	MoveFailed    Disposition = "move_failed"
	Restored      Disposition = "restored"
	WouldRestore  Disposition = "would_restore"
	RestoreFailed Disposition = "restore_failed"
)

// Outcome - результат по одному файлу.
type Outcome struct {
	Source      string
	ArchivePath string
	Disposition Disposition
	Err         error
}

// Result - исходы архивации или восстановления, упорядоченные по пути.
type Result struct {
	Outcomes []Outcome
	Duration time.Duration
}

func (r *Result) finalize(d time.Duration) {
	sort.Slice(r.Outcomes, func(i, j int) bool { return r.Outcomes[i].Source < r.Outcomes[j].Source })
	r.Duration = d
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

// HasFailures возвращает true, если какой-то файл не удалось переместить.
func (r *Result) HasFailures() bool {
	return r.Count(MoveFailed) > 0 || r.Count(RestoreFailed) > 0
}

var titles = []struct {
	d     Disposition
	title string
}{
	{Archived, "Перемещены в архив"},
	{WouldArchive, "Будут перемещены (dry-run)"},
	{Restored, "Восстановлены"},
	{WouldRestore, "Будут восстановлены (dry-run)"},
	{Unconfirmed, "Не подтверждены сверкой"},
	{MoveFailed, "Ошибки перемещения"},
	{RestoreFailed, "Ошибки восстановления"},
}

// Describe заполняет отчёт этапа.
func (r *Result) Describe(doc *report.Document) {
	doc.Section("Итого")
	doc.Field("Записей", len(r.Outcomes))
	for _, t := range titles {
		if n := r.Count(t.d); n > 0 {
			doc.Field(t.title, n)
		}
	}
	doc.Field("Время", r.Duration.Round(time.Millisecond))

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
			case o.Err != nil && fsx.IsCrossDevice(o.Err):
				doc.Item("%s: архив на другом устройстве, файл оставлен на месте", o.Source)
			case o.Err != nil:
				doc.Item("%s: %v", o.Source, o.Err)
			default:
				doc.Item("%s -> %s", o.Source, o.ArchivePath)
			}
		}
	}
}
