package convert

import (
	"sort"
	"sync"
	"time"

	"github.com/artemshloyda/photoledger/internal/report"
)

// Disposition - итог обработки одного файла.
type Disposition string

const (
	// Converted - JPEG создан, запись переведена в converted.
	Converted Disposition = "converted"
	// SkippedConverted - файл уже сконвертирован или заархивирован.
	SkippedConverted Disposition = "skipped_converted"
	// SkippedFailed - прошлая попытка завершилась ошибкой, нужен ручной разбор.
	SkippedFailed Disposition = "skipped_failed"
	// SkippedNoDate - в EXIF нет даты съёмки, файл не тронут.
	SkippedNoDate Disposition = "skipped_no_date"
	// Corrupt - файл не читается.
	Corrupt Disposition = "corrupt"
	// Failed - ошибка кодека.
	Failed Disposition = "failed"
	// WouldConvert - dry-run: файл был бы сконвертирован.
	WouldConvert Disposition = "would_convert"
	// Interrupted - запуск прерван до завершения конвертации файла.
	Interrupted Disposition = "interrupted"
)

// dispositionOrder - порядок разделов в отчёте.
var dispositionOrder = []Disposition{
	Converted, WouldConvert, SkippedConverted, SkippedNoDate, SkippedFailed, Corrupt, Failed, Interrupted,
}

var dispositionTitles = map[Disposition]string{
	Converted:        "Сконвертированы",
	WouldConvert:     "Будут сконвертированы (dry-run)",
	SkippedConverted: "Уже сконвертированы",
	SkippedNoDate:    "Нет даты съёмки",
	SkippedFailed:    "Ошибка в прошлом запуске (нужен ручной разбор)",
	Corrupt:          "Нечитаемые файлы",
	Failed:           "Ошибки конвертации",
	Interrupted:      "Прерваны",
}

// Outcome - результат обработки одного файла.
type Outcome struct {
	// Source - путь исходника.
	Source string

	// Destination - путь JPEG.
	Destination string

	// Disposition - итог.
	Disposition Disposition

	// Detail - текст ошибки (дословно) или причина пропуска.
	Detail string

	// Warning - предупреждение (ошибка копирования EXIF).
	Warning string

	// InputBytes, OutputBytes - размеры исходника и JPEG.
	InputBytes  int64
	OutputBytes int64

	// Duration - время конвертации.
	Duration time.Duration
}

// Result - полный список исходов запуска, упорядоченный по пути.
type Result struct {
	Outcomes []Outcome
	Duration time.Duration

	mu sync.Mutex
}

func (r *Result) add(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes = append(r.Outcomes, o)
}

func (r *Result) finalize(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].Source < r.Outcomes[j].Source
	})
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

// Warnings возвращает количество предупреждений.
func (r *Result) Warnings() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Warning != "" {
			n++
		}
	}
	return n
}

// HasFailures возвращает true, если были ошибки кодека или нечитаемые файлы.
func (r *Result) HasFailures() bool {
	return r.Count(Failed) > 0 || r.Count(Corrupt) > 0
}

// Bytes возвращает суммарные размеры сконвертированных исходников и JPEG.
func (r *Result) Bytes() (in, out int64) {
	for _, o := range r.Outcomes {
		if o.Disposition == Converted {
			in += o.InputBytes
			out += o.OutputBytes
		}
	}
	return in, out
}

// Describe заполняет отчёт этапа конвертации.
func (r *Result) Describe(doc *report.Document) {
	in, out := r.Bytes()

	doc.Section("Итого")
	doc.Field("Файлов", len(r.Outcomes))
	for _, d := range dispositionOrder {
		if n := r.Count(d); n > 0 {
			doc.Field(dispositionTitles[d], n)
		}
	}
	doc.Field("Предупреждений", r.Warnings())
	doc.Field("Объём HEIC", report.FormatBytes(in))
	doc.Field("Объём JPEG", report.FormatBytes(out))
	doc.Field("Время", r.Duration.Round(time.Millisecond))

	for _, d := range dispositionOrder {
		if r.Count(d) == 0 {
			continue
		}
		doc.Section(dispositionTitles[d])
		for _, o := range r.Outcomes {
			if o.Disposition != d {
				continue
			}
			switch {
			case o.Detail != "":
				doc.Item("%s: %s", o.Source, o.Detail)
			case d == Converted || d == WouldConvert:
				doc.Item("%s -> %s", o.Source, o.Destination)
			default:
				doc.Item("%s", o.Source)
			}
			if o.Warning != "" {
				doc.Line("      предупреждение: %s", o.Warning)
			}
		}
	}
}
