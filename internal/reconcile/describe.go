package reconcile

import (
	"fmt"

	"github.com/artemshloyda/photoledger/internal/report"
)

var reasonTitles = map[Reason]string{
	ReasonNoRecord:  "нет записи в журнале",
	ReasonPending:   "конвертация не завершена",
	ReasonFailed:    "ошибка конвертации",
	ReasonStale:     "JPEG удалён после конвертации",
	ReasonCollision: "JPEG записан за несколькими исходниками",
}

// Describe заполняет отчёт сверки.
func (r *Report) Describe(doc *report.Document) {
	doc.Section("Итого")
	doc.Field("HEIC-исходников", len(r.Entries))
	doc.Field("Подтверждены", r.Count(Reconciled))
	doc.Field("Не сконвертированы", r.Count(Unconverted))
	for _, reason := range Reasons() {
		if n := r.CountReason(reason); n > 0 {
			doc.Field("  "+reasonTitles[reason], n)
		}
	}
	doc.Field("JPEG-сироты", r.Count(Orphaned))
	doc.Field("Доля конвертации", fmt.Sprintf("%.1f%%", r.ConversionRate()))
	doc.Field("Объём HEIC (подтверждённые)", report.FormatBytes(r.HEICBytes))
	doc.Field("Объём JPEG (подтверждённые)", report.FormatBytes(r.JPEGBytes))
	doc.Field("Сэкономлено", report.FormatBytes(r.SpaceSaved()))

	if n := r.Count(Unconverted); n > 0 {
		doc.Section("Не сконвертированы")
		for _, e := range r.Entries {
			if e.Class == Unconverted {
				doc.Item("%s (%s)", e.Path, reasonTitles[e.Reason])
			}
		}
	}

	if len(r.Orphans) > 0 {
		doc.Section("JPEG-сироты (нужна ручная проверка)")
		for _, e := range r.Orphans {
			if e.SourcePresent {
				doc.Item("%s (исходник %s без записи в журнале)", e.Path, e.Destination)
			} else {
				doc.Item("%s", e.Path)
			}
		}
	}

	if n := r.Count(Reconciled); n > 0 {
		doc.Section("Подтверждены")
		for _, e := range r.Entries {
			if e.Class == Reconciled {
				doc.Item("%s -> %s [%s]", e.Path, e.Destination, e.Status)
			}
		}
	}
}
