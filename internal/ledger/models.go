// Package ledger содержит журнал конвертации: единственный источник правды
// о том, какие исходники уже сконвертированы и заархивированы.
package ledger

import (
	"fmt"
	"sort"
	"time"
)

// Status определяет состояние записи журнала.
type Status string

const (
	// StatusNone - записи нет (используется только при проверке переходов).
	StatusNone Status = ""
	// StatusPending - файл найден и допущен к конвертации.
	StatusPending Status = "pending"
	// StatusConverted - JPEG создан, метаданные скопированы (или выдано предупреждение).
	StatusConverted Status = "converted"
	// StatusFailed - ошибка конвертации. Терминальное состояние.
	StatusFailed Status = "failed"
	// StatusArchived - оригинал перемещён в архив.
	StatusArchived Status = "archived"
)

// ParseStatus разбирает строковое значение статуса.
// Неизвестные значения - ошибка.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConverted, StatusFailed, StatusArchived:
		return Status(s), nil
	default:
		return StatusNone, fmt.Errorf("неизвестный статус %q", s)
	}
}

// AtLeastConverted возвращает true для converted и archived.
func (s Status) AtLeastConverted() bool {
	return s == StatusConverted || s == StatusArchived
}

// Record - запись журнала для одного исходного файла.
type Record struct {
	// Source - абсолютный путь исходника (ключ).
	Source string

	// Destination - путь JPEG, выведенный из Source.
	Destination string

	// Status - текущее состояние.
	Status Status

	// CreationDate - дата съёмки, прочитанная при валидации.
	CreationDate *time.Time

	// ConvertedAt - время успешной конвертации.
	ConvertedAt *time.Time

	// ArchivePath - путь оригинала в архиве (для archived).
	ArchivePath string

	// ArchivedAt - время архивации.
	ArchivedAt *time.Time

	// Error - текст ошибки кодека, сохранённый дословно (для failed).
	Error string

	// Warning - предупреждение, не отменяющее конвертацию (например, ошибка копирования EXIF).
	Warning string

	// UpdatedAt - время последнего изменения записи.
	UpdatedAt time.Time
}

// HistoryAction - событие истории архива.
type HistoryAction string

const (
	// HistoryArchived - оригинал перенесён в архив.
	HistoryArchived HistoryAction = "archived"
	// HistoryRestored - оригинал возвращён из архива, запись удалена.
	HistoryRestored HistoryAction = "restored"
)

// HistoryEvent - событие истории архива. История только дополняется:
// после restore запись журнала удаляется, а след архивации остаётся здесь.
type HistoryEvent struct {
	Action      HistoryAction
	Source      string
	ArchivePath string
	Destination string
	At          time.Time
}

// Stats - количество записей по статусам.
type Stats struct {
	Total     int
	Pending   int
	Converted int
	Failed    int
	Archived  int
}

// Snapshot - неизменяемая копия журнала, упорядоченная по пути исходника.
type Snapshot struct {
	records map[string]Record
	keys    []string
}

func newSnapshot(records map[string]Record) Snapshot {
	s := Snapshot{
		records: make(map[string]Record, len(records)),
		keys:    make([]string, 0, len(records)),
	}
	for k, r := range records {
		s.records[k] = r
		s.keys = append(s.keys, k)
	}
	sort.Strings(s.keys)
	return s
}

// NewSnapshot строит снимок из набора записей. Используется в тестах
// и при сборке снимка вне Tracker.
func NewSnapshot(records ...Record) Snapshot {
	m := make(map[string]Record, len(records))
	for _, r := range records {
		m[r.Source] = r
	}
	return newSnapshot(m)
}

// Get возвращает запись по пути исходника.
func (s Snapshot) Get(source string) (Record, bool) {
	r, ok := s.records[source]
	return r, ok
}

// Len возвращает количество записей.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// Records возвращает записи в порядке путей исходников.
func (s Snapshot) Records() []Record {
	out := make([]Record, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.records[k])
	}
	return out
}

// Stats считает записи по статусам.
func (s Snapshot) Stats() Stats {
	st := Stats{Total: len(s.keys)}
	for _, r := range s.records {
		switch r.Status {
		case StatusPending:
			st.Pending++
		case StatusConverted:
			st.Converted++
		case StatusFailed:
			st.Failed++
		case StatusArchived:
			st.Archived++
		}
	}
	return st
}
