package ledger

import (
	"fmt"
	"iter"
	"os"
	"sync"
	"time"

	"github.com/artemshloyda/photoledger/internal/fsx"
)

// Tracker хранит журнал в памяти и сохраняет его в файл.
// Все изменения проходят через мьютекс: единственный писатель даже при
// параллельной конвертации.
type Tracker struct {
	path string

	mu       sync.Mutex
	records  map[string]Record
	history  []HistoryEvent
	dirty    bool
	unsaved  int
	readOnly bool

	// now подменяется в тестах.
	now func() time.Time
}

// Open создаёт Tracker, привязанный к файлу path. Файл не читается до Load.
func Open(path string) *Tracker {
	return &Tracker{
		path:    path,
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Path возвращает путь к файлу журнала.
func (t *Tracker) Path() string {
	return t.path
}

// SetReadOnly включает режим симуляции: Save ничего не пишет.
func (t *Tracker) SetReadOnly(ro bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readOnly = ro
}

// Load перечитывает журнал из файла. Отсутствующий файл - пустой журнал
// (первый запуск). Неразбираемый файл - CorruptError.
func (t *Tracker) Load() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.mu.Lock()
			t.records = make(map[string]Record)
			t.history = nil
			t.dirty = false
			t.unsaved = 0
			t.mu.Unlock()
			return nil
		}
		return fmt.Errorf("не удалось прочитать журнал %s: %w", t.path, err)
	}

	records, history, err := decode(t.path, data)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.records = records
	t.history = history
	t.dirty = false
	t.unsaved = 0
	t.mu.Unlock()
	return nil
}

// Upsert вставляет или заменяет запись по ключу Source.
// Понижение статуса и выход из failed отклоняются с InvalidTransitionError.
// Переход в archived добавляет событие в историю архива.
func (t *Tracker) Upsert(rec Record) error {
	if rec.Source == "" {
		return fmt.Errorf("запись без пути исходника")
	}
	if _, err := ParseStatus(string(rec.Status)); err != nil {
		return &InvalidTransitionError{Source: rec.Source, From: StatusNone, To: rec.Status}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	from := StatusNone
	if prev, ok := t.records[rec.Source]; ok {
		from = prev.Status
	}
	if err := CheckTransition(rec.Source, from, rec.Status); err != nil {
		return err
	}

	rec.UpdatedAt = t.now()
	t.records[rec.Source] = rec
	if rec.Status == StatusArchived && from != StatusArchived {
		t.history = append(t.history, HistoryEvent{
			Action:      HistoryArchived,
			Source:      rec.Source,
			ArchivePath: rec.ArchivePath,
			Destination: rec.Destination,
			At:          rec.UpdatedAt,
		})
	}
	t.dirty = true
	t.unsaved++
	return nil
}

// Forget удаляет запись. Используется только при восстановлении оригинала
// из архива по явной команде оператора; для archived в историю
// добавляется событие restored.
func (t *Tracker) Forget(source string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[source]
	if ok {
		if rec.Status == StatusArchived {
			t.history = append(t.history, HistoryEvent{
				Action:      HistoryRestored,
				Source:      rec.Source,
				ArchivePath: rec.ArchivePath,
				Destination: rec.Destination,
				At:          t.now(),
			})
		}
		delete(t.records, source)
		t.dirty = true
		t.unsaved++
	}
	return rec, ok
}

// Get возвращает запись по пути исходника.
func (t *Tracker) Get(source string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[source]
	return rec, ok
}

// History возвращает копию истории архива в порядке событий.
func (t *Tracker) History() []HistoryEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]HistoryEvent(nil), t.history...)
}

// Len возвращает количество записей.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Snapshot возвращает неизменяемую копию журнала.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return newSnapshot(t.records)
}

// Stats возвращает количество записей по статусам.
func (t *Tracker) Stats() Stats {
	return t.Snapshot().Stats()
}

// Query возвращает ленивую последовательность записей, удовлетворяющих pred.
// Каждый обход берёт свежий снимок, поэтому последовательность можно
// перебирать повторно. pred == nil - все записи.
func (t *Tracker) Query(pred func(Record) bool) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range t.Snapshot().Records() {
			if pred != nil && !pred(r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// WithStatus - предикат для Query по статусу.
func WithStatus(statuses ...Status) func(Record) bool {
	return func(r Record) bool {
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}
}

// Save атомарно записывает журнал: предыдущая версия файла остаётся целой,
// пока новая не записана полностью.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

// Checkpoint сохраняет журнал, если с последнего сохранения накопилось
// не меньше every изменений. every <= 0 отключает промежуточные сохранения.
func (t *Tracker) Checkpoint(every int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if every <= 0 || t.unsaved < every {
		return nil
	}
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	if t.readOnly || !t.dirty {
		return nil
	}

	data, err := encode(t.records, t.history, t.now())
	if err != nil {
		return err
	}
	if err := fsx.WriteFileAtomic(t.path, data); err != nil {
		return fmt.Errorf("не удалось сохранить журнал %s: %w", t.path, err)
	}

	t.dirty = false
	t.unsaved = 0
	return nil
}
