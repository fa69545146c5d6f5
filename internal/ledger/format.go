package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// formatVersion - текущая версия формата файла журнала.
// Новые поля добавляются без смены версии: неизвестные поля игнорируются.
const formatVersion = 1

// document - представление журнала на диске.
type document struct {
	Version   int         `yaml:"version"`
	UpdatedAt time.Time   `yaml:"updated_at"`
	Records   []recordDoc `yaml:"records"`
	History   []eventDoc  `yaml:"archive_history,omitempty"`
}

type recordDoc struct {
	Source       string     `yaml:"source"`
	Destination  string     `yaml:"destination,omitempty"`
	Status       string     `yaml:"status"`
	CreationDate *time.Time `yaml:"creation_date,omitempty"`
	ConvertedAt  *time.Time `yaml:"converted_at,omitempty"`
	ArchivePath  string     `yaml:"archive_path,omitempty"`
	ArchivedAt   *time.Time `yaml:"archived_at,omitempty"`
	Error        string     `yaml:"error,omitempty"`
	Warning      string     `yaml:"warning,omitempty"`
	UpdatedAt    time.Time  `yaml:"updated_at"`
}

type eventDoc struct {
	Action      string    `yaml:"action"`
	Source      string    `yaml:"source"`
	ArchivePath string    `yaml:"archive_path,omitempty"`
	Destination string    `yaml:"destination,omitempty"`
	At          time.Time `yaml:"at"`
}

// decode разбирает содержимое файла журнала.
func decode(path string, data []byte) (map[string]Record, []HistoryEvent, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, &CorruptError{Path: path, Reason: "ошибка разбора YAML", Err: err}
	}
	if doc.Version != formatVersion {
		return nil, nil, &CorruptError{Path: path, Reason: fmt.Sprintf("неподдерживаемая версия формата %d", doc.Version)}
	}

	records := make(map[string]Record, len(doc.Records))
	for i, rd := range doc.Records {
		if rd.Source == "" {
			return nil, nil, &CorruptError{Path: path, Reason: fmt.Sprintf("запись %d без пути исходника", i+1)}
		}
		if _, dup := records[rd.Source]; dup {
			return nil, nil, &CorruptError{Path: path, Reason: fmt.Sprintf("повторяющийся ключ %s", rd.Source)}
		}
		st, err := ParseStatus(rd.Status)
		if err != nil {
			return nil, nil, &CorruptError{Path: path, Reason: fmt.Sprintf("запись %s", rd.Source), Err: err}
		}
		records[rd.Source] = Record{
			Source:       rd.Source,
			Destination:  rd.Destination,
			Status:       st,
			CreationDate: rd.CreationDate,
			ConvertedAt:  rd.ConvertedAt,
			ArchivePath:  rd.ArchivePath,
			ArchivedAt:   rd.ArchivedAt,
			Error:        rd.Error,
			Warning:      rd.Warning,
			UpdatedAt:    rd.UpdatedAt,
		}
	}

	history := make([]HistoryEvent, 0, len(doc.History))
	for i, ed := range doc.History {
		action := HistoryAction(ed.Action)
		if action != HistoryArchived && action != HistoryRestored {
			return nil, nil, &CorruptError{Path: path, Reason: fmt.Sprintf("событие истории %d: неизвестное действие %q", i+1, ed.Action)}
		}
		history = append(history, HistoryEvent{
			Action:      action,
			Source:      ed.Source,
			ArchivePath: ed.ArchivePath,
			Destination: ed.Destination,
			At:          ed.At,
		})
	}
	return records, history, nil
}

// encode сериализует записи в YAML, отсортировав их по пути исходника,
// чтобы файл оставался удобным для diff. История пишется в порядке событий.
func encode(records map[string]Record, history []HistoryEvent, now time.Time) ([]byte, error) {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := document{
		Version:   formatVersion,
		UpdatedAt: now.UTC(),
		Records:   make([]recordDoc, 0, len(keys)),
	}
	for _, k := range keys {
		r := records[k]
		doc.Records = append(doc.Records, recordDoc{
			Source:       r.Source,
			Destination:  r.Destination,
			Status:       string(r.Status),
			CreationDate: r.CreationDate,
			ConvertedAt:  r.ConvertedAt,
			ArchivePath:  r.ArchivePath,
			ArchivedAt:   r.ArchivedAt,
			Error:        r.Error,
			Warning:      r.Warning,
			UpdatedAt:    r.UpdatedAt.UTC(),
		})
	}

	for _, ev := range history {
		doc.History = append(doc.History, eventDoc{
			Action:      string(ev.Action),
			Source:      ev.Source,
			ArchivePath: ev.ArchivePath,
			Destination: ev.Destination,
			At:          ev.At.UTC(),
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("не удалось сериализовать журнал: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("не удалось сериализовать журнал: %w", err)
	}
	return buf.Bytes(), nil
}
