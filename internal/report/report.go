// Package report пишет текстовые отчёты этапов: по одному файлу на запуск
// этапа, с меткой времени в имени. Отчёты предназначены только для человека.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artemshloyda/photoledger/internal/fsx"
)

// timestampLayout - метка времени в имени файла отчёта.
const timestampLayout = "20060102_150405"

// NewRunID возвращает идентификатор запуска.
func NewRunID() string {
	return uuid.NewString()
}

// Describer заполняет отчёт своими данными (реализуется результатами этапов).
type Describer interface {
	Describe(doc *Document)
}

// Writer сохраняет отчёты в директорию.
type Writer struct {
	dir    string
	runID  string
	dryRun bool

	// now подменяется в тестах.
	now func() time.Time
}

// NewWriter создаёт Writer для директории dir.
func NewWriter(dir, runID string, dryRun bool) *Writer {
	return &Writer{dir: dir, runID: runID, dryRun: dryRun, now: time.Now}
}

// RunID возвращает идентификатор запуска.
func (w *Writer) RunID() string {
	return w.runID
}

// Write создаёт отчёт этапа stage и возвращает путь к файлу.
// Имя: <stage>_YYYYMMDD_HHMMSS.txt; при совпадении добавляется счётчик.
func (w *Writer) Write(stage string, d Describer) (string, error) {
	now := w.now()

	doc := &Document{}
	doc.Title(fmt.Sprintf("photoledger: %s", stage))
	doc.Field("Запуск", w.runID)
	doc.Field("Время", now.Format("2006-01-02 15:04:05"))
	if w.dryRun {
		doc.Field("Режим", "dry-run (изменения не применялись)")
	}
	d.Describe(doc)

	path, err := w.freePath(stage, now)
	if err != nil {
		return "", err
	}
	if err := fsx.WriteFileAtomic(path, []byte(doc.String())); err != nil {
		return "", fmt.Errorf("не удалось записать отчёт %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) freePath(stage string, now time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("не удалось создать директорию отчётов %s: %w", w.dir, err)
	}
	base := fmt.Sprintf("%s_%s", stage, now.Format(timestampLayout))
	path := filepath.Join(w.dir, base+".txt")
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		path = filepath.Join(w.dir, fmt.Sprintf("%s_%d.txt", base, i))
	}
}

// Document - текст отчёта.
type Document struct {
	b strings.Builder
}

// Title пишет заголовок с подчёркиванием.
func (d *Document) Title(s string) {
	d.b.WriteString(s + "\n")
	d.b.WriteString(strings.Repeat("=", len([]rune(s))) + "\n")
}

// Section начинает раздел.
func (d *Document) Section(s string) {
	d.b.WriteString("\n" + s + "\n")
	d.b.WriteString(strings.Repeat("-", len([]rune(s))) + "\n")
}

// Field пишет строку "ключ: значение".
func (d *Document) Field(key string, value any) {
	fmt.Fprintf(&d.b, "%s: %v\n", key, value)
}

// Item пишет элемент списка.
func (d *Document) Item(format string, args ...any) {
	d.b.WriteString("  - " + fmt.Sprintf(format, args...) + "\n")
}

// Line пишет произвольную строку.
func (d *Document) Line(format string, args ...any) {
	d.b.WriteString(fmt.Sprintf(format, args...) + "\n")
}

// String возвращает текст отчёта.
func (d *Document) String() string {
	return d.b.String()
}

// FormatBytes форматирует байты в человекочитаемый формат.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < 0 {
		return "-" + FormatBytes(-bytes)
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
