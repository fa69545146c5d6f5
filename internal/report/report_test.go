package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type describeFunc func(*Document)

func (f describeFunc) Describe(d *Document) { f(d) }

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(dir, "run-1", true)
	w.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	body := describeFunc(func(d *Document) {
		d.Section("Итого")
		d.Field("Сконвертировано", 2)
		d.Item("%s", "img001.HEIC")
	})

	path, err := w.Write("convert", body)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Base(path) != "convert_20240309_140507.txt" {
		t.Errorf("path = %q", path)
	}

	data, _ := os.ReadFile(path)
	text := string(data)
	for _, want := range []string{"photoledger: convert", "Запуск: run-1", "dry-run", "Сконвертировано: 2", "  - img001.HEIC"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}

	// тот же момент времени - новый файл, старый не перезаписан
	path2, err := w.Write("convert", body)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path2) != "convert_20240309_140507_2.txt" {
		t.Errorf("second path = %q", path2)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == "" || a == b {
		t.Errorf("NewRunID() = %q, %q", a, b)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 << 20, "5.0 MB"},
		{-2048, "-2.0 KB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
