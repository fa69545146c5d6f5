// Package media описывает снимки медиафайлов, полученные при сканировании.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

// Format определяет формат медиафайла.
type Format string

const (
	// FormatHEIC - исходный формат, требующий конвертации (heic/heif).
	FormatHEIC Format = "heic"
	// FormatJPEG - результат конвертации (jpg/jpeg).
	FormatJPEG Format = "jpeg"
	// FormatOther - всё остальное.
	FormatOther Format = "other"
)

// DetectFormat определяет формат по расширению файла (без учёта регистра).
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return FormatHEIC
	case ".jpg", ".jpeg":
		return FormatJPEG
	default:
		return FormatOther
	}
}

// File - неизменяемый снимок файла на момент сканирования.
type File struct {
	// Path - абсолютный путь к файлу.
	Path string

	// RelPath - путь относительно корня сканирования.
	RelPath string

	// Format - формат файла.
	Format Format

	// Size - размер файла в байтах.
	Size int64

	// ModTime - время модификации.
	ModTime time.Time

	// CreationDate - дата съёмки из EXIF (nil, если не прочитана или отсутствует).
	CreationDate *time.Time
}

// WithCreationDate возвращает копию снимка с установленной датой съёмки.
func (f File) WithCreationDate(t time.Time) File {
	f.CreationDate = &t
	return f
}

// HasCreationDate возвращает true, если дата съёмки известна.
func (f File) HasCreationDate() bool {
	return f.CreationDate != nil
}

// IsHEIC возвращает true для исходных HEIC-файлов.
func (f File) IsHEIC() bool {
	return f.Format == FormatHEIC
}
