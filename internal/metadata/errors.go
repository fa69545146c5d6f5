// Package metadata читает дату съёмки из EXIF и переносит метаданные
// на сконвертированный файл.
package metadata

import (
	"errors"
	"fmt"
)

// CorruptMediaError - файл не удалось прочитать (ошибка открытия, чтения
// или пустой файл). Отсутствие или повреждение EXIF этой ошибкой не является.
type CorruptMediaError struct {
	Path string
	Err  error
}

func (e *CorruptMediaError) Error() string {
	return fmt.Sprintf("файл не читается %s: %v", e.Path, e.Err)
}

func (e *CorruptMediaError) Unwrap() error { return e.Err }

// IsCorruptMedia проверяет, является ли err ошибкой нечитаемого файла.
func IsCorruptMedia(err error) bool {
	var e *CorruptMediaError
	return errors.As(err, &e)
}

// MetaError - не удалось перенести метаданные на результат.
// Это предупреждение: успешная конвертация не откатывается.
type MetaError struct {
	Src    string
	Dst    string
	Output string
	Err    error
}

func (e *MetaError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("не удалось скопировать метаданные %s -> %s: %v: %s", e.Src, e.Dst, e.Err, e.Output)
	}
	return fmt.Sprintf("не удалось скопировать метаданные %s -> %s: %v", e.Src, e.Dst, e.Err)
}

func (e *MetaError) Unwrap() error { return e.Err }

// IsMeta проверяет, является ли err ошибкой копирования метаданных.
func IsMeta(err error) bool {
	var e *MetaError
	return errors.As(err, &e)
}
