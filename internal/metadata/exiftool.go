package metadata

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// Copier переносит метаданные с исходника на результат конвертации.
type Copier interface {
	CopyMetadata(ctx context.Context, src, dst string) error
}

// ExifTool копирует метаданные внешней утилитой exiftool.
type ExifTool struct {
	// path - путь к бинарнику exiftool.
	path string

	// timeout - таймаут одного вызова.
	timeout time.Duration
}

// NewExifTool создаёт ExifTool для бинарника по пути path.
func NewExifTool(path string) *ExifTool {
	return &ExifTool{
		path:    path,
		timeout: time.Minute,
	}
}

// CopyMetadata переносит все теги src на dst, перезаписывая dst на месте.
// Любая ошибка возвращается как MetaError.
func (e *ExifTool) CopyMetadata(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.path,
		"-overwrite_original",
		"-TagsFromFile", src,
		"-all:all",
		dst,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return &MetaError{Src: src, Dst: dst, Output: strings.TrimSpace(out.String()), Err: err}
	}
	return nil
}

// NopCopier не копирует ничего. Используется, когда exiftool не найден
// или копирование отключено: vips сам переносит EXIF при copy.
type NopCopier struct{}

// CopyMetadata ничего не делает.
func (NopCopier) CopyMetadata(context.Context, string, string) error { return nil }
