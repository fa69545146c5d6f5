// Package converter содержит кодек: конвертацию HEIC в JPEG через vips.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Transcoder конвертирует исходник в JPEG по пути dst.
// Реализуется Converter и подменяется в тестах движка.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// CodecError - ошибка кодека. Stderr сохраняется дословно для отчёта.
type CodecError struct {
	// Src - исходный файл.
	Src string

	// Stderr - вывод vips.
	Stderr string

	// Err - исходная ошибка.
	Err error
}

func (e *CodecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("vips copy %s: %v: %s", e.Src, e.Err, e.Stderr)
	}
	return fmt.Sprintf("vips copy %s: %v", e.Src, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// IsCodec проверяет, является ли err ошибкой кодека.
func IsCodec(err error) bool {
	var e *CodecError
	return errors.As(err, &e)
}

// Converter выполняет конвертацию изображений через внешний vips.
type Converter struct {
	// vipsPath - путь к бинарнику vips.
	vipsPath string

	// saveOptions - параметры сохранения vips, например "[Q=95]".
	saveOptions string

	// timeout - таймаут на конвертацию одного файла.
	timeout time.Duration
}

// New создаёт новый Converter. saveOptions дописывается к пути результата
// (см. config.Config.VipsOutputSuffix).
func New(vipsPath, saveOptions string) *Converter {
	return &Converter{
		vipsPath:    vipsPath,
		saveOptions: saveOptions,
		timeout:     5 * time.Minute,
	}
}

// SetTimeout устанавливает таймаут на конвертацию.
func (c *Converter) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Transcode конвертирует src в JPEG dst.
// Результат пишется во временный файл и переименовывается, поэтому
// по пути dst никогда не бывает недописанного JPEG.
func (c *Converter) Transcode(ctx context.Context, src, dst string) error {
	dstDir := filepath.Dir(dst)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return &CodecError{Src: src, Err: fmt.Errorf("не удалось создать директорию %s: %w", dstDir, err)}
	}

	// vips определяет формат по расширению, поэтому оно сохраняется
	ext := filepath.Ext(dst)
	tmpPath := strings.TrimSuffix(dst, ext) + ".converting" + ext

	// Например: photo.converting.jpg[Q=95]
	outWithParams := tmpPath + c.saveOptions

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.vipsPath, "copy", src, outWithParams)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmpPath)
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", err, ctx.Err())
		}
		return &CodecError{Src: src, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return &CodecError{Src: src, Stderr: strings.TrimSpace(stderr.String()), Err: fmt.Errorf("vips не создал файл: %w", err)}
	}
	if info.Size() == 0 {
		_ = os.Remove(tmpPath)
		return &CodecError{Src: src, Err: errors.New("vips создал пустой файл")}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return &CodecError{Src: src, Err: fmt.Errorf("не удалось переименовать %s -> %s: %w", tmpPath, dst, err)}
	}

	return nil
}

// CheckHealth проверяет работоспособность vips.
func (c *Converter) CheckHealth() error {
	cmd := exec.Command(c.vipsPath, "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("vips не работает: %w", err)
	}
	return nil
}

/*
Возможные расширения:
- Поддержка progressive/interlace для JPEG
- Сохранение ICC профилей
- Retry при временных ошибках
*/
