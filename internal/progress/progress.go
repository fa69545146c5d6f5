// Package progress предоставляет прогресс-бар с ETA и вывод сообщений этапов.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar представляет прогресс-бар с поддержкой ETA.
type Bar struct {
	// bar - внутренний progressbar (nil, если отключён).
	bar *progressbar.ProgressBar

	mu sync.Mutex

	// disabled - флаг отключения прогресс-бара.
	disabled bool

	// счётчики исходов
	done    int64
	skipped int64
	failed  int64

	startTime time.Time

	// writer - куда выводить (по умолчанию os.Stderr).
	writer io.Writer
}

// Options содержит настройки для прогресс-бара.
type Options struct {
	// Total - общее количество элементов (-1 = неизвестно, спиннер).
	Total int64

	// Description - описание этапа.
	Description string

	// Unit - единица в счётчике скорости (по умолчанию "файл").
	Unit string

	// Disabled - отключить прогресс-бар (только текстовый вывод).
	Disabled bool

	// Writer - куда выводить (по умолчанию os.Stderr).
	Writer io.Writer
}

// New создаёт новый прогресс-бар.
func New(opts Options) *Bar {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	b := &Bar{
		disabled:  opts.Disabled,
		startTime: time.Now(),
		writer:    writer,
	}
	if opts.Disabled || opts.Total == 0 {
		return b
	}

	description := opts.Description
	if description == "" {
		description = "Обработка"
	}
	unit := opts.Unit
	if unit == "" {
		unit = "файл"
	}

	b.bar = progressbar.NewOptions64(
		opts.Total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]▓[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(writer)
		}),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	return b
}

func (b *Bar) add(counter *int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	*counter++
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

// Increment отмечает успешно обработанный элемент.
func (b *Bar) Increment() { b.add(&b.done) }

// IncrementSkipped отмечает пропущенный элемент.
func (b *Bar) IncrementSkipped() { b.add(&b.skipped) }

// IncrementFailed отмечает элемент с ошибкой.
func (b *Bar) IncrementFailed() { b.add(&b.failed) }

// SetTotal устанавливает общее количество элементов.
func (b *Bar) SetTotal(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.ChangeMax64(total)
	}
}

// Finish завершает прогресс-бар.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Stats возвращает счётчики: обработано, пропущено, с ошибкой.
func (b *Bar) Stats() (done, skipped, failed int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done, b.skipped, b.failed
}

// Duration возвращает время с начала этапа.
func (b *Bar) Duration() time.Duration {
	return time.Since(b.startTime)
}

// IsDisabled возвращает true, если прогресс-бар отключён.
func (b *Bar) IsDisabled() bool {
	return b.disabled || b.bar == nil
}

// WriteMessage выводит сообщение в w, временно скрывая прогресс-бар.
func (b *Bar) WriteMessage(w io.Writer, format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Clear()
	}

	fmt.Fprintf(w, format, args...)

	if b.bar != nil {
		_ = b.bar.RenderBlank()
	}
}
