package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Sink принимает сообщения этапов. Движки пишут только через него,
// поэтому вывод не рвёт прогресс-бар и легко подменяется в тестах.
type Sink interface {
	// Info - итоговые и важные сообщения.
	Info(format string, args ...any)
	// Detail - построчный вывод по файлам (только в verbose).
	Detail(format string, args ...any)
	// Warn - предупреждения.
	Warn(format string, args ...any)
	// Error - ошибки по отдельным файлам.
	Error(format string, args ...any)
}

// Printer - Sink для терминала.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
	bar     *Bar
}

// NewPrinter создаёт Printer, пишущий в stdout/stderr.
func NewPrinter(verbose bool) *Printer {
	return &Printer{out: os.Stdout, errOut: os.Stderr, verbose: verbose}
}

// NewPrinterTo создаёт Printer с указанными потоками вывода.
func NewPrinterTo(out, errOut io.Writer, verbose bool) *Printer {
	return &Printer{out: out, errOut: errOut, verbose: verbose}
}

// Attach направляет вывод через прогресс-бар (nil - отвязать).
func (p *Printer) Attach(bar *Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = bar
}

func (p *Printer) Info(format string, args ...any) {
	p.write(p.out, "", format, args...)
}

func (p *Printer) Detail(format string, args ...any) {
	if p.verbose {
		p.write(p.out, "", format, args...)
	}
}

func (p *Printer) Warn(format string, args ...any) {
	p.write(p.errOut, "⚠️  ", format, args...)
}

func (p *Printer) Error(format string, args ...any) {
	p.write(p.errOut, "❌ ", format, args...)
}

func (p *Printer) write(w io.Writer, prefix, format string, args ...any) {
	msg := prefix + fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	p.mu.Lock()
	bar := p.bar
	p.mu.Unlock()

	if bar != nil && !bar.IsDisabled() {
		bar.WriteMessage(w, "%s", msg)
		return
	}
	fmt.Fprint(w, msg)
}

// Discard - Sink, который ничего не выводит.
type Discard struct{}

func (Discard) Info(string, ...any)   {}
func (Discard) Detail(string, ...any) {}
func (Discard) Warn(string, ...any)   {}
func (Discard) Error(string, ...any)  {}

/*
Возможные расширения:
- Дублирование сообщений в файл лога
- Цветной вывод предупреждений
*/
