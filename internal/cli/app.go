package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/photoledger/internal/config"
	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/progress"
	"github.com/artemshloyda/photoledger/internal/report"
	"github.com/artemshloyda/photoledger/internal/scanner"
)

// app собирает зависимости одного запуска команды.
type app struct {
	cfg *config.Config
	out *progress.Printer

	// runID связывает отчёт сверки с архивацией того же запуска.
	runID   string
	reports *report.Writer

	scanner *scanner.Scanner
	tracker *ledger.Tracker

	in     io.Reader
	stdout io.Writer
	stderr io.Writer
}

// newApp создаёт app для уже проверенной конфигурации.
func newApp(cmd *cobra.Command, cfg *config.Config) *app {
	a := &app{
		cfg:    cfg,
		out:    progress.NewPrinterTo(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Verbose),
		runID:  report.NewRunID(),
		in:     cmd.InOrStdin(),
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	a.reports = report.NewWriter(cfg.ReportsDir, a.runID, cfg.DryRun)
	a.scanner = scanner.New(scanner.Options{
		Exclude: cfg.IsExcludedDir,
		OnWarning: func(path string, err error) {
			a.out.Warn("не удалось прочитать %s: %v", path, err)
		},
	})
	return a
}

// signalContext отменяет ctx по SIGINT/SIGTERM.
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			a.out.Warn("Получен сигнал завершения, останавливаем...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// openLedger загружает журнал. Повреждённый журнал не перезаписывается:
// запуск прерывается.
func (a *app) openLedger() error {
	a.tracker = ledger.Open(a.cfg.LedgerPath)
	if err := a.tracker.Load(); err != nil {
		if ledger.IsCorrupt(err) {
			return fmt.Errorf("%w\nжурнал оставлен как есть: исправьте или переместите %s", err, a.cfg.LedgerPath)
		}
		return err
	}
	a.tracker.SetReadOnly(a.cfg.DryRun)
	a.out.Detail("📒 Журнал: %s (записей: %d)", a.cfg.LedgerPath, a.tracker.Len())
	return nil
}

// newBar создаёт прогресс-бар и направляет через него вывод сообщений.
// В verbose построчный вывод заменяет бар.
func (a *app) newBar(total int64, description string) *progress.Bar {
	bar := progress.New(progress.Options{
		Total:       total,
		Description: description,
		Disabled:    a.cfg.NoProgress || a.cfg.Verbose,
		Writer:      a.stderr,
	})
	a.out.Attach(bar)
	return bar
}

func (a *app) finishBar(bar *progress.Bar) {
	bar.Finish()
	a.out.Attach(nil)
}

// writeReport сохраняет отчёт этапа. Ошибка записи отчёта не прерывает запуск.
func (a *app) writeReport(stage string, d report.Describer) {
	if a.cfg.ReportsDir == "" {
		return
	}
	path, err := a.reports.Write(stage, d)
	if err != nil {
		a.out.Warn("%v", err)
		return
	}
	a.out.Info("📄 Отчёт: %s", path)
}

// confirm спрашивает подтверждение. В dry-run и с --yes не спрашивает.
func (a *app) confirm(question string) bool {
	if a.cfg.AssumeYes || a.cfg.DryRun {
		return true
	}
	fmt.Fprintf(a.stdout, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(a.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "д", "да":
		return true
	}
	return false
}

// printHeader выводит параметры запуска.
func (a *app) printHeader(stage string) {
	a.out.Info("🚀 %s:", stage)
	a.out.Info("   Исходники: %s", a.cfg.SourceDir)
	if a.cfg.OutputDir != "" {
		a.out.Info("   JPEG: %s", a.cfg.OutputDir)
	}
	if a.cfg.ArchiveDir != "" {
		a.out.Info("   Архив: %s", a.cfg.ArchiveDir)
	}
	a.out.Detail("   Запуск: %s", a.runID)
	if a.cfg.DryRun {
		a.out.Info("   ⚠️  Dry-run режим (без изменений)")
	}
	a.out.Info("")
}

// feed отдаёт список файлов каналом до его исчерпания или отмены ctx.
func feed(ctx context.Context, files []media.File) <-chan media.File {
	ch := make(chan media.File)
	go func() {
		defer close(ch)
		for _, f := range files {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// loudSink выводит построчные сообщения как основные (режим наблюдения).
type loudSink struct {
	progress.Sink
}

func (s loudSink) Detail(format string, args ...any) {
	s.Info(format, args...)
}
