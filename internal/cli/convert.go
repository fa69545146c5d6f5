package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/photoledger/internal/convert"
	"github.com/artemshloyda/photoledger/internal/converter"
	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/metadata"
	"github.com/artemshloyda/photoledger/internal/report"
	"github.com/artemshloyda/photoledger/internal/toolfinder"
	"github.com/artemshloyda/photoledger/internal/watcher"
)

// newConvertCmd создаёт команду convert.
func newConvertCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Сконвертировать HEIC в JPEG",
		Long: `Конвертирует HEIC из --src в JPEG в --out с той же структурой директорий.

Файлы без даты съёмки пропускаются. Уже сконвертированные файлы и файлы
с ошибкой в прошлых запусках не обрабатываются повторно. С --watch после
прохода по дереву команда продолжает следить за новыми HEIC до Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.cfg.Watch, "watch", false, "После конвертации следить за новыми файлами")
	return cmd
}

func runConvert(cmd *cobra.Command, opts *options) error {
	cfg := opts.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	a := newApp(cmd, cfg)
	ctx, cancel := a.signalContext(cmd.Context())
	defer cancel()

	if err := a.openLedger(); err != nil {
		return err
	}

	a.printHeader("Конвертация")
	res, err := a.convertStage(ctx)
	if err != nil {
		return err
	}

	if cfg.Watch {
		if err := a.watchStage(ctx); err != nil {
			return err
		}
	}

	if res.HasFailures() {
		return fmt.Errorf("конвертация завершена с ошибками: %d", res.Count(convert.Failed)+res.Count(convert.Corrupt))
	}
	return nil
}

// newEngine собирает движок конвертации с найденными утилитами.
func (a *app) newEngine() (*convert.Engine, error) {
	codec, err := a.codec()
	if err != nil {
		return nil, err
	}
	return &convert.Engine{
		Tracker:         a.tracker,
		Dates:           metadata.NewValidator(),
		Codec:           codec,
		Copier:          a.copier(),
		Layout:          a.cfg.Layout(),
		Workers:         a.cfg.Workers,
		MaxMemoryMB:     a.cfg.MaxMemoryMB,
		CheckpointEvery: a.cfg.CheckpointEvery,
		DryRun:          a.cfg.DryRun,
		Sink:            a.out,
	}, nil
}

// codec ищет vips. В dry-run кодек не вызывается, поэтому его отсутствие
// только предупреждение.
func (a *app) codec() (converter.Transcoder, error) {
	info, err := toolfinder.NewFinder(toolfinder.Vips, a.cfg.VipsPath).Find()
	if err != nil {
		if a.cfg.DryRun {
			a.out.Warn("%v", err)
			return converter.New("", a.cfg.VipsOutputSuffix()), nil
		}
		return nil, err
	}
	a.out.Info("📦 Найден vips: %s (версия %s)", info.Path, info.Version)

	conv := converter.New(info.Path, a.cfg.VipsOutputSuffix())
	conv.SetTimeout(a.cfg.ConvertTimeout)
	if !a.cfg.DryRun {
		if err := conv.CheckHealth(); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// copier ищет exiftool. Без него JPEG создаются без перенесённых метаданных.
func (a *app) copier() metadata.Copier {
	if !a.cfg.CopyMetadata {
		return metadata.NopCopier{}
	}
	info, err := toolfinder.NewFinder(toolfinder.Exiftool, a.cfg.ExiftoolPath).Find()
	if err != nil {
		a.out.Warn("метаданные переноситься не будут: %v", err)
		return metadata.NopCopier{}
	}
	a.out.Detail("📦 Найден exiftool: %s (версия %s)", info.Path, info.Version)
	return metadata.NewExifTool(info.Path)
}

// convertStage проходит по дереву исходников один раз.
func (a *app) convertStage(ctx context.Context) (*convert.Result, error) {
	engine, err := a.newEngine()
	if err != nil {
		return nil, err
	}

	heic := a.scanner.WithFormats(media.FormatHEIC)
	total, err := heic.CountFiles(ctx, a.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("сканирование исходников: %w", err)
	}
	a.out.Info("📁 Найдено HEIC: %d", total)

	// Сканер останавливается вместе с движком, даже если тот прервался
	// на фатальной ошибке журнала.
	scanCtx, stopScan := context.WithCancel(ctx)
	defer stopScan()
	files, scanErrs := heic.Scan(scanCtx, a.cfg.SourceDir)

	bar := a.newBar(total, "Конвертация")
	engine.Bar = bar
	res, runErr := engine.Run(ctx, files)
	a.finishBar(bar)

	stopScan()
	scanErr := <-scanErrs

	if res != nil {
		a.printConvertSummary(res)
		a.writeReport("convert", res)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		a.out.Warn("Конвертация прервана, прогресс сохранён в журнале")
		return res, runErr
	case runErr != nil:
		return res, runErr
	case scanErr != nil && !errors.Is(scanErr, context.Canceled):
		return res, fmt.Errorf("сканирование исходников: %w", scanErr)
	}
	return res, nil
}

// watchStage конвертирует новые HEIC по мере появления до отмены ctx.
func (a *app) watchStage(ctx context.Context) error {
	engine, err := a.newEngine()
	if err != nil {
		return err
	}
	// каждый файл сразу фиксируется в журнале
	engine.CheckpointEvery = 1
	engine.Sink = loudSink{a.out}

	w, err := watcher.New(a.cfg.SourceDir, a.cfg.IsExcludedDir)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	w.OnError(func(err error) {
		a.out.Warn("наблюдение: %v", err)
	})

	files, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	a.out.Info("👀 Слежу за %s (Ctrl+C для выхода)", a.cfg.SourceDir)

	res, err := engine.Run(ctx, files)
	if res != nil && len(res.Outcomes) > 0 {
		a.printConvertSummary(res)
		a.writeReport("watch", res)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) printConvertSummary(res *convert.Result) {
	in, out := res.Bytes()
	a.out.Info("")
	a.out.Info("📊 Результаты:")
	if a.cfg.DryRun {
		a.out.Info("   Будет сконвертировано: %d", res.Count(convert.WouldConvert))
	} else {
		a.out.Info("   Сконвертировано: %d", res.Count(convert.Converted))
	}
	a.out.Info("   Пропущено (уже готово): %d", res.Count(convert.SkippedConverted))
	a.out.Info("   Пропущено (нет даты): %d", res.Count(convert.SkippedNoDate))
	a.out.Info("   Пропущено (ошибка ранее): %d", res.Count(convert.SkippedFailed))
	a.out.Info("   Ошибок: %d", res.Count(convert.Failed)+res.Count(convert.Corrupt))
	if n := res.Warnings(); n > 0 {
		a.out.Info("   Без метаданных: %d", n)
	}
	if out > 0 {
		a.out.Info("   Объём: %s -> %s", report.FormatBytes(in), report.FormatBytes(out))
	}
	a.out.Info("   Время: %s", res.Duration.Round(time.Millisecond))
}
