package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/photoledger/internal/media"
	"github.com/artemshloyda/photoledger/internal/metadata"
	"github.com/artemshloyda/photoledger/internal/organize"
	"github.com/artemshloyda/photoledger/internal/report"
)

// newOrganizeCmd создаёт команду organize.
func newOrganizeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Разложить HEIC и JPEG по папкам YYYY/MM",
		Long: `Перемещает HEIC и JPEG внутри --src в папки YYYY/MM по дате съёмки.

Файлы, уже лежащие в YYYY/MM, файлы без даты и файлы, для которых целевой
путь занят, остаются на месте. Если указан --out (или --state), HEIC
с записью в журнале конвертации тоже не перемещаются.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			withLedger := cfg.OutputDir != ""
			var err error
			if withLedger {
				err = cfg.Validate()
			} else {
				err = cfg.ValidateSource()
			}
			if err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}

			a := newApp(cmd, cfg)
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			if withLedger {
				if err := a.openLedger(); err != nil {
					return err
				}
			}

			files, err := a.scanner.Collect(ctx, cfg.SourceDir)
			if err != nil {
				return fmt.Errorf("сканирование исходников: %w", err)
			}

			analysis := organize.Analyze(cfg.SourceDir, files)
			a.printAnalysis(analysis)
			if len(analysis.Unorganized) == 0 {
				a.out.Info("✅ Все файлы уже разложены по датам")
				return nil
			}

			if !a.confirm(fmt.Sprintf("Разложить %d файлов по папкам YYYY/MM?", len(analysis.Unorganized))) {
				a.out.Info("Отменено")
				return nil
			}

			engine := &organize.Engine{
				Root:    cfg.SourceDir,
				Dates:   metadata.NewValidator(),
				Tracker: a.tracker,
				DryRun:  cfg.DryRun,
				Sink:    a.out,
			}
			res, err := engine.Run(ctx, feed(ctx, files))
			if res != nil {
				a.out.Info("")
				a.out.Info("📊 Результаты:")
				if cfg.DryRun {
					a.out.Info("   Будет перемещено: %d", res.Count(organize.WouldMove))
				} else {
					a.out.Info("   Перемещено: %d", res.Count(organize.Moved))
				}
				a.out.Info("   Уже разложены: %d", res.Count(organize.AlreadyOrganized))
				a.out.Info("   Нет даты: %d", res.Count(organize.NoDate))
				a.out.Info("   Цель занята: %d", res.Count(organize.TargetExists))
				a.out.Info("   В журнале конвертации: %d", res.Count(organize.Tracked))
				a.out.Info("   Ошибок: %d", res.Count(organize.Error))
				if withLedger {
					a.writeReport("organize", res)
				}
			}
			if err != nil {
				return err
			}
			if res.HasFailures() {
				return fmt.Errorf("организация завершена с ошибками: %d", res.Count(organize.Error))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.cfg.AssumeYes, "yes", "y", false, "Не спрашивать подтверждение")
	return cmd
}

// newScanCmd создаёт команду scan.
func newScanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Показать состав дерева исходников",
		Long: `Считает файлы в --src по расширениям, перечисляет посторонние файлы
и показывает, какая часть медиафайлов уже разложена по YYYY/MM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := cfg.ValidateSource(); err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}

			a := newApp(cmd, cfg)
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			inv, err := a.scanner.Inventory(ctx, cfg.SourceDir)
			if err != nil {
				return fmt.Errorf("сканирование исходников: %w", err)
			}

			a.out.Info("📁 %s", inv.Root)
			a.out.Info("   Файлов: %d (%s)", inv.TotalFiles, report.FormatBytes(inv.TotalBytes))
			a.out.Info("   HEIC: %d", inv.Count(media.FormatHEIC))
			a.out.Info("   JPEG: %d", inv.Count(media.FormatJPEG))
			for _, st := range inv.Extensions {
				a.out.Detail("     %s: %d (%s)", st.Ext, st.Count, report.FormatBytes(st.Bytes))
			}
			if len(inv.NonMedia) > 0 {
				a.out.Info("   Прочих файлов: %d", len(inv.NonMedia))
				for _, p := range inv.NonMedia {
					a.out.Detail("     %s", p)
				}
			}

			files, err := a.scanner.Collect(ctx, cfg.SourceDir)
			if err != nil {
				return fmt.Errorf("сканирование исходников: %w", err)
			}
			a.printAnalysis(organize.Analyze(cfg.SourceDir, files))
			return nil
		},
	}
}

func (a *app) printAnalysis(an *organize.Analysis) {
	a.out.Info("")
	a.out.Info("🗂️  Разложено по YYYY/MM: %d из %d (%.1f%%)", an.Organized, an.Total, an.Percent())
	if years := an.Years(); len(years) > 0 {
		a.out.Info("   Годы: %s", strings.Join(years, ", "))
	}
	for _, rel := range an.Unorganized {
		a.out.Detail("   • %s", rel)
	}
}
