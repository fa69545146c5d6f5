package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/photoledger/internal/archive"
	"github.com/artemshloyda/photoledger/internal/convert"
	"github.com/artemshloyda/photoledger/internal/ledger"
	"github.com/artemshloyda/photoledger/internal/reconcile"
	"github.com/artemshloyda/photoledger/internal/report"
)

// newReconcileCmd создаёт команду reconcile.
func newReconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Сверить журнал с файловой системой",
		Long: `Сверяет журнал с деревьями исходников и JPEG. Ничего не меняет.

Каждый HEIC получает класс reconciled (JPEG на месте) или unconverted
(с причиной: no_record, pending, failed, stale). JPEG без записи в журнале
перечисляются как сироты.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			_, err := a.reconcileStage(ctx)
			return err
		},
	}
}

// newArchiveCmd создаёт команду archive.
func newArchiveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Перенести подтверждённые оригиналы в архив",
		Long: `Выполняет сверку и переносит в --archive те HEIC, чей JPEG она подтвердила.
Оригиналы без подтверждения остаются на месте.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}
			if err := cfg.RequireArchive(); err != nil {
				return err
			}

			a := newApp(cmd, cfg)
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			if err := a.openLedger(); err != nil {
				return err
			}
			a.printHeader("Архивация")

			rep, err := a.reconcileStage(ctx)
			if err != nil {
				return err
			}
			res, err := a.archiveStage(ctx, rep)
			if err != nil {
				return err
			}
			if res != nil && res.HasFailures() {
				return fmt.Errorf("архивация завершена с ошибками: %d", res.Count(archive.MoveFailed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.cfg.AssumeYes, "yes", "y", false, "Не спрашивать подтверждение")
	return cmd
}

// newRunCmd создаёт команду run: конвертация, сверка и архивация.
func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Полный цикл: convert, reconcile, archive",
		Long: `Конвертирует новые HEIC, сверяет журнал с файловой системой и, если задан
--archive, переносит подтверждённые оригиналы в архив.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			a.printHeader("Полный цикл")

			conv, err := a.convertStage(ctx)
			if err != nil {
				return err
			}

			rep, err := a.reconcileStage(ctx)
			if err != nil {
				return err
			}

			var arch *archive.Result
			if cfg.ArchiveDir == "" {
				a.out.Info("⏭️  Архивация пропущена: не указан --archive")
			} else if arch, err = a.archiveStage(ctx, rep); err != nil {
				return err
			}

			failed := conv.Count(convert.Failed) + conv.Count(convert.Corrupt)
			if arch != nil {
				failed += arch.Count(archive.MoveFailed)
			}
			if failed > 0 {
				return fmt.Errorf("завершено с %d ошибками", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.cfg.AssumeYes, "yes", "y", false, "Не спрашивать подтверждение перед архивацией")
	return cmd
}

// newRestoreCmd создаёт команду restore.
func newRestoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <имя или путь>",
		Short: "Вернуть оригинал из архива",
		Long: `Перемещает заархивированный HEIC обратно в дерево исходников и удаляет
его запись из журнала. Имя сравнивается без учёта регистра; если ему
соответствует несколько файлов, укажите путь относительно --src.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			engine := &archive.Engine{
				Tracker: a.tracker,
				Layout:  cfg.Layout(),
				RunID:   a.runID,
				DryRun:  cfg.DryRun,
				Sink:    a.out,
			}
			res, err := engine.Restore(ctx, args[0])
			if err != nil {
				return err
			}
			if res.HasFailures() {
				return fmt.Errorf("не удалось восстановить %s", args[0])
			}
			return nil
		},
	}
}

// reconcileStage снимает состояние файловой системы и сверяет его с журналом.
func (a *app) reconcileStage(ctx context.Context) (*reconcile.Report, error) {
	layout := a.cfg.Layout()
	snap, err := reconcile.Capture(ctx, a.scanner, layout)
	if err != nil {
		return nil, err
	}
	rep := reconcile.Reconcile(a.tracker.Snapshot(), snap, layout, a.runID)

	a.out.Info("")
	a.out.Info("🔍 Сверка:")
	a.out.Info("   Подтверждено: %d", rep.Count(reconcile.Reconciled))
	a.out.Info("   Не сконвертировано: %d", rep.Count(reconcile.Unconverted))
	for _, r := range reconcile.Reasons() {
		if n := rep.CountReason(r); n > 0 {
			a.out.Info("     %s: %d", r, n)
		}
	}
	a.out.Info("   JPEG без записи: %d", len(rep.Orphans))
	a.out.Info("   Конвертировано: %.1f%%", rep.ConversionRate())
	if saved := rep.SpaceSaved(); saved != 0 {
		a.out.Info("   Экономия места: %s", report.FormatBytes(saved))
	}
	for _, e := range rep.Entries {
		switch e.Reason {
		case reconcile.ReasonStale:
			a.out.Warn("%s: журнал говорит %s, но JPEG %s отсутствует", e.Path, e.Status, e.Destination)
		case reconcile.ReasonCollision:
			a.out.Warn("%s: JPEG %s записан и за другим исходником", e.Path, e.Destination)
		}
	}

	a.writeReport("reconcile", rep)
	return rep, nil
}

// archiveStage переносит оригиналы, подтверждённые отчётом rep.
func (a *app) archiveStage(ctx context.Context, rep *reconcile.Report) (*archive.Result, error) {
	pending := 0
	for rec := range a.tracker.Query(ledger.WithStatus(ledger.StatusConverted)) {
		if rep.Confirmed(rec.Source) {
			pending++
		}
	}
	if pending == 0 {
		a.out.Info("")
		a.out.Info("📦 Архивировать нечего")
		return nil, nil
	}
	if !a.confirm(fmt.Sprintf("Переместить %d оригиналов в %s?", pending, a.cfg.ArchiveDir)) {
		a.out.Info("Архивация отменена")
		return nil, nil
	}

	engine := &archive.Engine{
		Tracker: a.tracker,
		Layout:  a.cfg.Layout(),
		RunID:   a.runID,
		DryRun:  a.cfg.DryRun,
		Sink:    a.out,
	}
	res, err := engine.Run(ctx, rep)
	if res != nil {
		a.out.Info("")
		a.out.Info("📦 Архивация:")
		if a.cfg.DryRun {
			a.out.Info("   Будет перемещено: %d", res.Count(archive.WouldArchive))
		} else {
			a.out.Info("   Перемещено: %d", res.Count(archive.Archived))
		}
		a.out.Info("   Не подтверждено: %d", res.Count(archive.Unconfirmed))
		a.out.Info("   Ошибок: %d", res.Count(archive.MoveFailed))
		a.out.Info("   Время: %s", res.Duration.Round(time.Millisecond))
		a.writeReport("archive", res)
	}
	if errors.Is(err, context.Canceled) {
		a.out.Warn("Архивация прервана, журнал сохранён")
	}
	return res, err
}
