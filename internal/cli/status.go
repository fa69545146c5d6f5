package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/photoledger/internal/config"
	"github.com/artemshloyda/photoledger/internal/fsx"
	"github.com/artemshloyda/photoledger/internal/ledger"
)

// newStatusCmd создаёт команду status.
func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Показать статистику журнала",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := cfg.ValidateState(); err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}

			a := newApp(cmd, cfg)
			if err := a.openLedger(); err != nil {
				return err
			}

			stats := a.tracker.Stats()
			a.out.Info("📊 Журнал %s:", cfg.LedgerPath)
			a.out.Info("   Всего записей: %d", stats.Total)
			a.out.Info("   Сконвертировано: %d", stats.Converted)
			a.out.Info("   В архиве: %d", stats.Archived)
			a.out.Info("   Ошибок: %d", stats.Failed)
			a.out.Info("   Не завершено: %d", stats.Pending)

			for rec := range a.tracker.Query(ledger.WithStatus(ledger.StatusFailed)) {
				a.out.Info("   ❌ %s: %s", rec.Source, rec.Error)
			}
			for rec := range a.tracker.Query(ledger.WithStatus(ledger.StatusConverted, ledger.StatusArchived)) {
				if rec.Warning != "" {
					a.out.Detail("   ⚠️  %s: %s", rec.Source, rec.Warning)
				}
			}

			if history := a.tracker.History(); len(history) > 0 {
				a.out.Info("   История архива: %d событий", len(history))
				for _, ev := range history {
					a.out.Detail("   %s %s %s <-> %s", ev.At.Local().Format("2006-01-02 15:04"), ev.Action, ev.Source, ev.ArchivePath)
				}
			}
			return nil
		},
	}
}

// newConfigCmd создаёт команду config с подкомандой init.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с файлом конфигурации",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [путь]",
		Short: "Создать пример файла конфигурации",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPaths()[0]
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("файл %s уже существует (используйте --force)", path)
			}
			if err := fsx.WriteFileAtomic(path, []byte(config.GenerateExampleConfig())); err != nil {
				return fmt.Errorf("не удалось записать %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Создан %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Перезаписать существующий файл")

	cmd.AddCommand(initCmd)
	return cmd
}
