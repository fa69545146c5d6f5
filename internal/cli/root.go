// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/photoledger/internal/config"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// options - состояние одного запуска CLI: конфигурация и флаги,
// которые не ложатся в config.Config напрямую.
type options struct {
	cfg *config.Config

	// configPath - явный путь к YAML (--config).
	configPath string

	// profile, saveProfile - именованные профили (--profile, --save-profile).
	profile     string
	saveProfile string

	// noCopyMetadata - инверсия cfg.CopyMetadata.
	noCopyMetadata bool
}

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	opts := &options{cfg: config.DefaultConfig()}
	cfg := opts.cfg

	rootCmd := &cobra.Command{
		Use:   "photoledger",
		Short: "Пакетная конвертация HEIC -> JPEG с журналом, сверкой и архивом",
		Long: `photoledger конвертирует HEIC-фотографии в JPEG, ведёт журнал конвертаций,
сверяет журнал с файловой системой и переносит подтверждённые оригиналы в архив.

Файлы без даты съёмки в EXIF не конвертируются. Повторный запуск не трогает
уже сконвертированные файлы. Оригинал попадает в архив только после того,
как сверка текущего запуска подтвердила, что его JPEG на месте.

Примеры:
  # Конвертировать дерево HEIC
  photoledger convert --src ./Organized --out ./Converted

  # Полный цикл: конвертация, сверка, архивация
  photoledger run --src ./Organized --out ./Converted --archive ./HEIC_Archive

  # Посмотреть, что будет сделано, ничего не меняя
  photoledger run --src ./Organized --out ./Converted --archive ./HEIC_Archive --dry-run

  # Вернуть оригинал из архива
  photoledger restore IMG_0001.HEIC --src ./Organized --out ./Converted --archive ./HEIC_Archive`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&opts.configPath, "config", "", "Путь к файлу конфигурации YAML")
	flags.StringVar(&opts.profile, "profile", "", "Загрузить именованный профиль")
	flags.StringVar(&opts.saveProfile, "save-profile", "", "Сохранить итоговые настройки как профиль")

	// Директории
	flags.StringVar(&cfg.SourceDir, "src", "", "Дерево с исходными HEIC")
	flags.StringVar(&cfg.OutputDir, "out", "", "Дерево для JPEG")
	flags.StringVar(&cfg.ArchiveDir, "archive", "", "Директория архива оригиналов")
	flags.StringVar(&cfg.StateDir, "state", "", "Директория журнала и отчётов (по умолчанию <out>/"+config.StateDirName+")")

	// Конвертация
	flags.IntVar(&cfg.Quality, "quality", cfg.Quality, "Качество JPEG (1-100)")
	flags.StringVar(&cfg.Preset, "preset", "", "Пресет качества: "+strings.Join(config.ValidPresets(), ", "))
	flags.BoolVar(&opts.noCopyMetadata, "no-copy-metadata", false, "Не переносить метаданные через exiftool")

	// Производительность
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Количество параллельных воркеров")
	flags.IntVar(&cfg.MaxMemoryMB, "max-memory", cfg.MaxMemoryMB, "Ограничение памяти воркеров в МБ (0 = без ограничения)")
	flags.IntVar(&cfg.CheckpointEvery, "checkpoint", cfg.CheckpointEvery, "Сохранять журнал каждые N изменений")

	// Утилиты
	flags.StringVar(&cfg.VipsPath, "vips-path", "", "Путь к бинарнику vips")
	flags.StringVar(&cfg.ExiftoolPath, "exiftool-path", "", "Путь к бинарнику exiftool")

	// Сканирование
	flags.StringSliceVar(&cfg.ExcludeDirs, "exclude", cfg.ExcludeDirs, "Имена директорий, которые не сканируются")

	// Режим и вывод
	flags.BoolVar(&cfg.DryRun, "dry-run", false, "Симуляция: ничего не менять")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Подробный вывод")
	flags.BoolVar(&cfg.NoProgress, "no-progress", false, "Отключить прогресс-бар")

	// Подкоманды
	rootCmd.AddCommand(newConvertCmd(opts))
	rootCmd.AddCommand(newReconcileCmd(opts))
	rootCmd.AddCommand(newArchiveCmd(opts))
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newRestoreCmd(opts))
	rootCmd.AddCommand(newOrganizeCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load применяет файл конфигурации или профиль под флагами командной строки.
func (o *options) load(cmd *cobra.Command) error {
	changed := cmd.Flags().Changed

	var (
		fc   *config.FileConfig
		path string
		err  error
	)
	switch {
	case o.profile != "" && o.configPath != "":
		return fmt.Errorf("--config и --profile нельзя указывать вместе")
	case o.profile != "":
		fc, path, err = config.LoadProfile(o.profile)
	default:
		fc, path, err = config.FindAndLoadConfig(o.configPath)
	}
	if err != nil {
		return err
	}
	if fc != nil {
		fc.ApplyToConfig(o.cfg, changed)
		if o.cfg.Verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "⚙️  Конфигурация: %s\n", path)
		}
	}

	if changed("no-copy-metadata") {
		o.cfg.CopyMetadata = !o.noCopyMetadata
	}

	if o.saveProfile != "" {
		saved, err := config.SaveProfile(o.saveProfile, o.cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "💾 Профиль '%s' сохранён: %s\n", o.saveProfile, saved)
	}
	return nil
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "photoledger %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute запускает CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// Не выводим ошибку, cobra уже вывела
		os.Exit(1)
	}
}

/*
Возможные расширения:
- Команда retry для повторной попытки записей failed
- Экспорт журнала и отчётов в JSON
*/
