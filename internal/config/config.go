// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/artemshloyda/photoledger/internal/media"
)

// StateDirName - имя служебной директории внутри выходной.
const StateDirName = ".photoledger"

// Config содержит все настройки запуска.
type Config struct {
	// SourceDir - корень дерева с исходными HEIC.
	SourceDir string

	// OutputDir - корень дерева сконвертированных JPEG.
	OutputDir string

	// ArchiveDir - корень архива оригиналов (нужен только для archive/restore).
	ArchiveDir string

	// StateDir - директория журнала и отчётов.
	StateDir string

	// LedgerPath - путь к файлу журнала.
	LedgerPath string

	// ReportsDir - директория текстовых отчётов.
	ReportsDir string

	// Quality - качество JPEG (1-100).
	Quality int

	// Preset - профиль качества (web, print, archive).
	Preset string

	// Workers - количество параллельных воркеров конвертации.
	Workers int

	// MaxMemoryMB - ограничение памяти воркеров в мегабайтах (0 = без ограничения).
	MaxMemoryMB int

	// CheckpointEvery - сохранять журнал каждые N изменений (0 = только в конце).
	CheckpointEvery int

	// ConvertTimeout - таймаут конвертации одного файла.
	ConvertTimeout time.Duration

	// CopyMetadata - переносить метаданные через exiftool.
	CopyMetadata bool

	// VipsPath - путь к бинарнику vips (опционально).
	VipsPath string

	// ExiftoolPath - путь к бинарнику exiftool (опционально).
	ExiftoolPath string

	// ExcludeDirs - имена директорий, пропускаемых при сканировании.
	ExcludeDirs []string

	// DryRun - симуляция: журнал не сохраняется, файлы не трогаются, кодек не вызывается.
	DryRun bool

	// AssumeYes - не спрашивать подтверждение перед изменениями.
	AssumeYes bool

	// Watch - после конвертации следить за новыми файлами.
	Watch bool

	// Verbose - подробный вывод.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		Quality:         95,
		Workers:         runtime.NumCPU(),
		CheckpointEvery: 25,
		ConvertTimeout:  5 * time.Minute,
		CopyMetadata:    true,
		ExcludeDirs:     []string{".dtrash"},
	}
}

// Validate проверяет конфигурацию и заполняет производные пути.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("директория исходников не указана (--src)")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("выходная директория не указана (--out)")
	}
	if c.Preset != "" && !c.ApplyPreset(c.Preset) {
		return fmt.Errorf("неизвестный пресет: %s (доступны: %s)", c.Preset, strings.Join(ValidPresets(), ", "))
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("качество должно быть от 1 до 100, получено: %d", c.Quality)
	}
	if c.Workers < 1 {
		return fmt.Errorf("количество воркеров должно быть >= 1, получено: %d", c.Workers)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint не может быть отрицательным: %d", c.CheckpointEvery)
	}

	var err error
	if c.SourceDir, err = filepath.Abs(c.SourceDir); err != nil {
		return fmt.Errorf("некорректный путь исходников: %w", err)
	}
	if c.OutputDir, err = filepath.Abs(c.OutputDir); err != nil {
		return fmt.Errorf("некорректный выходной путь: %w", err)
	}
	if c.ArchiveDir != "" {
		if c.ArchiveDir, err = filepath.Abs(c.ArchiveDir); err != nil {
			return fmt.Errorf("некорректный путь архива: %w", err)
		}
		// архив внутри исходников снова попал бы в сканирование
		if isWithin(c.SourceDir, c.ArchiveDir) {
			return fmt.Errorf("архив %s не может находиться внутри исходников %s", c.ArchiveDir, c.SourceDir)
		}
	}

	return c.deriveStatePaths()
}

// ValidateSource проверяет только директорию исходников (scan, organize
// без журнала).
func (c *Config) ValidateSource() error {
	if c.SourceDir == "" {
		return fmt.Errorf("директория исходников не указана (--src)")
	}
	var err error
	if c.SourceDir, err = filepath.Abs(c.SourceDir); err != nil {
		return fmt.Errorf("некорректный путь исходников: %w", err)
	}
	return nil
}

// ValidateState проверяет только расположение журнала (status).
func (c *Config) ValidateState() error {
	if c.OutputDir == "" && c.StateDir == "" {
		return fmt.Errorf("укажите выходную директорию (--out) или директорию журнала (--state)")
	}
	var err error
	if c.OutputDir != "" {
		if c.OutputDir, err = filepath.Abs(c.OutputDir); err != nil {
			return fmt.Errorf("некорректный выходной путь: %w", err)
		}
	}
	return c.deriveStatePaths()
}

func (c *Config) deriveStatePaths() error {
	if c.StateDir == "" {
		c.StateDir = filepath.Join(c.OutputDir, StateDirName)
	}
	var err error
	if c.StateDir, err = filepath.Abs(c.StateDir); err != nil {
		return fmt.Errorf("некорректный путь журнала: %w", err)
	}
	if c.LedgerPath == "" {
		c.LedgerPath = filepath.Join(c.StateDir, "ledger.yaml")
	}
	if c.ReportsDir == "" {
		c.ReportsDir = filepath.Join(c.StateDir, "reports")
	}
	return nil
}

// RequireArchive проверяет, что задана директория архива.
func (c *Config) RequireArchive() error {
	if c.ArchiveDir == "" {
		return fmt.Errorf("директория архива не указана (--archive)")
	}
	return nil
}

// Layout возвращает раскладку директорий для вывода путей.
func (c *Config) Layout() media.Layout {
	return media.Layout{
		SourceDir:  c.SourceDir,
		OutputDir:  c.OutputDir,
		ArchiveDir: c.ArchiveDir,
	}
}

// IsExcludedDir проверяет, нужно ли пропустить директорию при сканировании.
func (c *Config) IsExcludedDir(name string) bool {
	for _, ex := range c.ExcludeDirs {
		if strings.EqualFold(ex, name) {
			return true
		}
	}
	return false
}

// VipsOutputSuffix возвращает параметры сохранения для vips.
// Например: "[Q=95]".
func (c *Config) VipsOutputSuffix() string {
	return fmt.Sprintf("[Q=%d]", c.Quality)
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

/*
Возможные расширения:
- Поддержка нескольких исходных корней в одном журнале
- Выбор выходного формата (сейчас только JPEG)
*/
