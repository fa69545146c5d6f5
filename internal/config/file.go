package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Paths - директории.
	Paths *PathsConfig `yaml:"paths,omitempty"`

	// Conversion - настройки конвертации.
	Conversion *ConversionConfig `yaml:"conversion,omitempty"`

	// Tools - пути к внешним утилитам.
	Tools *ToolsConfig `yaml:"tools,omitempty"`

	// Scan - настройки сканирования.
	Scan *ScanConfig `yaml:"scan,omitempty"`

	// Processing - общие настройки запуска.
	Processing *ProcessingConfig `yaml:"processing,omitempty"`
}

// PathsConfig содержит директории.
type PathsConfig struct {
	Source  string `yaml:"source,omitempty"`
	Output  string `yaml:"output,omitempty"`
	Archive string `yaml:"archive,omitempty"`
	State   string `yaml:"state,omitempty"`
}

// ConversionConfig содержит настройки конвертации.
type ConversionConfig struct {
	Quality         int    `yaml:"quality,omitempty"`
	Preset          string `yaml:"preset,omitempty"`
	Workers         int    `yaml:"workers,omitempty"`
	MaxMemoryMB     int    `yaml:"max_memory_mb,omitempty"`
	CheckpointEvery *int   `yaml:"checkpoint_every,omitempty"`
	CopyMetadata    *bool  `yaml:"copy_metadata,omitempty"`
}

// ToolsConfig содержит пути к внешним утилитам.
type ToolsConfig struct {
	Vips     string `yaml:"vips,omitempty"`
	Exiftool string `yaml:"exiftool,omitempty"`
}

// ScanConfig содержит настройки сканирования.
type ScanConfig struct {
	Exclude []string `yaml:"exclude,omitempty"`
}

// ProcessingConfig содержит общие настройки запуска.
type ProcessingConfig struct {
	DryRun     bool `yaml:"dry_run,omitempty"`
	Verbose    bool `yaml:"verbose,omitempty"`
	NoProgress bool `yaml:"no_progress,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла:
// ./photoledger.yaml, ./photoledger.yml, ~/.config/photoledger/config.yaml.
func DefaultConfigPaths() []string {
	paths := []string{
		"photoledger.yaml",
		"photoledger.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "photoledger", "config.yaml"),
			filepath.Join(home, ".config", "photoledger", "config.yml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
	}

	return &fc, nil
}

// FindAndLoadConfig ищет и загружает конфигурационный файл.
// Если configPath указан явно, использует только его.
// Возвращает nil, "", nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// ApplyToConfig применяет настройки из файла к конфигурации.
// CLI флаги имеют приоритет: поле не трогается, если changed(имя флага)
// возвращает true. changed == nil - применить всё.
func (fc *FileConfig) ApplyToConfig(cfg *Config, changed func(flag string) bool) {
	if fc == nil {
		return
	}
	set := func(flag string) bool {
		return changed == nil || !changed(flag)
	}

	if p := fc.Paths; p != nil {
		if p.Source != "" && set("src") {
			cfg.SourceDir = p.Source
		}
		if p.Output != "" && set("out") {
			cfg.OutputDir = p.Output
		}
		if p.Archive != "" && set("archive") {
			cfg.ArchiveDir = p.Archive
		}
		if p.State != "" && set("state") {
			cfg.StateDir = p.State
		}
	}

	if c := fc.Conversion; c != nil {
		if c.Quality > 0 && set("quality") {
			cfg.Quality = c.Quality
		}
		if c.Preset != "" && set("preset") {
			cfg.Preset = c.Preset
		}
		if c.Workers > 0 && set("workers") {
			cfg.Workers = c.Workers
		}
		if c.MaxMemoryMB > 0 && set("max-memory") {
			cfg.MaxMemoryMB = c.MaxMemoryMB
		}
		if c.CheckpointEvery != nil && set("checkpoint") {
			cfg.CheckpointEvery = *c.CheckpointEvery
		}
		if c.CopyMetadata != nil && set("no-copy-metadata") {
			cfg.CopyMetadata = *c.CopyMetadata
		}
	}

	if t := fc.Tools; t != nil {
		if t.Vips != "" && set("vips-path") {
			cfg.VipsPath = t.Vips
		}
		if t.Exiftool != "" && set("exiftool-path") {
			cfg.ExiftoolPath = t.Exiftool
		}
	}

	if s := fc.Scan; s != nil && len(s.Exclude) > 0 && set("exclude") {
		cfg.ExcludeDirs = s.Exclude
	}

	if p := fc.Processing; p != nil {
		if p.DryRun && set("dry-run") {
			cfg.DryRun = true
		}
		if p.Verbose && set("verbose") {
			cfg.Verbose = true
		}
		if p.NoProgress && set("no-progress") {
			cfg.NoProgress = true
		}
	}
}

// FromConfig переводит конфигурацию в вид файла. Пути делаются абсолютными,
// чтобы профиль работал из любой директории. Режимы запуска (dry-run,
// verbose) не сохраняются.
func FromConfig(cfg *Config) *FileConfig {
	abs := func(p string) string {
		if p == "" {
			return ""
		}
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}

	checkpoint := cfg.CheckpointEvery
	copyMetadata := cfg.CopyMetadata

	fc := &FileConfig{
		Paths: &PathsConfig{
			Source:  abs(cfg.SourceDir),
			Output:  abs(cfg.OutputDir),
			Archive: abs(cfg.ArchiveDir),
			State:   abs(cfg.StateDir),
		},
		Conversion: &ConversionConfig{
			Quality:         cfg.Quality,
			Preset:          cfg.Preset,
			Workers:         cfg.Workers,
			MaxMemoryMB:     cfg.MaxMemoryMB,
			CheckpointEvery: &checkpoint,
			CopyMetadata:    &copyMetadata,
		},
	}
	if cfg.VipsPath != "" || cfg.ExiftoolPath != "" {
		fc.Tools = &ToolsConfig{Vips: cfg.VipsPath, Exiftool: cfg.ExiftoolPath}
	}
	if len(cfg.ExcludeDirs) > 0 {
		fc.Scan = &ScanConfig{Exclude: cfg.ExcludeDirs}
	}
	return fc
}

// Marshal сериализует конфигурацию в YAML.
func (fc *FileConfig) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации конфигурации: %w", err)
	}
	return data, nil
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
func GenerateExampleConfig() string {
	return `# photoledger configuration
# Все параметры опциональны. CLI флаги имеют приоритет над этим файлом.

paths:
  # Дерево с исходными HEIC
  source: "./Organized"
  # Куда складывать JPEG (та же структура директорий)
  output: "./Converted"
  # Куда переносить оригиналы после подтверждённой конвертации
  archive: "./HEIC_Archive"
  # Журнал и отчёты (по умолчанию <output>/.photoledger)
  state: ""

conversion:
  # Качество JPEG (1-100) или пресет: web, print, archive
  quality: 95
  preset: ""
  # Параллельные воркеры (по умолчанию = CPU cores)
  workers: 4
  # Ограничение памяти воркеров, МБ (0 = без ограничения)
  max_memory_mb: 0
  # Сохранять журнал каждые N изменений
  checkpoint_every: 25
  # Переносить метаданные через exiftool
  copy_metadata: true

tools:
  vips: ""
  exiftool: ""

scan:
  exclude:
    - .dtrash

processing:
  dry_run: false
  verbose: false
  no_progress: false
`
}
