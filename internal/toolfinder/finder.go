// Package toolfinder отвечает за поиск внешних утилит (vips, exiftool) в системе.
package toolfinder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Tool описывает утилиту, которую нужно найти.
type Tool struct {
	// Name - имя бинарника без расширения.
	Name string

	// EnvVar - переменная окружения с путём к бинарнику.
	EnvVar string

	// VersionArgs - аргументы для получения версии.
	VersionArgs []string

	// InstallHint - подсказка по установке для сообщения об ошибке.
	InstallHint string
}

var (
	// Vips - кодек HEIC -> JPEG.
	Vips = Tool{
		Name:        "vips",
		EnvVar:      "PHOTOLEDGER_VIPS",
		VersionArgs: []string{"--version"},
		InstallHint: "apt install libvips-tools / brew install vips",
	}

	// Exiftool - перенос метаданных.
	Exiftool = Tool{
		Name:        "exiftool",
		EnvVar:      "PHOTOLEDGER_EXIFTOOL",
		VersionArgs: []string{"-ver"},
		InstallHint: "apt install libimage-exiftool-perl / brew install exiftool",
	}
)

// Info содержит информацию о найденной утилите.
type Info struct {
	// Path - абсолютный путь к бинарнику.
	Path string

	// Version - версия (например, "8.14.2").
	Version string
}

// Finder ищет бинарник утилиты.
type Finder struct {
	// Tool - что ищем.
	Tool Tool

	// CustomPath - пользовательский путь (из флага или конфига).
	CustomPath string
}

// NewFinder создаёт новый Finder.
func NewFinder(tool Tool, customPath string) *Finder {
	return &Finder{
		Tool:       tool,
		CustomPath: customPath,
	}
}

// Find ищет утилиту в следующем порядке:
// 1. CustomPath (если задан)
// 2. Переменная окружения Tool.EnvVar
// 3. PATH
// 4. Рядом с исполняемым файлом в ./bin/<os-arch>/
func (f *Finder) Find() (*Info, error) {
	for _, path := range f.candidates() {
		if info, err := f.check(path); err == nil {
			return info, nil
		}
	}

	return nil, fmt.Errorf("%s не найден. Проверьте:\n"+
		"  1. Установлен ли %s в системе (%s)\n"+
		"  2. Установлена ли переменная окружения %s\n"+
		"  3. Указан ли путь через флаг --%s-path\n"+
		"  4. Находится ли %s рядом с утилитой в ./bin/<os-arch>/",
		f.Tool.Name, f.Tool.Name, f.Tool.InstallHint, f.Tool.EnvVar, f.Tool.Name, f.Tool.Name)
}

func (f *Finder) candidates() []string {
	var candidates []string

	if f.CustomPath != "" {
		candidates = append(candidates, f.CustomPath)
	}

	if envPath := os.Getenv(f.Tool.EnvVar); envPath != "" {
		candidates = append(candidates, envPath)
	}

	if p, err := exec.LookPath(f.Tool.Name); err == nil {
		candidates = append(candidates, p)
	}

	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		platformDir := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
		bin := binaryName(f.Tool.Name)
		candidates = append(candidates,
			filepath.Join(execDir, "bin", platformDir, bin),
			filepath.Join(execDir, "bin", bin),
			filepath.Join(execDir, bin),
		)
	}

	return candidates
}

// check проверяет, является ли путь рабочей утилитой.
func (f *Finder) check(path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("файл не найден: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}

	output, err := exec.Command(absPath, f.Tool.VersionArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить %s %s: %w", f.Tool.Name, strings.Join(f.Tool.VersionArgs, " "), err)
	}

	return &Info{
		Path:    absPath,
		Version: parseVersion(f.Tool.Name, string(output)),
	}, nil
}

// parseVersion извлекает версию из вывода утилиты.
// Примеры: "vips-8.14.2", "vips 8.14.2", "12.76".
func parseVersion(name, output string) string {
	output = strings.TrimSpace(output)
	if line, _, ok := strings.Cut(output, "\n"); ok {
		output = line
	}
	for _, sep := range []string{"-", " "} {
		if v, ok := strings.CutPrefix(output, name+sep); ok {
			return v
		}
	}
	return output
}

// binaryName возвращает имя бинарника для текущей ОС.
func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
