package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputExt - расширение сконвертированных файлов.
const OutputExt = ".jpg"

// Layout описывает три дерева директорий: исходники, результаты и архив.
// Пути результата и архива всегда выводятся из пути исходника, поэтому
// повторное сканирование даёт те же ключи без обращения к журналу.
type Layout struct {
	// SourceDir - корень исходных файлов.
	SourceDir string

	// OutputDir - корень сконвертированных JPEG.
	OutputDir string

	// ArchiveDir - корень архива оригиналов.
	ArchiveDir string
}

// Rel возвращает путь исходника относительно SourceDir.
// Пути за пределами SourceDir считаются ошибкой.
func (l Layout) Rel(src string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(l.SourceDir), filepath.Clean(src))
	if err != nil {
		return "", fmt.Errorf("путь %s вне директории исходников: %w", src, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("путь %s вне директории исходников %s", src, l.SourceDir)
	}
	return rel, nil
}

// DestPath строит путь JPEG для исходника: та же относительная структура,
// расширение заменено на .jpg.
func (l Layout) DestPath(src string) (string, error) {
	rel, err := l.Rel(src)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + OutputExt
	return filepath.Join(l.OutputDir, rel), nil
}

// ArchivePath строит путь в архиве, повторяющий относительную структуру исходника.
func (l Layout) ArchivePath(src string) (string, error) {
	if l.ArchiveDir == "" {
		return "", fmt.Errorf("директория архива не задана")
	}
	rel, err := l.Rel(src)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.ArchiveDir, rel), nil
}

// PathKey - ключ для сравнения путей JPEG. Регистр не учитывается:
// на APFS и NTFS IMG_0001.jpg и img_0001.JPG - один и тот же файл.
func PathKey(p string) string {
	return strings.ToLower(filepath.Clean(p))
}
