// Package scanner отвечает за сканирование директорий с медиафайлами.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artemshloyda/photoledger/internal/media"
)

// Options содержит настройки сканирования.
type Options struct {
	// Formats - какие форматы отдавать. Пусто - HEIC и JPEG.
	Formats []media.Format

	// Exclude - директории, которые не сканируются (по имени).
	// Скрытые директории пропускаются всегда.
	Exclude func(name string) bool

	// OnWarning вызывается для файлов, которые не удалось прочитать.
	// По умолчанию предупреждение пишется в stderr.
	OnWarning func(path string, err error)
}

// Scanner сканирует дерево директорий.
type Scanner struct {
	opts Options
}

// New создаёт новый Scanner.
func New(opts Options) *Scanner {
	if len(opts.Formats) == 0 {
		opts.Formats = []media.Format{media.FormatHEIC, media.FormatJPEG}
	}
	if opts.OnWarning == nil {
		opts.OnWarning = func(path string, err error) {
			fmt.Fprintf(os.Stderr, "⚠️  Предупреждение: не удалось прочитать %s: %v\n", path, err)
		}
	}
	return &Scanner{opts: opts}
}

// WithFormats возвращает копию сканера, отдающую только указанные форматы.
func (s *Scanner) WithFormats(formats ...media.Format) *Scanner {
	opts := s.opts
	opts.Formats = formats
	return New(opts)
}

// Scan запускает сканирование root и отправляет найденные файлы в канал.
// Канал закрывается после завершения сканирования.
func (s *Scanner) Scan(ctx context.Context, root string) (<-chan media.File, <-chan error) {
	files := make(chan media.File, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		err := s.walk(ctx, root, func(file media.File) error {
			if !s.wants(file.Format) {
				return nil
			}
			select {
			case files <- file:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// Collect сканирует root и возвращает все файлы списком.
func (s *Scanner) Collect(ctx context.Context, root string) ([]media.File, error) {
	files, errs := s.Scan(ctx, root)
	var out []media.File
	for f := range files {
		out = append(out, f)
	}
	if err := <-errs; err != nil {
		return out, err
	}
	return out, nil
}

// CountFiles возвращает количество подходящих файлов (для progress bar).
func (s *Scanner) CountFiles(ctx context.Context, root string) (int64, error) {
	var count int64
	err := s.walk(ctx, root, func(file media.File) error {
		if s.wants(file.Format) {
			count++
		}
		return nil
	})
	return count, err
}

// walk обходит дерево и вызывает fn для каждого видимого файла.
func (s *Scanner) walk(ctx context.Context, root string, fn func(media.File) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("некорректный путь %s: %w", root, err)
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("директория недоступна: %w", err)
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Логируем ошибку, но продолжаем
			s.opts.OnWarning(path, err)
			return nil
		}

		if d.IsDir() {
			if path != root && s.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		// Пропускаем macOS metadata файлы (начинаются с ._)
		if strings.HasPrefix(d.Name(), "._") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.opts.OnWarning(path, err)
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		return fn(media.File{
			Path:    path,
			RelPath: relPath,
			Format:  media.DetectFormat(path),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	})
}

// skipDir - скрытые директории (включая служебную) и исключённые по имени.
func (s *Scanner) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return s.opts.Exclude != nil && s.opts.Exclude(name)
}

func (s *Scanner) wants(f media.Format) bool {
	for _, want := range s.opts.Formats {
		if want == f {
			return true
		}
	}
	return false
}

/*
Возможные расширения:
- Поддержка glob-паттернов для фильтрации
- Параллельное сканирование для больших директорий
- Поддержка symlinks
*/
