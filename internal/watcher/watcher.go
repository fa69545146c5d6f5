// Package watcher следит за деревом исходников и отдаёт новые HEIC-файлы.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/artemshloyda/photoledger/internal/media"
)

// Watcher следит за директорией и отправляет новые файлы в канал.
type Watcher struct {
	// root - корень дерева исходников.
	root string

	// exclude - директории, за которыми не следим (кроме скрытых).
	exclude func(name string) bool

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время ожидания перед отправкой файла.
	// Нужно для того, чтобы файл успел полностью записаться.
	debounceTime time.Duration

	// onError получает ошибки fsnotify.
	onError func(error)

	// pending - файлы, ожидающие отправки (для debounce).
	pending map[string]time.Time
	mu      sync.Mutex
}

// New создаёт новый Watcher для дерева root.
// exclude может быть nil.
func New(root string, exclude func(name string) bool) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	return &Watcher{
		root:         root,
		exclude:      exclude,
		watcher:      w,
		debounceTime: 500 * time.Millisecond,
		onError: func(err error) {
			fmt.Fprintf(os.Stderr, "Ошибка watcher: %v\n", err)
		},
		pending: make(map[string]time.Time),
	}, nil
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// OnError задаёт обработчик ошибок fsnotify.
func (w *Watcher) OnError(fn func(error)) {
	w.onError = fn
}

// Watch запускает слежение и возвращает канал с HEIC-файлами.
// Канал закрывается при отмене ctx.
func (w *Watcher) Watch(ctx context.Context) (<-chan media.File, error) {
	if err := w.addRecursive(w.root); err != nil {
		return nil, err
	}

	files := make(chan media.File, 100)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.processEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		w.processPending(ctx, files)
	}()
	go func() {
		wg.Wait()
		close(files)
	}()

	return files, nil
}

// addRecursive добавляет директорию и все поддиректории в watcher.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("не удалось добавить директорию %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return w.exclude != nil && w.exclude(name)
}

// processEvents обрабатывает события от fsnotify.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Обрабатываем только создание, запись и переименование в дерево
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			if info.IsDir() {
				// Новая директория - добавляем вместе с содержимым
				if event.Has(fsnotify.Create) && !w.skipDir(info.Name()) {
					_ = w.addRecursive(event.Name)
					w.queueExisting(event.Name)
				}
				continue
			}

			if !w.wants(event.Name) {
				continue
			}

			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// queueExisting ставит в очередь HEIC, уже лежащие в новой директории
// (например, перенесённой целиком).
func (w *Watcher) queueExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !w.wants(path) {
			return nil
		}
		w.mu.Lock()
		w.pending[path] = time.Now()
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) wants(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, "._") {
		return false
	}
	// временные файлы конвертации и записи
	if strings.Contains(name, ".converting.") || strings.Contains(name, ".tmp-") {
		return false
	}
	return media.DetectFormat(path) == media.FormatHEIC
}

// processPending отправляет файлы из pending после debounce.
func (w *Watcher) processPending(ctx context.Context, files chan<- media.File) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, f := range w.ready() {
				select {
				case files <- f:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// ready забирает из pending файлы, которые не менялись debounceTime.
func (w *Watcher) ready() []media.File {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var out []media.File
	for path, addedAt := range w.pending {
		if now.Sub(addedAt) < w.debounceTime {
			continue
		}
		delete(w.pending, path)

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		relPath, err := filepath.Rel(w.root, path)
		if err != nil {
			relPath = filepath.Base(path)
		}

		out = append(out, media.File{
			Path:    path,
			RelPath: relPath,
			Format:  media.FormatHEIC,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

/*
Возможные расширения:
- Обработка удаления исходников (пометка в отчёте)
- Rate limiting для большого количества файлов
*/
