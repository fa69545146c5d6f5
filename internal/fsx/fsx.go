// Package fsx содержит файловые операции с гарантиями атомарности:
// запись через временный файл и перемещение только через rename.
package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// renameFunc подменяется в тестах для имитации EXDEV и других сбоев.
var renameFunc = os.Rename

// CrossDeviceError - rename между файловыми системами (EXDEV).
// Перемещение через copy+delete не выполняется: исходник остаётся на месте.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("перемещение между файловыми системами невозможно (EXDEV): %s -> %s: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice проверяет, является ли err ошибкой EXDEV.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// TargetExistsError - целевой путь уже занят.
type TargetExistsError struct {
	Path string
}

func (e *TargetExistsError) Error() string {
	return fmt.Sprintf("целевой путь уже существует: %s", e.Path)
}

// IsTargetExists проверяет, является ли err ошибкой занятого пути.
func IsTargetExists(err error) bool {
	var e *TargetExistsError
	return errors.As(err, &e)
}

// Rename оборачивает os.Rename и помечает EXDEV как CrossDeviceError.
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// MoveNoReplace перемещает файл src в dst одним rename.
// Если dst существует, файл не трогается. При любой ошибке src остаётся на
// исходном месте: частично перемещённых файлов не бывает.
func MoveNoReplace(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &TargetExistsError{Path: dst}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", filepath.Dir(dst), err)
	}

	return Rename(src, dst)
}

// WriteFileAtomic атомарно записывает data в path: временный файл в той же
// директории, fsync, rename. Предыдущая версия path остаётся целой до rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := Rename(tmpName, path); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

// syncDir - best-effort fsync директории после rename.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
