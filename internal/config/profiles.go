package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/artemshloyda/photoledger/internal/fsx"
)

// Profile - сохранённая конфигурация одной фотобиблиотеки.
type Profile struct {
	// Name - имя профиля.
	Name string
	// Path - путь к файлу профиля.
	Path string
	// Config - содержимое (nil, если файл не разобрался).
	Config *FileConfig
}

// ProfilesDir возвращает директорию профилей: ~/.config/photoledger/profiles.
func ProfilesDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("не удалось получить домашнюю директорию: %w", err)
	}
	return filepath.Join(homeDir, ".config", "photoledger", "profiles"), nil
}

// ProfilePath возвращает путь к файлу профиля по имени.
func ProfilePath(name string) (string, error) {
	dir, err := ProfilesDir()
	if err != nil {
		return "", err
	}

	safeName := sanitizeProfileName(name)
	if safeName == "" || safeName != name {
		return "", fmt.Errorf("некорректное имя профиля: %q (допустимы буквы, цифры, - и _)", name)
	}
	return filepath.Join(dir, safeName+".yaml"), nil
}

// sanitizeProfileName оставляет только латинские буквы, цифры, дефисы и подчёркивания.
func sanitizeProfileName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// SaveProfile сохраняет конфигурацию как именованный профиль.
func SaveProfile(name string, cfg *Config) (string, error) {
	path, err := ProfilePath(name)
	if err != nil {
		return "", err
	}

	data, err := FromConfig(cfg).Marshal()
	if err != nil {
		return "", err
	}
	if err := fsx.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("не удалось сохранить профиль: %w", err)
	}
	return path, nil
}

// LoadProfile загружает именованный профиль.
func LoadProfile(name string) (*FileConfig, string, error) {
	path, err := ProfilePath(name)
	if err != nil {
		return nil, "", err
	}

	fc, err := LoadFromFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("не удалось загрузить профиль '%s': %w", name, err)
	}
	if fc == nil {
		return nil, "", fmt.Errorf("профиль '%s' не найден", name)
	}
	return fc, path, nil
}

// ListProfiles возвращает сохранённые профили по имени.
func ListProfiles() ([]Profile, error) {
	dir, err := ProfilesDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию профилей: %w", err)
	}

	var profiles []Profile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}

		path := filepath.Join(dir, name)
		// битый профиль всё равно показываем, без содержимого
		fc, _ := LoadFromFile(path)

		profiles = append(profiles, Profile{
			Name:   strings.TrimSuffix(name, ".yaml"),
			Path:   path,
			Config: fc,
		})
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

// DeleteProfile удаляет именованный профиль.
func DeleteProfile(name string) error {
	path, err := ProfilePath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("профиль '%s' не найден", name)
		}
		return fmt.Errorf("не удалось удалить профиль: %w", err)
	}
	return nil
}

/*
Возможные расширения:
- Описание профиля
- Наследование профилей (extends)
*/
