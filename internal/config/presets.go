package config

// Preset определяет профиль качества JPEG.
type Preset string

const (
	// PresetWeb - компактные файлы для просмотра: качество 80.
	PresetWeb Preset = "web"
	// PresetPrint - высокое качество: 95 (по умолчанию).
	PresetPrint Preset = "print"
	// PresetArchive - максимальное качество: 100.
	PresetArchive Preset = "archive"
)

// Presets содержит качество для каждого пресета.
var Presets = map[Preset]int{
	PresetWeb:     80,
	PresetPrint:   95,
	PresetArchive: 100,
}

// ApplyPreset применяет пресет к конфигурации.
// Возвращает true, если пресет был применён.
func (c *Config) ApplyPreset(preset string) bool {
	q, ok := Presets[Preset(preset)]
	if !ok {
		return false
	}
	c.Quality = q
	return true
}

// ValidPresets возвращает список доступных пресетов.
func ValidPresets() []string {
	return []string{
		string(PresetWeb),
		string(PresetPrint),
		string(PresetArchive),
	}
}
