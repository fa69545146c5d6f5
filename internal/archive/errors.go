package archive

import (
	"errors"
	"fmt"
	"strings"
)

// UnconfirmedConversionError - сверка текущего запуска не подтвердила JPEG.
// Файл не перемещается, остальные файлы обрабатываются дальше.
type UnconfirmedConversionError struct {
	Source string
	Reason string
}

func (e *UnconfirmedConversionError) Error() string {
	return fmt.Sprintf("конвертация %s не подтверждена: %s", e.Source, e.Reason)
}

// IsUnconfirmed проверяет, является ли err ошибкой неподтверждённой конвертации.
func IsUnconfirmed(err error) bool {
	var e *UnconfirmedConversionError
	return errors.As(err, &e)
}

// NotFoundError - в журнале нет заархивированного файла с таким именем.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("в архиве нет записи для %s", e.Name)
}

// AmbiguousError - имени соответствует несколько заархивированных файлов.
type AmbiguousError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("имени %s соответствует несколько файлов, укажите путь относительно исходников:\n  %s",
		e.Name, strings.Join(e.Candidates, "\n  "))
}
