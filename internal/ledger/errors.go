package ledger

import (
	"errors"
	"fmt"
)

// CorruptError - сохранённый журнал не удалось разобрать.
// Запуск прерывается: журнал нужно починить вручную или пересоздать.
type CorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("журнал %s повреждён: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("журнал %s повреждён: %s", e.Path, e.Reason)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// IsCorrupt проверяет, является ли err ошибкой повреждённого журнала.
func IsCorrupt(err error) bool {
	var e *CorruptError
	return errors.As(err, &e)
}

// InvalidTransitionError - попытка перевести запись в недопустимый статус.
// Означает ошибку в программе, а не в данных пользователя.
type InvalidTransitionError struct {
	Source string
	From   Status
	To     Status
}

func (e *InvalidTransitionError) Error() string {
	from := string(e.From)
	if e.From == StatusNone {
		from = "<нет записи>"
	}
	return fmt.Sprintf("недопустимый переход статуса %s -> %s для %s", from, e.To, e.Source)
}

// IsInvalidTransition проверяет, является ли err ошибкой перехода статуса.
func IsInvalidTransition(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}

// IsFatal возвращает true для ошибок целостности журнала, прерывающих весь запуск.
func IsFatal(err error) bool {
	return IsCorrupt(err) || IsInvalidTransition(err)
}
