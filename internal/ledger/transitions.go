package ledger

// CheckTransition проверяет переход from -> to.
// StatusNone в from означает отсутствие записи.
//
// Допустимо: pending -> converted -> archived, любое состояние -> оно же,
// pending -> failed, создание записи в pending/converted/failed.
// Failed терминален, статус не понижается, archived не создаётся напрямую.
func CheckTransition(source string, from, to Status) error {
	if allowed(from, to) {
		return nil
	}
	return &InvalidTransitionError{Source: source, From: from, To: to}
}

func allowed(from, to Status) bool {
	switch from {
	case StatusNone:
		switch to {
		case StatusPending, StatusConverted, StatusFailed:
			return true
		}
	case StatusPending:
		switch to {
		case StatusPending, StatusConverted, StatusFailed:
			return true
		}
	case StatusConverted:
		switch to {
		case StatusConverted, StatusArchived:
			return true
		}
	case StatusFailed:
		return to == StatusFailed
	case StatusArchived:
		return to == StatusArchived
	}
	return false
}
