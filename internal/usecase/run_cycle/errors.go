package run_cycle

import "errors"

var (
	// ErrFetchSlots возвращается, когда не удалось получить список доступных слотов.
	// Цикл этого аккаунта прерывается, повтор по следующему расписанию.
	ErrFetchSlots = errors.New("failed to fetch available slots")

	// ErrFetchBooked возвращается, когда не удалось получить забронированные сессии
	ErrFetchBooked = errors.New("failed to fetch booked sessions")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")
)
