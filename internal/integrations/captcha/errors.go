package captcha

import "errors"

var (
	// ErrUnsolvable возвращается, когда сервис не смог решить капчу
	ErrUnsolvable = errors.New("captcha client: captcha is unsolvable")

	// ErrRejected возвращается, когда сервис отклонил задачу (ключ, баланс)
	ErrRejected = errors.New("captcha client: task rejected by service")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("captcha client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе сервиса
	ErrInvalidResponse = errors.New("captcha client: invalid response")
)
