package cdcclient

import "errors"

var (
	// ErrAuthFailed возвращается при неверных учетных данных аккаунта
	ErrAuthFailed = errors.New("cdc client: authentication failed")

	// ErrCaptcha возвращается, когда капча не была решена
	ErrCaptcha = errors.New("cdc client: captcha solving failed")

	// ErrAntiBot возвращается, когда сайт заблокировал сессию как бота
	ErrAntiBot = errors.New("cdc client: blocked by anti-bot protection")

	// ErrSlotTaken возвращается, когда слот уже занят другим пользователем
	ErrSlotTaken = errors.New("cdc client: slot already taken")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("cdc client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе сайта
	ErrInvalidResponse = errors.New("cdc client: invalid response")
)
