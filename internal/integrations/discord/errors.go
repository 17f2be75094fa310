package discord

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("discord client: internal error")

	// ErrDelivery возвращается, когда webhook не принял сообщение
	ErrDelivery = errors.New("discord client: delivery failed")
)
