package service

import "errors"

// Классификация ошибок сервиса. Хендлеры переводят их в HTTP-статусы,
// ничего кроме этих ошибок наружу не уходит в «сыром» виде.
var (
	// ErrValidation — отсутствует или пуст обязательный вход.
	ErrValidation = errors.New("validation error")
	// ErrNotFound — код или индекс элемента не разрешаются.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyConsumed — элемент уже был получен; терминальная ошибка.
	ErrAlreadyConsumed = errors.New("item already consumed")
	// ErrPayloadTooLarge — файл превышает настроенный потолок размера.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInternal — сбой хранилища или неожиданное состояние.
	ErrInternal = errors.New("internal error")
)
