package models

import "errors"

// Сигнальные ошибки доменного слоя. Проверяются через errors.Is,
// слои выше отображают их в соответствующие HTTP-статусы.
var (
	// ErrNotFound возвращается, когда запись с указанным идентификатором отсутствует.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict возвращается при несовпадении версии записи
	// (оптимистическая блокировка); вызывающий перечитывает и повторяет.
	ErrVersionConflict = errors.New("subscription version conflict")
	// ErrPaymentFailed возвращается, когда платёжный провайдер отклонил
	// списание или не ответил в отведённое время.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrSubscriptionTerminal возвращается при попытке перехода из
	// терминального статуса (cancelled, expired).
	ErrSubscriptionTerminal = errors.New("subscription is in terminal status")
	// ErrUsageLimitExceeded возвращается, когда счётчик потребления
	// достиг лимита тарифного плана.
	ErrUsageLimitExceeded = errors.New("usage limit exceeded")
	// ErrEmptyQuiz возвращается при попытке оценить викторину без вопросов.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidQuiz возвращается, когда структура викторины не проходит валидацию.
	ErrInvalidQuiz = errors.New("quiz failed validation")
)
