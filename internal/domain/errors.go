package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ отсутствует.
	ErrOrderNotFound = errors.New("заказ не найден")
	// ErrPostNotFound возвращается, если пост отсутствует.
	ErrPostNotFound = errors.New("пост не найден")
	// ErrProductNotFound возвращается, если товар отсутствует.
	ErrProductNotFound = errors.New("товар не найден")
)
