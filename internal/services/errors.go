package services

import (
	"errors"
	"fmt"
)

// Категории ошибок движка производства
// Контроллеры отображают их в HTTP статусы через errors.Is
var (
	// ErrNotFound сущность не найдена (404)
	ErrNotFound = errors.New("не найдено")

	// ErrBadRequest некорректный запрос: неизвестный вид заказа, пустой заказ,
	// товар без рецепта (400)
	ErrBadRequest = errors.New("некорректный запрос")

	// ErrValidation нарушение бизнес-правил: пустой список позиций,
	// неположительное количество, недопустимый переход статуса (422)
	ErrValidation = errors.New("ошибка валидации")

	// ErrTransactionFailed транзакция не прошла после всех повторов (503)
	ErrTransactionFailed = errors.New("транзакция не выполнена")
)

// NotFoundf оборачивает ErrNotFound с контекстом
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// BadRequestf оборачивает ErrBadRequest с контекстом
func BadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrBadRequest)
}

// Validationf оборачивает ErrValidation с контекстом
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
