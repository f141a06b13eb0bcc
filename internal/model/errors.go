package model

import (
	"errors"
	"fmt"
)

// Сигнальные ошибки доменных инвариантов. Проверяются через errors.Is,
// подробности несут структурные типы ниже.
var (
	// ErrInvalidState возвращается при недопустимом переходе статуса.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInsufficientBalance возвращается при попытке списать больше баллов, чем есть на счёте.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// InvalidStateError описывает отклонённый переход статуса.
type InvalidStateError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: transition %s -> %s is not allowed", e.Entity, e.From, e.To)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// InsufficientBalanceError описывает нехватку баллов при обмене.
type InsufficientBalanceError struct {
	UserID    int64
	Available int64
	Required  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, required %d", e.Available, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
