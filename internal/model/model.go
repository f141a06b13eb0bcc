// Package model содержит доменные сущности сервиса экопей.
package model

import "time"

// Role определяет роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User представляет зарегистрированного участника программы переработки.
type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash []byte
	Role         Role
	Points       int64
	CreatedAt    time.Time
}

// WasteCategory описывает тип сдаваемого вторсырья. Набор закрытый:
// неизвестная категория отклоняется на валидации, до расчёта баллов.
type WasteCategory string

const (
	WastePlastic WasteCategory = "Plastic"
	WastePaper   WasteCategory = "Paper"
	WasteGlass   WasteCategory = "Glass"
	WasteIron    WasteCategory = "Iron"
)

// WasteCategories перечисляет все допустимые категории вторсырья.
var WasteCategories = []WasteCategory{WastePlastic, WastePaper, WasteGlass, WasteIron}

// IsValidWasteCategory проверяет, что категория входит в закрытый набор.
func IsValidWasteCategory(c WasteCategory) bool {
	for _, v := range WasteCategories {
		if v == c {
			return true
		}
	}
	return false
}

// RequestStatus описывает статус заявки на вывоз вторсырья.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusCompleted RequestStatus = "completed"
)

// requestTransitions — единственная таблица допустимых переходов заявки.
// Статус движется только вперёд: pending → approved → completed.
var requestTransitions = map[RequestStatus]RequestStatus{
	RequestStatusPending:  RequestStatusApproved,
	RequestStatusApproved: RequestStatusCompleted,
}

// CanTransition сообщает, допустим ли переход заявки из from в to.
func (from RequestStatus) CanTransition(to RequestStatus) bool {
	return requestTransitions[from] == to
}

// WasteRequest описывает заявку пользователя на вывоз вторсырья.
// Имя и телефон копируются из профиля в момент подачи, а не читаются
// по ссылке: заявка должна оставаться осмысленной после смены профиля.
type WasteRequest struct {
	ID            string
	UserID        int64
	UserName      string
	Phone         string
	Category      WasteCategory
	WeightGrams   int64
	Location      string
	Lat           *float64
	Lng           *float64
	Notes         string
	ImageURL      string
	Status        RequestStatus
	CollectorInfo string
	CollectionAt  *time.Time
	Points        int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TransactionType описывает направление операции по счёту баллов.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Transaction описывает одну запись журнала операций. Журнал только
// пополняется: записи не изменяются и не удаляются.
type Transaction struct {
	ID             string
	UserID         int64
	Type           TransactionType
	Points         int64
	Description    string
	WasteRequestID *string
	RedemptionID   *string
	CreatedAt      time.Time
}

// Reward описывает позицию каталога вознаграждений.
type Reward struct {
	ID          string
	Name        string
	Cost        int64
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RedemptionStatus описывает этап доставки вознаграждения.
type RedemptionStatus string

const (
	RedemptionStatusPending        RedemptionStatus = "pending"
	RedemptionStatusOutForDelivery RedemptionStatus = "out_for_delivery"
	RedemptionStatusWillReachToday RedemptionStatus = "will_reach_today"
	RedemptionStatusCompleted      RedemptionStatus = "completed"
)

// redemptionTransitions — таблица переходов обмена: этапы проходятся
// строго по порядку, без пропусков и возвратов.
var redemptionTransitions = map[RedemptionStatus]RedemptionStatus{
	RedemptionStatusPending:        RedemptionStatusOutForDelivery,
	RedemptionStatusOutForDelivery: RedemptionStatusWillReachToday,
	RedemptionStatusWillReachToday: RedemptionStatusCompleted,
}

// CanTransition сообщает, допустим ли переход обмена из from в to.
func (from RedemptionStatus) CanTransition(to RedemptionStatus) bool {
	return redemptionTransitions[from] == to
}

// ParseRedemptionStatus возвращает статус обмена по строке из запроса.
func ParseRedemptionStatus(s string) (RedemptionStatus, bool) {
	switch RedemptionStatus(s) {
	case RedemptionStatusPending, RedemptionStatusOutForDelivery,
		RedemptionStatusWillReachToday, RedemptionStatusCompleted:
		return RedemptionStatus(s), true
	}
	return "", false
}

// Redemption описывает обмен баллов на вознаграждение. Название и цена
// вознаграждения копируются в момент обмена: последующие правки каталога
// не меняют историю.
type Redemption struct {
	ID          string
	UserID      int64
	RewardID    string
	RewardName  string
	Cost        int64
	Status      RedemptionStatus
	RequestedAt time.Time
	CompletedAt *time.Time
}

// Balance содержит текущий баланс баллов пользователя.
type Balance struct {
	Current int64 `json:"current"`
}
