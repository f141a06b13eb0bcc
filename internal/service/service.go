// Package service реализует бизнес-логику сервиса экопей.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecopay/ecopay-system/internal/model"
	"github.com/ecopay/ecopay-system/internal/points"
	"github.com/ecopay/ecopay-system/internal/validation"
)

// ErrValidation возвращается при некорректных входных данных операции.
var ErrValidation = errors.New("validation failed")

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError описывает, какое поле и почему не прошло проверку.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, name, email, phone string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)

	CreateWasteRequest(ctx context.Context, req *model.WasteRequest) (*model.WasteRequest, error)
	GetWasteRequestByID(ctx context.Context, id string) (*model.WasteRequest, error)
	ListWasteRequests(ctx context.Context, userID *int64) ([]model.WasteRequest, error)
	ApproveWasteRequest(ctx context.Context, id, collectorInfo string, collectionAt time.Time) (*model.WasteRequest, error)
	CompleteWasteRequest(ctx context.Context, requestID, transactionID string, pts int64, description string) (*model.WasteRequest, error)

	ListTransactions(ctx context.Context, userID int64) ([]model.Transaction, error)

	CreateReward(ctx context.Context, reward *model.Reward) (*model.Reward, error)
	GetRewardByID(ctx context.Context, id string) (*model.Reward, error)
	ListRewards(ctx context.Context) ([]model.Reward, error)
	UpdateReward(ctx context.Context, reward *model.Reward) (*model.Reward, error)
	DeleteReward(ctx context.Context, id string) error

	CreateRedemption(ctx context.Context, red *model.Redemption, transactionID, description string) (*model.Redemption, error)
	GetRedemptionByID(ctx context.Context, id string) (*model.Redemption, error)
	ListRedemptions(ctx context.Context, userID *int64) ([]model.Redemption, error)
	AdvanceRedemption(ctx context.Context, id string, target model.RedemptionStatus) (*model.Redemption, error)
}

// Service содержит бизнес-логику сервиса экопей.
type Service struct {
	repo             Repository
	calc             *points.Calculator
	collectionOffset time.Duration
}

// NewService создаёт сервис с указанным репозиторием, калькулятором баллов
// и сдвигом планового времени вывоза относительно подачи заявки.
func NewService(repo Repository, calc *points.Calculator, collectionOffset time.Duration) *Service {
	return &Service{
		repo:             repo,
		calc:             calc,
		collectionOffset: collectionOffset,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового участника программы.
func (s *Service) RegisterUser(ctx context.Context, name, email, password, phone string) (int64, error) {
	if len(strings.TrimSpace(name)) < 2 {
		return 0, &ValidationError{Field: "name", Reason: "must be at least 2 characters"}
	}
	if !strings.Contains(email, "@") {
		return 0, &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(password) < 6 {
		return 0, &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	if !validation.IsValidPhone(phone) {
		return 0, &ValidationError{Field: "phone", Reason: "must look like +91XXXXXXXXXX"}
	}

	hashed := hashPassword(email, password)
	return s.repo.CreateUser(ctx, strings.TrimSpace(name), email, phone, hashed, model.RoleUser)
}

// AuthenticateUser проверяет email и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(email, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// SubmitRequestInput содержит данные новой заявки на вывоз.
type SubmitRequestInput struct {
	Category string
	WeightKg float64
	Location string
	Contact  string
	Notes    string
	ImageURL string
	Lat      *float64
	Lng      *float64
}

// SubmitWasteRequest создаёт заявку на вывоз в статусе pending. Имя и
// контактный телефон копируются из профиля пользователя в момент подачи.
func (s *Service) SubmitWasteRequest(ctx context.Context, userID int64, in SubmitRequestInput) (*model.WasteRequest, error) {
	category := model.WasteCategory(in.Category)
	if !model.IsValidWasteCategory(category) {
		return nil, &ValidationError{Field: "waste_type", Reason: "unknown waste category"}
	}
	if in.WeightKg <= 0 {
		return nil, &ValidationError{Field: "weight", Reason: "must be positive"}
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, &ValidationError{Field: "location", Reason: "must not be empty"}
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	contact := in.Contact
	if contact == "" {
		contact = user.Phone
	}
	if !validation.IsValidPhone(contact) {
		return nil, &ValidationError{Field: "contact", Reason: "must look like +91XXXXXXXXXX"}
	}

	req := &model.WasteRequest{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		UserName:    user.Name,
		Phone:       contact,
		Category:    category,
		WeightGrams: points.KilogramsToGrams(in.WeightKg),
		Location:    in.Location,
		Lat:         in.Lat,
		Lng:         in.Lng,
		Notes:       in.Notes,
		ImageURL:    in.ImageURL,
	}

	return s.repo.CreateWasteRequest(ctx, req)
}

// GetWasteRequest возвращает заявку по идентификатору.
func (s *Service) GetWasteRequest(ctx context.Context, id string) (*model.WasteRequest, error) {
	return s.repo.GetWasteRequestByID(ctx, id)
}

// ListWasteRequests возвращает заявки пользователя либо все заявки при userID == nil.
func (s *Service) ListWasteRequests(ctx context.Context, userID *int64) ([]model.WasteRequest, error) {
	return s.repo.ListWasteRequests(ctx, userID)
}

// ApproveRequest согласует заявку: назначает сборщика и планирует вывоз
// через фиксированный сдвиг от времени подачи.
func (s *Service) ApproveRequest(ctx context.Context, requestID, collectorInfo string) (*model.WasteRequest, error) {
	if !validation.IsValidCollectorInfo(collectorInfo) {
		return nil, &ValidationError{Field: "collector_info", Reason: "must be like: Collector Ram - +919876543210"}
	}

	req, err := s.repo.GetWasteRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	collectionAt := req.CreatedAt.Add(s.collectionOffset)
	return s.repo.ApproveWasteRequest(ctx, requestID, collectorInfo, collectionAt)
}

// CompleteRequest завершает заявку: считает баллы по сохранённым категории
// и весу и атомарно начисляет их на счёт пользователя.
func (s *Service) CompleteRequest(ctx context.Context, requestID string) (*model.WasteRequest, error) {
	req, err := s.repo.GetWasteRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	pts, err := s.calc.Calculate(req.Category, req.WeightGrams)
	if err != nil {
		return nil, fmt.Errorf("calculate points: %w", err)
	}

	description := fmt.Sprintf("Waste submission (%s)", req.Category)
	return s.repo.CompleteWasteRequest(ctx, requestID, uuid.NewString(), pts, description)
}

// GetBalance возвращает текущий баланс баллов пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	current, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{Current: current}, nil
}

// GetProfile возвращает профиль пользователя.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// ListTransactions возвращает журнал операций пользователя.
func (s *Service) ListTransactions(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID)
}

// CreateReward добавляет позицию в каталог вознаграждений.
func (s *Service) CreateReward(ctx context.Context, name string, cost int64, description string) (*model.Reward, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if cost <= 0 {
		return nil, &ValidationError{Field: "cost", Reason: "must be positive"}
	}

	reward := &model.Reward{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Cost:        cost,
		Description: description,
	}
	return s.repo.CreateReward(ctx, reward)
}

// ListRewards возвращает каталог вознаграждений.
func (s *Service) ListRewards(ctx context.Context) ([]model.Reward, error) {
	return s.repo.ListRewards(ctx)
}

// UpdateReward изменяет позицию каталога вознаграждений.
func (s *Service) UpdateReward(ctx context.Context, id, name string, cost int64, description string) (*model.Reward, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if cost <= 0 {
		return nil, &ValidationError{Field: "cost", Reason: "must be positive"}
	}

	reward := &model.Reward{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Cost:        cost,
		Description: description,
	}
	return s.repo.UpdateReward(ctx, reward)
}

// DeleteReward удаляет позицию каталога вознаграждений.
func (s *Service) DeleteReward(ctx context.Context, id string) error {
	return s.repo.DeleteReward(ctx, id)
}

// RedeemReward обменивает баллы на вознаграждение: цена и название
// копируются в обмен, списание и запись журнала выполняются атомарно.
func (s *Service) RedeemReward(ctx context.Context, userID int64, rewardID string) (*model.Redemption, error) {
	reward, err := s.repo.GetRewardByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}

	red := &model.Redemption{
		ID:         uuid.NewString(),
		UserID:     userID,
		RewardID:   reward.ID,
		RewardName: reward.Name,
		Cost:       reward.Cost,
	}

	description := fmt.Sprintf("Redeemed %s", reward.Name)
	return s.repo.CreateRedemption(ctx, red, uuid.NewString(), description)
}

// GetRedemption возвращает обмен по идентификатору.
func (s *Service) GetRedemption(ctx context.Context, id string) (*model.Redemption, error) {
	return s.repo.GetRedemptionByID(ctx, id)
}

// ListRedemptions возвращает обмены пользователя либо все обмены при userID == nil.
func (s *Service) ListRedemptions(ctx context.Context, userID *int64) ([]model.Redemption, error) {
	return s.repo.ListRedemptions(ctx, userID)
}

// AdvanceRedemption переводит обмен на следующий этап доставки.
func (s *Service) AdvanceRedemption(ctx context.Context, id, status string) (*model.Redemption, error) {
	target, ok := model.ParseRedemptionStatus(status)
	if !ok {
		return nil, &ValidationError{Field: "status", Reason: "unknown redemption status"}
	}
	return s.repo.AdvanceRedemption(ctx, id, target)
}
