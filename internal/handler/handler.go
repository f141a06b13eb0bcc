// Package handler содержит HTTP-обработчики API сервиса экопей.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ecopay/ecopay-system/internal/middleware"
	"github.com/ecopay/ecopay-system/internal/model"
	"github.com/ecopay/ecopay-system/internal/points"
	"github.com/ecopay/ecopay-system/internal/repository"
	"github.com/ecopay/ecopay-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, name, email, password, phone string) (int64, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	SubmitWasteRequest(ctx context.Context, userID int64, in service.SubmitRequestInput) (*model.WasteRequest, error)
	GetWasteRequest(ctx context.Context, id string) (*model.WasteRequest, error)
	ListWasteRequests(ctx context.Context, userID *int64) ([]model.WasteRequest, error)
	ApproveRequest(ctx context.Context, requestID, collectorInfo string) (*model.WasteRequest, error)
	CompleteRequest(ctx context.Context, requestID string) (*model.WasteRequest, error)

	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	GetProfile(ctx context.Context, userID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListTransactions(ctx context.Context, userID int64) ([]model.Transaction, error)

	CreateReward(ctx context.Context, name string, cost int64, description string) (*model.Reward, error)
	ListRewards(ctx context.Context) ([]model.Reward, error)
	UpdateReward(ctx context.Context, id, name string, cost int64, description string) (*model.Reward, error)
	DeleteReward(ctx context.Context, id string) error

	RedeemReward(ctx context.Context, userID int64, rewardID string) (*model.Redemption, error)
	GetRedemption(ctx context.Context, id string) (*model.Redemption, error)
	ListRedemptions(ctx context.Context, userID *int64) ([]model.Redemption, error)
	AdvanceRedemption(ctx context.Context, id, status string) (*model.Redemption, error)
}

// Handler реализует HTTP-обработчики API сервиса экопей.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

// writeServiceError переводит доменные ошибки в HTTP-статусы. Рассинхрон
// журнала и баланса фатален для операции и отдаётся как 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrRequestNotFound),
		errors.Is(err, repository.ErrRewardNotFound),
		errors.Is(err, repository.ErrRedemptionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, model.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, "insufficient_balance", err.Error())
	case errors.Is(err, repository.ErrRewardInUse):
		writeError(w, http.StatusConflict, "reward_in_use", err.Error())
	default:
		h.logger.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", http.StatusText(http.StatusInternalServerError))
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// Register обрабатывает регистрацию нового участника.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			writeError(w, http.StatusConflict, "user_exists", "email already registered")
			return
		}
		h.writeServiceError(w, err, "register user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, model.RoleUser)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User registered successfully",
		"user_id": userID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
			return
		}
		h.writeServiceError(w, err, "login user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, user.Role)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user_id": user.ID,
		"role":    string(user.Role),
	})
}

type wasteRequestResponse struct {
	ID            string   `json:"id"`
	UserID        int64    `json:"user_id"`
	UserName      string   `json:"user_name"`
	Phone         string   `json:"phone"`
	WasteType     string   `json:"waste_type"`
	Weight        float64  `json:"weight"`
	Location      string   `json:"location"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Status        string   `json:"status"`
	CollectorInfo string   `json:"collector_info,omitempty"`
	CollectionAt  *string  `json:"collection_time,omitempty"`
	Points        int64    `json:"points"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func toWasteRequestResponse(req *model.WasteRequest) wasteRequestResponse {
	resp := wasteRequestResponse{
		ID:            req.ID,
		UserID:        req.UserID,
		UserName:      req.UserName,
		Phone:         req.Phone,
		WasteType:     string(req.Category),
		Weight:        points.GramsToKilograms(req.WeightGrams),
		Location:      req.Location,
		Lat:           req.Lat,
		Lng:           req.Lng,
		Notes:         req.Notes,
		ImageURL:      req.ImageURL,
		Status:        string(req.Status),
		CollectorInfo: req.CollectorInfo,
		Points:        req.Points,
		CreatedAt:     req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     req.UpdatedAt.Format(time.RFC3339),
	}
	if req.CollectionAt != nil {
		v := req.CollectionAt.Format(time.RFC3339)
		resp.CollectionAt = &v
	}
	return resp
}

type submitWasteRequest struct {
	WasteType string   `json:"waste_type"`
	Weight    float64  `json:"weight"`
	Location  string   `json:"location"`
	Contact   string   `json:"contact,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
}

// SubmitWaste принимает заявку на вывоз вторсырья от текущего пользователя.
func (h *Handler) SubmitWaste(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req submitWasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	created, err := h.service.SubmitWasteRequest(r.Context(), userID, service.SubmitRequestInput{
		Category: req.WasteType,
		WeightKg: req.Weight,
		Location: req.Location,
		Contact:  req.Contact,
		Notes:    req.Notes,
		ImageURL: req.ImageURL,
		Lat:      req.Lat,
		Lng:      req.Lng,
	})
	if err != nil {
		h.writeServiceError(w, err, "submit waste error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Waste pickup request submitted successfully",
		"request": toWasteRequestResponse(created),
	})
}

// GetMyRequests возвращает заявки текущего пользователя.
func (h *Handler) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	requests, err := h.service.ListWasteRequests(r.Context(), &userID)
	if err != nil {
		h.writeServiceError(w, err, "list waste requests error")
		return
	}

	resp := make([]wasteRequestResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, toWasteRequestResponse(&requests[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": resp})
}

// GetRequest возвращает одну заявку. Пользователь видит только свои заявки,
// администратор — любые.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	req, err := h.service.GetWasteRequest(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get waste request error")
		return
	}

	role, _ := middleware.GetRoleFromContext(r.Context())
	if role != model.RoleAdmin && req.UserID != userID {
		writeError(w, http.StatusNotFound, "not_found", "waste request not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"request": toWasteRequestResponse(req)})
}

// GetAllRequests возвращает заявки всех пользователей (для администратора).
func (h *Handler) GetAllRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListWasteRequests(r.Context(), nil)
	if err != nil {
		h.writeServiceError(w, err, "list waste requests error")
		return
	}

	resp := make([]wasteRequestResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, toWasteRequestResponse(&requests[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": resp})
}

type approveRequest struct {
	CollectorInfo string `json:"collector_info"`
}

// ApproveRequest согласует заявку и назначает сборщика.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	id := chi.URLParam(r, "id")
	updated, err := h.service.ApproveRequest(r.Context(), id, req.CollectorInfo)
	if err != nil {
		h.writeServiceError(w, err, "approve request error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Request approved",
		"request": toWasteRequestResponse(updated),
	})
}

// CompleteRequest завершает заявку и начисляет баллы.
func (h *Handler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	updated, err := h.service.CompleteRequest(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "complete request error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Request completed and points awarded",
		"request": toWasteRequestResponse(updated),
	})
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "get balance error")
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

type userResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Points    int64  `json:"points"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		Points:    u.Points,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// GetProfile возвращает профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "get profile error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// GetAllUsers возвращает всех пользователей (для администратора).
func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list users error")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": resp})
}

type transactionResponse struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Points         int64   `json:"points"`
	Description    string  `json:"description"`
	WasteRequestID *string `json:"waste_request_id,omitempty"`
	RedemptionID   *string `json:"redemption_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// GetTransactions возвращает журнал операций текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "list transactions error")
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, transactionResponse{
			ID:             t.ID,
			Type:           string(t.Type),
			Points:         t.Points,
			Description:    t.Description,
			WasteRequestID: t.WasteRequestID,
			RedemptionID:   t.RedemptionID,
			CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": resp})
}

type rewardResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int64  `json:"cost"`
	Description string `json:"description,omitempty"`
}

func toRewardResponse(rw *model.Reward) rewardResponse {
	return rewardResponse{
		ID:          rw.ID,
		Name:        rw.Name,
		Cost:        rw.Cost,
		Description: rw.Description,
	}
}

// GetRewards возвращает каталог вознаграждений.
func (h *Handler) GetRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.ListRewards(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list rewards error")
		return
	}

	resp := make([]rewardResponse, 0, len(rewards))
	for i := range rewards {
		resp = append(resp, toRewardResponse(&rewards[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"rewards": resp})
}

type rewardRequest struct {
	Name        string `json:"name"`
	Cost        int64  `json:"cost"`
	Description string `json:"description,omitempty"`
}

// CreateReward добавляет позицию каталога (для администратора).
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	created, err := h.service.CreateReward(r.Context(), req.Name, req.Cost, req.Description)
	if err != nil {
		h.writeServiceError(w, err, "create reward error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Reward created",
		"reward":  toRewardResponse(created),
	})
}

// UpdateReward изменяет позицию каталога (для администратора).
func (h *Handler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	id := chi.URLParam(r, "id")
	updated, err := h.service.UpdateReward(r.Context(), id, req.Name, req.Cost, req.Description)
	if err != nil {
		h.writeServiceError(w, err, "update reward error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Reward updated",
		"reward":  toRewardResponse(updated),
	})
}

// DeleteReward удаляет позицию каталога (для администратора).
func (h *Handler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteReward(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "delete reward error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Reward deleted"})
}

type redemptionResponse struct {
	ID          string  `json:"id"`
	UserID      int64   `json:"user_id"`
	RewardID    string  `json:"reward_id"`
	RewardName  string  `json:"reward_name"`
	Cost        int64   `json:"cost"`
	Status      string  `json:"status"`
	RequestedAt string  `json:"requested_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

func toRedemptionResponse(red *model.Redemption) redemptionResponse {
	resp := redemptionResponse{
		ID:          red.ID,
		UserID:      red.UserID,
		RewardID:    red.RewardID,
		RewardName:  red.RewardName,
		Cost:        red.Cost,
		Status:      string(red.Status),
		RequestedAt: red.RequestedAt.Format(time.RFC3339),
	}
	if red.CompletedAt != nil {
		v := red.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}

type redeemRequest struct {
	RewardID string `json:"reward_id"`
}

// Redeem обменивает баллы текущего пользователя на вознаграждение.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	red, err := h.service.RedeemReward(r.Context(), userID, req.RewardID)
	if err != nil {
		h.writeServiceError(w, err, "redeem reward error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Reward redeemed successfully",
		"redemption": toRedemptionResponse(red),
	})
}

// GetRedemption возвращает один обмен. Пользователь видит только свои
// обмены, администратор — любые.
func (h *Handler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	red, err := h.service.GetRedemption(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get redemption error")
		return
	}

	role, _ := middleware.GetRoleFromContext(r.Context())
	if role != model.RoleAdmin && red.UserID != userID {
		writeError(w, http.StatusNotFound, "not_found", "redemption not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"redemption": toRedemptionResponse(red)})
}

// GetMyRedemptions возвращает обмены текущего пользователя.
func (h *Handler) GetMyRedemptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	reds, err := h.service.ListRedemptions(r.Context(), &userID)
	if err != nil {
		h.writeServiceError(w, err, "list redemptions error")
		return
	}

	resp := make([]redemptionResponse, 0, len(reds))
	for i := range reds {
		resp = append(resp, toRedemptionResponse(&reds[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"redemptions": resp})
}

// GetAllRedemptions возвращает обмены всех пользователей (для администратора).
func (h *Handler) GetAllRedemptions(w http.ResponseWriter, r *http.Request) {
	reds, err := h.service.ListRedemptions(r.Context(), nil)
	if err != nil {
		h.writeServiceError(w, err, "list redemptions error")
		return
	}

	resp := make([]redemptionResponse, 0, len(reds))
	for i := range reds {
		resp = append(resp, toRedemptionResponse(&reds[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"redemptions": resp})
}

type advanceRequest struct {
	Status string `json:"status"`
}

// AdvanceRedemption переводит обмен на следующий этап доставки (для администратора).
func (h *Handler) AdvanceRedemption(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	id := chi.URLParam(r, "id")
	updated, err := h.service.AdvanceRedemption(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err, "advance redemption error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Redemption status updated",
		"redemption": toRedemptionResponse(updated),
	})
}
