package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cryptowallet/wallet-service/internal/models"
)

// BalanceService is the business-logic surface the handler exposes over
// HTTP. Amounts cross this boundary already converted to minor units.
type BalanceService interface {
	CreateAccount(ctx context.Context, email string) (*models.Account, error)
	GetBalance(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Deposit(ctx context.Context, id uuid.UUID, amount int64) (*models.Account, error)
	Withdraw(ctx context.Context, id uuid.UUID, amount int64) (*models.Account, error)
}

type Handler struct {
	svc      BalanceService
	log      *logrus.Logger
	validate *validator.Validate
}

func NewHandler(svc BalanceService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, validate: validator.New()}
}

// Register attaches the wallet routes to the router
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/accounts", h.CreateAccount).Methods("POST")
	r.HandleFunc("/api/accounts/{id}/balance", h.GetBalance).Methods("GET")
	r.HandleFunc("/api/accounts/{id}/deposit", h.Deposit).Methods("POST")
	r.HandleFunc("/api/accounts/{id}/withdraw", h.Withdraw).Methods("POST")
}

type createAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type amountRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type accountResponse struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Balance float64 `json:"balance"`
}

// apiError mirrors the response body shape for all failure cases
type apiError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// CreateAccount handles account registration
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Bad Request", "a valid email is required")
		return
	}

	account, err := h.svc.CreateAccount(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeAccount(w, account)
}

// GetBalance handles balance queries
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.svc.GetBalance(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeAccount(w, account)
}

// Deposit handles crediting an account
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.svc.Deposit)
}

// Withdraw handles debiting an account
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.svc.Withdraw)
}

func (h *Handler) applyAmount(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, int64) (*models.Account, error)) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Bad Request", "amount must be greater than zero")
		return
	}

	amount, err := toMinorUnits(req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	account, err := op(r.Context(), id, amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeAccount(w, account)
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return uuid.Nil, false
	}
	return id, true
}

// toMinorUnits converts a decimal amount to cents, rejecting sub-cent
// precision instead of silently rounding it into the balance.
func toMinorUnits(amount float64) (int64, error) {
	cents := math.Round(amount * 100)
	if math.Abs(amount*100-cents) > 1e-6 {
		return 0, errors.New("amount must have at most two decimal places")
	}
	if cents <= 0 {
		return 0, errors.New("amount must be greater than zero")
	}
	return int64(cents), nil
}

func (h *Handler) writeAccount(w http.ResponseWriter, account *models.Account) {
	h.writeJSON(w, http.StatusOK, accountResponse{
		ID:      account.ID.String(),
		Email:   account.Email,
		Balance: account.BalanceMajor(),
	})
}

// writeServiceError maps domain errors to HTTP statuses. Unrecognized
// errors are logged and reported as a generic internal failure.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrAccountExists):
		h.writeError(w, http.StatusConflict, "Conflict", models.ErrAccountExists.Error())
	case errors.Is(err, models.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "Not Found", models.ErrAccountNotFound.Error())
	case errors.Is(err, models.ErrInsufficientFunds):
		h.writeError(w, http.StatusConflict, "Conflict", models.ErrInsufficientFunds.Error())
	case errors.Is(err, models.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, "Bad Request", models.ErrInvalidAmount.Error())
	case errors.Is(err, models.ErrInvalidEmail):
		h.writeError(w, http.StatusBadRequest, "Bad Request", models.ErrInvalidEmail.Error())
	default:
		h.log.Errorf("Unhandled service error: %v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error occurred")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, title, message string) {
	h.writeJSON(w, status, apiError{Title: title, Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}
