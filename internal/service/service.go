package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cryptowallet/wallet-service/internal/models"
)

// maxUpdateRetries bounds how often a deposit/withdrawal re-reads the
// account after losing an optimistic-concurrency race.
const maxUpdateRetries = 5

// AccountStore is the persistence capability the service depends on.
// UpdateBalance must be a compare-and-set on the account version.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance, version int64) error
}

// Notifier dispatches account emails. Notifications are best-effort: the
// service logs failures and never propagates them to the caller.
type Notifier interface {
	AccountCreated(account *models.Account) error
	BalanceChanged(account *models.Account, amount int64, operation string) error
}

var validate = validator.New()

// Service handles wallet business logic
type Service struct {
	store    AccountStore
	notifier Notifier
	log      *logrus.Logger
}

// NewService initializes a new service. notifier may be nil when email
// notifications are not configured.
func NewService(store AccountStore, notifier Notifier, log *logrus.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: log}
}

// CreateAccount registers a new account with a zero balance. The email
// existence pre-check keeps the common duplicate path cheap; the storage
// unique constraint remains the final arbiter when two registrations race.
func (s *Service) CreateAccount(ctx context.Context, email string) (*models.Account, error) {
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, models.ErrInvalidEmail
	}

	exists, err := s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, models.ErrAccountExists
	}

	account := &models.Account{
		ID:      uuid.New(),
		Email:   email,
		Balance: 0,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infof("Account created: %s (%s)", account.ID, account.Email)
	s.notifyCreated(account)
	return account, nil
}

// GetBalance returns the current account record
func (s *Service) GetBalance(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.FindAccountByID(ctx, id)
}

// Deposit credits the account with amount minor units
func (s *Service) Deposit(ctx context.Context, id uuid.UUID, amount int64) (*models.Account, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		account, err := s.store.FindAccountByID(ctx, id)
		if err != nil {
			return nil, err
		}

		newBalance := account.Balance + amount
		err = s.store.UpdateBalance(ctx, id, newBalance, account.Version)
		if err == models.ErrVersionConflict {
			continue
		}
		if err != nil {
			return nil, err
		}

		account.Balance = newBalance
		account.Version++
		s.log.Infof("Deposit of %d to account %s, balance now %d", amount, id, newBalance)
		s.notifyChanged(account, amount, "Deposit")
		return account, nil
	}
	return nil, fmt.Errorf("deposit to account %s: %w", id, models.ErrVersionConflict)
}

// Withdraw debits the account with amount minor units. The balance is
// left untouched when funds are insufficient.
func (s *Service) Withdraw(ctx context.Context, id uuid.UUID, amount int64) (*models.Account, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		account, err := s.store.FindAccountByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if account.Balance < amount {
			return nil, models.ErrInsufficientFunds
		}

		newBalance := account.Balance - amount
		err = s.store.UpdateBalance(ctx, id, newBalance, account.Version)
		if err == models.ErrVersionConflict {
			continue
		}
		if err != nil {
			return nil, err
		}

		account.Balance = newBalance
		account.Version++
		s.log.Infof("Withdrawal of %d from account %s, balance now %d", amount, id, newBalance)
		s.notifyChanged(account, amount, "Withdrawal")
		return account, nil
	}
	return nil, fmt.Errorf("withdrawal from account %s: %w", id, models.ErrVersionConflict)
}

func (s *Service) notifyCreated(account *models.Account) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AccountCreated(account); err != nil {
		s.log.Warnf("Failed to send welcome email to %s: %v", account.Email, err)
	}
}

func (s *Service) notifyChanged(account *models.Account, amount int64, operation string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BalanceChanged(account, amount, operation); err != nil {
		s.log.Warnf("Failed to send %s notification to %s: %v", operation, account.Email, err)
	}
}
