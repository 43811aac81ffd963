package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a custodial wallet account. The balance is stored in minor
// currency units (cents) to keep arithmetic exact. Version is the
// optimistic-concurrency token, bumped on every balance update.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Balance   int64     `json:"balance"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceMajor returns the balance in major currency units for display.
func (a *Account) BalanceMajor() float64 {
	return float64(a.Balance) / 100
}
