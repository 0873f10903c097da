package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Account holds the balance for one owner. Balances are minor units.
type Account struct {
	OwnerID   string    `json:"owner_id"   db:"owner_id"`
	Balance   int64     `json:"balance"    db:"balance"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Transfer is one completed funds movement.
type Transfer struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	SenderID    string    `json:"sender_id"    db:"sender_id"`
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	Amount      int64     `json:"amount"       db:"amount"`
	// SenderBalance is the sender's balance after the transfer applied.
	SenderBalance int64     `json:"sender_balance" db:"sender_balance"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}

// ToMinorUnits converts a JSON amount (currency units, up to two decimal
// places) to minor units. Rejects non-positive, non-finite, oversized and
// sub-cent amounts rather than silently rounding.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: not a finite number", ErrInvalidAmount)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	cents := amount * 100
	if cents > math.MaxInt64/2 {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	rounded := math.Round(cents)
	if math.Abs(cents-rounded) > 1e-6 {
		return 0, fmt.Errorf("%w: more than two decimal places", ErrInvalidAmount)
	}
	return int64(rounded), nil
}

// FromMinorUnits converts minor units back to a JSON currency amount.
func FromMinorUnits(cents int64) float64 {
	return float64(cents) / 100
}
