package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a Vaultline account holder. The ID string is the
// subject identifier embedded in session tokens and used as the ledger
// account key.
type Account struct {
	ID           uuid.UUID `json:"id"           db:"id"`
	Email        string    `json:"email"        db:"email"`
	PasswordHash string    `json:"-"            db:"password_hash"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	CreatedAt    time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"   db:"updated_at"`
}

// SubjectID returns the identifier used as the token subject and ledger key.
func (a *Account) SubjectID() string { return a.ID.String() }
