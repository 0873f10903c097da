// Package ledger implements the funds ledger Vaultline's transfer endpoint
// delegates to.
//
// Accounts are keyed by the same opaque identifier space as session-token
// subjects. All amounts are int64 minor units (cents); the HTTP layer converts
// to and from plain JSON numbers at the boundary.
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process, for testing and development.
//   - PostgresLedger: durable, for production use.
package ledger

import (
	"context"
	"errors"
)

// Sentinel errors reported by Ledger implementations. The transfer handler
// maps these to client-facing statuses; anything else is an internal failure.
var (
	ErrNoAccount         = errors.New("sender account not found")
	ErrUnknownRecipient  = errors.New("recipient account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrDuplicateAccount  = errors.New("account already exists")
)

// Ledger is the interface for the funds ledger.
// Both MemoryLedger and PostgresLedger implement this interface.
type Ledger interface {
	// OpenAccount creates an account for ownerID with the given opening
	// balance in minor units.
	OpenAccount(ctx context.Context, ownerID string, openingBalance int64) (*Account, error)

	// Transfer atomically moves amount minor units from the sender's account
	// to the recipient's. It is the sole writer of balances: the debit, the
	// credit and the transfer record are applied in one step or not at all.
	// Returns the completed transfer, including the sender's new balance.
	Transfer(ctx context.Context, senderID, recipientID string, amount int64) (*Transfer, error)

	// Balance returns the current balance of ownerID's account.
	Balance(ctx context.Context, ownerID string) (int64, error)

	// History returns transfers where ownerID was sender or recipient,
	// newest first, at most limit entries.
	History(ctx context.Context, ownerID string, limit int) ([]*Transfer, error)
}
