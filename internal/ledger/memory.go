package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory, thread-safe Ledger implementation.
// It is primarily useful for testing and for single-process deployments
// that do not require durable persistence across restarts.
type MemoryLedger struct {
	mu        sync.RWMutex
	accounts  map[string]*Account
	transfers []*Transfer
}

// New creates an empty MemoryLedger.
func New() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[string]*Account)}
}

// OpenAccount implements Ledger.
func (l *MemoryLedger) OpenAccount(_ context.Context, ownerID string, openingBalance int64) (*Account, error) {
	if openingBalance < 0 {
		return nil, fmt.Errorf("%w: negative opening balance", ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[ownerID]; exists {
		return nil, ErrDuplicateAccount
	}
	now := time.Now().UTC()
	acct := &Account{OwnerID: ownerID, Balance: openingBalance, CreatedAt: now, UpdatedAt: now}
	l.accounts[ownerID] = acct
	cp := *acct
	return &cp, nil
}

// Transfer implements Ledger. Debit and credit happen under one lock
// acquisition so no interleaving can observe a half-applied movement.
func (l *MemoryLedger) Transfer(_ context.Context, senderID, recipientID string, amount int64) (*Transfer, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("%w: sender and recipient are the same account", ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sender, ok := l.accounts[senderID]
	if !ok {
		return nil, ErrNoAccount
	}
	recipient, ok := l.accounts[recipientID]
	if !ok {
		return nil, ErrUnknownRecipient
	}
	if sender.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	sender.Balance -= amount
	recipient.Balance += amount
	sender.UpdatedAt = now
	recipient.UpdatedAt = now

	tr := &Transfer{
		ID:            uuid.New(),
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		SenderBalance: sender.Balance,
		CreatedAt:     now,
	}
	l.transfers = append(l.transfers, tr)
	cp := *tr
	return &cp, nil
}

// Balance implements Ledger.
func (l *MemoryLedger) Balance(_ context.Context, ownerID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[ownerID]
	if !ok {
		return 0, ErrNoAccount
	}
	return acct.Balance, nil
}

// History implements Ledger.
func (l *MemoryLedger) History(_ context.Context, ownerID string, limit int) ([]*Transfer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.accounts[ownerID]; !ok {
		return nil, ErrNoAccount
	}

	var out []*Transfer
	for i := len(l.transfers) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		tr := l.transfers[i]
		if tr.SenderID == ownerID || tr.RecipientID == ownerID {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, nil
}
