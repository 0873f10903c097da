package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent Transfer calls. The value is arbitrary but must be consistent
// across all service instances sharing the database.
const advisoryLockKey = int64(7_431_009_218)

// PostgresLedger persists accounts and transfers to a PostgreSQL database.
// It implements the Ledger interface.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by the given connection pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// OpenAccount implements Ledger.
func (l *PostgresLedger) OpenAccount(ctx context.Context, ownerID string, openingBalance int64) (*Account, error) {
	if openingBalance < 0 {
		return nil, fmt.Errorf("%w: negative opening balance", ErrInvalidAmount)
	}
	now := time.Now().UTC()
	acct := &Account{OwnerID: ownerID, Balance: openingBalance, CreatedAt: now, UpdatedAt: now}

	_, err := l.pool.Exec(ctx,
		`INSERT INTO ledger_accounts (owner_id, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		acct.OwnerID, acct.Balance, acct.CreatedAt, acct.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("open account: %w", err)
	}
	return acct, nil
}

// Transfer implements Ledger.
// It acquires a PostgreSQL advisory lock, checks the sender's balance, and
// applies debit, credit and the transfer record — all within a single
// transaction. An aborted request therefore never leaves a half-applied
// movement attributed to anyone.
func (l *PostgresLedger) Transfer(ctx context.Context, senderID, recipientID string, amount int64) (*Transfer, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("%w: sender and recipient are the same account", ErrInvalidAmount)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialise concurrent movements with a transaction-scoped advisory lock.
	// The lock is automatically released when the transaction commits or rolls back.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var senderBalance int64
	err = tx.QueryRow(ctx,
		"SELECT balance FROM ledger_accounts WHERE owner_id = $1", senderID,
	).Scan(&senderBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("read sender balance: %w", err)
	}
	if senderBalance < amount {
		return nil, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE ledger_accounts SET balance = balance + $1, updated_at = $2 WHERE owner_id = $3`,
		amount, now, recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("credit recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUnknownRecipient
	}

	if _, err := tx.Exec(ctx,
		`UPDATE ledger_accounts SET balance = balance - $1, updated_at = $2 WHERE owner_id = $3`,
		amount, now, senderID,
	); err != nil {
		return nil, fmt.Errorf("debit sender: %w", err)
	}

	tr := &Transfer{
		ID:            uuid.New(),
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		SenderBalance: senderBalance - amount,
		CreatedAt:     now,
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO transfers (id, sender_id, recipient_id, amount, sender_balance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		tr.ID, tr.SenderID, tr.RecipientID, tr.Amount, tr.SenderBalance, tr.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transfer tx: %w", err)
	}

	l.logger.Debug("transfer applied",
		zap.String("transfer_id", tr.ID.String()),
		zap.Int64("amount", tr.Amount),
	)
	return tr, nil
}

// Balance implements Ledger.
func (l *PostgresLedger) Balance(ctx context.Context, ownerID string) (int64, error) {
	var balance int64
	err := l.pool.QueryRow(ctx,
		"SELECT balance FROM ledger_accounts WHERE owner_id = $1", ownerID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoAccount
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// History implements Ledger.
func (l *PostgresLedger) History(ctx context.Context, ownerID string, limit int) ([]*Transfer, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := l.Balance(ctx, ownerID); err != nil {
		return nil, err
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, sender_id, recipient_id, amount, sender_balance, created_at
		 FROM transfers
		 WHERE sender_id = $1 OR recipient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []*Transfer
	for rows.Next() {
		tr := &Transfer{}
		if err := rows.Scan(&tr.ID, &tr.SenderID, &tr.RecipientID, &tr.Amount, &tr.SenderBalance, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
