package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
)

const transactionColumns = `id, user_id, description, commission, pending_date, closed_date, status, created_at`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn     model.Transaction
		pending string
		closed  sql.NullString
		status  string
	)
	if err := row.Scan(&txn.ID, &txn.UserID, &txn.Description, &txn.Commission,
		&pending, &closed, &status, &txn.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if txn.PendingDate, err = model.ParseDate(pending); err != nil {
		return nil, err
	}
	if closed.Valid {
		day, err := model.ParseDate(closed.String)
		if err != nil {
			return nil, err
		}
		txn.ClosedDate = &day
	}
	txn.Status = model.TransactionStatus(status)
	return &txn, nil
}

// CreateTransaction stores a new transaction. A missing ID gets a random UUID
// and a missing status defaults to PENDING.
func (r repo) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn != nil && txn.Status == "" {
		txn.Status = model.StatusPending
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.Description, txn.Commission,
		model.FormatDate(txn.PendingDate), closedDate(txn), string(txn.Status), txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (r repo) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

// UpdateTransaction writes a transaction's mutable fields. A closed
// transaction keeps the commission it was closed with.
func (r repo) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if err := validateString(txn.ID, "id"); err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE transactions SET
			description = ?,
			commission = CASE WHEN status = 'CLOSED' THEN commission ELSE ? END,
			pending_date = ?,
			closed_date = ?,
			status = ?
		WHERE id = ?`,
		txn.Description, txn.Commission, model.FormatDate(txn.PendingDate),
		closedDate(txn), string(txn.Status), txn.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

// ListTransactions returns a user's transactions ordered by pending date.
func (r repo) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY pending_date, created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer closeRows(rows)

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// ListTransactionUsers returns the distinct users that own at least one transaction.
func (r repo) ListTransactionUsers(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction users: %w", err)
	}
	defer closeRows(rows)

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, fmt.Errorf("failed to scan transaction user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func closedDate(txn *model.Transaction) sql.NullString {
	if txn.ClosedDate == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: model.FormatDate(*txn.ClosedDate), Valid: true}
}
