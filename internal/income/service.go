package income

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/service"
)

// Service errors.
var (
	ErrInvalidYear = errors.New("invalid year")
	ErrEmptyUser   = errors.New("user id cannot be empty")
)

// Service records commission deals and keeps the income tracker rows in
// step with them.
type Service struct {
	store service.Storage
}

// NewService creates an income service backed by store.
func NewService(store service.Storage) *Service {
	return &Service{store: store}
}

// Add stores a new pending transaction.
func (s *Service) Add(ctx context.Context, txn model.Transaction) (*model.Transaction, error) {
	if txn.UserID == "" {
		return nil, ErrEmptyUser
	}
	txn.Status = model.StatusPending
	txn.ClosedDate = nil
	if err := s.store.CreateTransaction(ctx, &txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Info("Added transaction",
		"user", txn.UserID,
		"id", txn.ID,
		"commission", txn.Commission,
		"pending", model.FormatDate(txn.PendingDate))
	return &txn, nil
}

// Close marks one of the user's pending transactions closed on day.
func (s *Service) Close(ctx context.Context, userID, id string, day time.Time) (*model.Transaction, error) {
	return s.update(ctx, userID, id, func(txn *model.Transaction) error {
		return txn.Close(day)
	})
}

// Cancel marks one of the user's pending transactions cancelled.
func (s *Service) Cancel(ctx context.Context, userID, id string) (*model.Transaction, error) {
	return s.update(ctx, userID, id, func(txn *model.Transaction) error {
		return txn.Cancel()
	})
}

// SetCommission changes the commission of a transaction that has not closed.
func (s *Service) SetCommission(ctx context.Context, userID, id string, amount float64) (*model.Transaction, error) {
	return s.update(ctx, userID, id, func(txn *model.Transaction) error {
		return txn.SetCommission(amount)
	})
}

func (s *Service) update(ctx context.Context, userID, id string, apply func(*model.Transaction) error) (*model.Transaction, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}

	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	// Other users' transactions are reported as missing.
	if txn.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}

	if err := apply(txn); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}

	slog.Info("Updated transaction", "user", userID, "id", id, "status", txn.Status)
	return txn, nil
}

// Transactions returns every transaction of the user ordered by pending date.
func (s *Service) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}
	return s.store.ListTransactions(ctx, userID)
}

// Sequences generates the income series for the user's transactions whose
// pending date falls in year.
func (s *Service) Sequences(ctx context.Context, userID string, year int, opts Options) ([]model.IncomeSequence, error) {
	if err := validateKey(userID, year); err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return Generate(inYear(txns, year), opts)
}

// Sync regenerates the year's income series and writes them into the
// user's tracker. Days with nothing pending are written as 0 so pending
// values left over from an earlier sync are overwritten. It returns the
// merged tracker rows.
func (s *Service) Sync(ctx context.Context, userID string, year int) ([]model.TrackerRow, error) {
	if err := validateKey(userID, year); err != nil {
		return nil, err
	}

	var merged []model.TrackerRow
	err := s.inTx(ctx, func(tx service.Tx) error {
		txns, err := tx.ListTransactions(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		seqs, err := Generate(inYear(txns, year), Options{IncludeZeroValues: true})
		if err != nil {
			return err
		}

		rows, err := tx.ListTrackerRows(ctx, userID, model.YearStart(year), model.YearEnd(year))
		if err != nil {
			return fmt.Errorf("failed to load tracker: %w", err)
		}
		if merged, err = Merge(rows, seqs); err != nil {
			return err
		}

		for _, row := range merged {
			if row.FieldName != model.IncomeKeyPending && row.FieldName != model.IncomeKeyClosed {
				continue
			}
			if err := tx.ReplaceTrackerRow(ctx, userID, row); err != nil {
				return fmt.Errorf("failed to write %s: %w", row.FieldName, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Synced income", "user", userID, "year", year, "rows", len(merged))
	return merged, nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx service.Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func inYear(txns []model.Transaction, year int) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.PendingDate.Year() == year {
			out = append(out, txn)
		}
	}
	return out
}

func validateKey(userID string, year int) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}
