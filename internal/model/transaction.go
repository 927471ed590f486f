package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTransition is returned when a transaction cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransactionStatus is the lifecycle state of a commission deal.
type TransactionStatus string

// Transaction statuses.
const (
	StatusPending TransactionStatus = "PENDING"
	StatusClosed  TransactionStatus = "CLOSED"
	StatusCancel  TransactionStatus = "CANCEL"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusClosed, StatusCancel:
		return true
	}
	return false
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (TransactionStatus, error) {
	st := TransactionStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
	return st, nil
}

// Transaction is a commission-earning deal. It is created PENDING and moves
// to CLOSED (with a closed date) or CANCEL. The commission is fixed once closed.
type Transaction struct {
	PendingDate time.Time         `json:"pending_date"`
	CreatedAt   time.Time         `json:"created_at"`
	ClosedDate  *time.Time        `json:"closed_date,omitempty"`
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Description string            `json:"description,omitempty"`
	Status      TransactionStatus `json:"status"`
	Commission  float64           `json:"commission"`
}

// Close marks a pending transaction closed on day.
func (t *Transaction) Close(day time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusClosed)
	}
	if day.Before(Day(t.PendingDate)) {
		return fmt.Errorf("%w: closed date %s precedes pending date %s",
			ErrInvalidTransition, FormatDate(day), FormatDate(t.PendingDate))
	}
	closed := Day(day)
	t.Status = StatusClosed
	t.ClosedDate = &closed
	return nil
}

// Cancel marks a pending transaction cancelled.
func (t *Transaction) Cancel() error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusCancel)
	}
	t.Status = StatusCancel
	return nil
}

// SetCommission changes the commission of a transaction that has not closed.
func (t *Transaction) SetCommission(amount float64) error {
	if t.Status == StatusClosed {
		return fmt.Errorf("%w: commission is fixed once closed", ErrInvalidTransition)
	}
	t.Commission = amount
	return nil
}
